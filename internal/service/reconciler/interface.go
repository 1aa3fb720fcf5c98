// Package reconciler defines the payment reconciliation contract.
package reconciler

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
)

// Reconciler resolves pending donations. Client signals are accepted only from the donation owner or an admin.
type Reconciler interface {
	Sweeper
	ConfirmPayment(ctx context.Context, requester modeldto.Requester, confirmation modeldto.PaymentConfirmation) (*modelstorage.DonationStorageEntry, error)
	FailPayment(ctx context.Context, requester modeldto.Requester, failure modeldto.PaymentFailure) (*modelstorage.DonationStorageEntry, error)
}

// Sweeper fails pending donations that outlived the pending timeout and reports how many it touched.
type Sweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}
