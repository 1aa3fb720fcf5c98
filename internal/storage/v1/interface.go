package storage

import (
	"context"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/shopspring/decimal"
)

type Register interface {
	AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) error
	GetUserByEmail(ctx context.Context, email string) (*modelstorage.UserStorageEntry, error)
	GetUserByID(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error)
}

// Ledger keeps donation records. MarkSuccess, MarkFailed and FailStale are single conditional
// writes that only touch records still in Pending; the bool result reports whether the write applied.
// FailStale measures record age against the clock that stamped created_at.
type Ledger interface {
	AddNewDonation(ctx context.Context, donation modelstorage.DonationStorageEntry) error
	GetDonation(ctx context.Context, orderID string) (*modelstorage.DonationStorageEntry, error)
	MarkSuccess(ctx context.Context, orderID, paymentID string) (*modelstorage.DonationStorageEntry, bool, error)
	MarkFailed(ctx context.Context, orderID string) (*modelstorage.DonationStorageEntry, bool, error)
	FailStale(ctx context.Context, olderThan time.Duration) (int64, error)
	GetUserDonations(ctx context.Context, userID string) ([]modelstorage.DonationStorageEntry, error)
}

type Reporter interface {
	GetSuccessTotal(ctx context.Context) (decimal.Decimal, error)
	CountCustomers(ctx context.Context) (int64, error)
	GetCustomers(ctx context.Context) ([]modelstorage.UserStorageEntry, error)
	GetUserTotals(ctx context.Context) ([]modelstorage.UserTotalStorageEntry, error)
	GetPayerDonations(ctx context.Context) ([]modelstorage.PayerDonationStorageEntry, error)
}

type Storage interface {
	Register
	Ledger
	Reporter
}
