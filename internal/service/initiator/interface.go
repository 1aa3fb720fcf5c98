// Package initiator defines the order initiation contract.
package initiator

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelgateway"
)

type Initiator interface {
	CreateOrder(ctx context.Context, order modeldto.NewOrder) (*modelgateway.Order, error)
}

// Gateway creates orders with the payment processor; amount is in minor currency units.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*modelgateway.Order, error)
}
