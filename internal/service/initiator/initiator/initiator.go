// Package initiator opens gateway orders and records them as pending donations.
package initiator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelgateway"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/initiator"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxAmount matches the NUMERIC(12, 2) donations.amount column.
var maxAmount = decimal.New(1, 10)

// Initiator defines attributes of a struct available to its methods.
type Initiator struct {
	storage  storage.Storage
	gateway  initiator.Gateway
	currency string
	log      *zerolog.Logger
}

// InitService initializes an order initiation service.
func InitService(st storage.Storage, gw initiator.Gateway, currency string, log *zerolog.Logger) (*Initiator, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if gw == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil gateway was passed to service initializer"}
	}
	return &Initiator{
		storage:  st,
		gateway:  gw,
		currency: currency,
		log:      log,
	}, nil
}

// toMinorUnits converts an amount to the gateway representation.
func toMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, &serviceErrors.InvalidAmount{Msg: "amount must be a positive number"}
	}
	if !amount.LessThan(maxAmount) {
		return 0, &serviceErrors.InvalidAmount{Msg: fmt.Sprintf("amount must be less than %s", maxAmount)}
	}
	minor := amount.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, &serviceErrors.InvalidAmount{Msg: "amount must have at most two decimal places"}
	}
	return minor.IntPart(), nil
}

func newReceipt() string {
	return "receipt_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreateOrder opens a gateway order for the amount and stores a pending donation for it.
func (i *Initiator) CreateOrder(ctx context.Context, order modeldto.NewOrder) (*modelgateway.Order, error) {
	minor, err := toMinorUnits(order.Amount)
	if err != nil {
		return nil, err
	}
	if order.UserID == "" {
		return nil, &serviceErrors.UnknownUser{}
	}
	_, err = i.storage.GetUserByID(ctx, order.UserID)
	if err != nil {
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &notFoundError) {
			return nil, &serviceErrors.UnknownUser{UserID: order.UserID}
		}
		return nil, err
	}

	gatewayOrder, err := i.gateway.CreateOrder(ctx, minor, i.currency, newReceipt())
	if err != nil {
		return nil, &serviceErrors.GatewayUnavailable{Err: err}
	}

	err = i.storage.AddNewDonation(ctx, modelstorage.DonationStorageEntry{
		UserID:    order.UserID,
		Amount:    order.Amount,
		Status:    modelstorage.StatusPending,
		OrderID:   gatewayOrder.ID,
		PaymentID: "",
	})
	if err != nil {
		i.log.Error().Err(err).
			Str("order", gatewayOrder.ID).
			Str("user", order.UserID).
			Str("amount", order.Amount.String()).
			Msg("gateway order has no local donation record, manual reconciliation required")
		return nil, &serviceErrors.PersistenceFailure{OrderID: gatewayOrder.ID, Err: err}
	}
	i.log.Info().Msg(fmt.Sprintf("pending donation recorded for order %s", gatewayOrder.ID))
	return gatewayOrder, nil
}
