// Package reconciler resolves pending donations from client signals and the stale sweep.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/signature"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/rs/zerolog"
)

// Reconciler defines attributes of a struct available to its methods.
type Reconciler struct {
	ledger         storage.Ledger
	secret         string
	pendingTimeout time.Duration
	log            *zerolog.Logger
}

// InitService initializes a reconciliation service. The secret is the gateway key secret
// payment signatures are computed with.
func InitService(ledger storage.Ledger, secret string, pendingTimeout time.Duration, log *zerolog.Logger) (*Reconciler, error) {
	if ledger == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if secret == "" {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "empty gateway secret was passed to service initializer"}
	}
	if pendingTimeout <= 0 {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "non-positive pending timeout was passed to service initializer"}
	}
	return &Reconciler{
		ledger:         ledger,
		secret:         secret,
		pendingTimeout: pendingTimeout,
		log:            log,
	}, nil
}

func orderError(orderID string, err error) error {
	var notFoundError *storageErrors.NotFoundError
	if errors.As(err, &notFoundError) {
		return &serviceErrors.OrderNotFound{OrderID: orderID}
	}
	return err
}

// checkOwner rejects signals about donations of other users. Ownership never changes,
// so reading it ahead of the conditional write is safe.
func (r *Reconciler) checkOwner(ctx context.Context, requester modeldto.Requester, orderID string) error {
	donation, err := r.ledger.GetDonation(ctx, orderID)
	if err != nil {
		return orderError(orderID, err)
	}
	if !requester.Owns(donation.UserID) {
		r.log.Warn().Str("order", orderID).Str("user", requester.UserID).Msg("signal about a foreign order rejected")
		return &serviceErrors.ForeignOrder{OrderID: orderID, UserID: requester.UserID}
	}
	return nil
}

// ConfirmPayment verifies the gateway signature and moves a pending donation to Success.
// A donation that is already terminal is returned unchanged.
func (r *Reconciler) ConfirmPayment(ctx context.Context, requester modeldto.Requester, confirmation modeldto.PaymentConfirmation) (*modelstorage.DonationStorageEntry, error) {
	orderID := confirmation.OrderCreationID
	if orderID == "" || confirmation.RazorpayPaymentID == "" {
		return nil, &serviceErrors.InvalidSignature{OrderID: orderID}
	}
	if !signature.Verify(r.secret, orderID, confirmation.RazorpayPaymentID, confirmation.RazorpaySignature) {
		r.log.Warn().Str("order", orderID).Msg("payment signature mismatch")
		return nil, &serviceErrors.InvalidSignature{OrderID: orderID}
	}
	if err := r.checkOwner(ctx, requester, orderID); err != nil {
		return nil, err
	}
	donation, applied, err := r.ledger.MarkSuccess(ctx, orderID, confirmation.RazorpayPaymentID)
	if err != nil {
		return nil, orderError(orderID, err)
	}
	if !applied {
		r.log.Info().Msg(fmt.Sprintf("order %s already resolved as %s, success signal ignored", orderID, donation.Status))
		return donation, nil
	}
	r.log.Info().Msg(fmt.Sprintf("order %s confirmed with payment %s", orderID, donation.PaymentID))
	return donation, nil
}

// FailPayment moves a pending donation to Failed. A donation that is already terminal is returned unchanged.
func (r *Reconciler) FailPayment(ctx context.Context, requester modeldto.Requester, failure modeldto.PaymentFailure) (*modelstorage.DonationStorageEntry, error) {
	if failure.OrderID == "" {
		return nil, &serviceErrors.OrderNotFound{}
	}
	if err := r.checkOwner(ctx, requester, failure.OrderID); err != nil {
		return nil, err
	}
	donation, applied, err := r.ledger.MarkFailed(ctx, failure.OrderID)
	if err != nil {
		return nil, orderError(failure.OrderID, err)
	}
	if !applied {
		r.log.Info().Msg(fmt.Sprintf("order %s already resolved as %s, failure signal ignored", failure.OrderID, donation.Status))
		return donation, nil
	}
	r.log.Info().Msg(fmt.Sprintf("order %s marked as failed", failure.OrderID))
	return donation, nil
}

// SweepStale fails every pending donation older than the pending timeout. Age is measured
// by the store, which also stamps creation times.
func (r *Reconciler) SweepStale(ctx context.Context) (int64, error) {
	affected, err := r.ledger.FailStale(ctx, r.pendingTimeout)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		r.log.Info().Int64("affected", affected).Dur("pending_timeout", r.pendingTimeout).Msg("stale pending donations failed")
	}
	return affected, nil
}
