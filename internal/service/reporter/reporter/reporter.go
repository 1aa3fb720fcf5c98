// Package reporter serves donation history and admin statistics.
package reporter

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/reconciler"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Reporter defines attributes of a struct available to its methods.
type Reporter struct {
	storage storage.Storage
	sweeper reconciler.Sweeper
	log     *zerolog.Logger
}

// InitService initializes a reporting service.
func InitService(st storage.Storage, sweeper reconciler.Sweeper, log *zerolog.Logger) (*Reporter, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sweeper == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil sweeper was passed to service initializer"}
	}
	return &Reporter{
		storage: st,
		sweeper: sweeper,
		log:     log,
	}, nil
}

// sweep expires stale pending donations before a read; a failure is logged and the read proceeds.
func (r *Reporter) sweep(ctx context.Context) {
	if _, err := r.sweeper.SweepStale(ctx); err != nil {
		r.log.Warn().Err(err).Msg("inline sweep failed")
	}
}

// GetUserHistory returns the donations of a user, newest first.
func (r *Reporter) GetUserHistory(ctx context.Context, userID string) (*modeldto.History, error) {
	if userID == "" {
		return nil, &serviceErrors.UnknownUser{}
	}
	r.sweep(ctx)
	entries, err := r.storage.GetUserDonations(ctx, userID)
	if err != nil {
		return nil, err
	}
	history := modeldto.History{Donations: make([]modeldto.Donation, 0, len(entries))}
	for _, entry := range entries {
		history.Donations = append(history.Donations, modeldto.NewDonation(entry))
	}
	return &history, nil
}

// GetAdminStats collects portal-wide totals, per-user totals and every donation with its payer name.
func (r *Reporter) GetAdminStats(ctx context.Context) (*modeldto.AdminStats, error) {
	r.sweep(ctx)

	var (
		total     decimal.Decimal
		count     int64
		customers []modelstorage.UserStorageEntry
		totals    []modelstorage.UserTotalStorageEntry
		donations []modelstorage.PayerDonationStorageEntry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = r.storage.GetSuccessTotal(gCtx)
		return err
	})
	g.Go(func() (err error) {
		count, err = r.storage.CountCustomers(gCtx)
		return err
	})
	g.Go(func() (err error) {
		customers, err = r.storage.GetCustomers(gCtx)
		return err
	})
	g.Go(func() (err error) {
		totals, err = r.storage.GetUserTotals(gCtx)
		return err
	})
	g.Go(func() (err error) {
		donations, err = r.storage.GetPayerDonations(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	donated := make(map[string]decimal.Decimal, len(totals))
	for _, t := range totals {
		donated[t.UserID] = t.Total
	}
	stats := modeldto.AdminStats{
		Stats: modeldto.Stats{
			Users:          count,
			TotalDonations: total,
		},
		Users:     make([]modeldto.UserSummary, 0, len(customers)),
		Donations: make([]modeldto.PayerDonation, 0, len(donations)),
	}
	for _, customer := range customers {
		stats.Users = append(stats.Users, modeldto.UserSummary{
			ID:           customer.UserID,
			Name:         customer.Name,
			Email:        customer.Email,
			CreatedAt:    customer.RegisteredAt,
			TotalDonated: donated[customer.UserID],
		})
	}
	for _, donation := range donations {
		stats.Donations = append(stats.Donations, modeldto.PayerDonation{
			Donation:  modeldto.NewDonation(donation.DonationStorageEntry),
			PayerName: donation.PayerName,
		})
	}
	return &stats, nil
}
