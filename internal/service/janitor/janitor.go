// Package janitor runs the stale pending donation sweep on a cron schedule.
package janitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/reconciler"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweepTimeout = 30 * time.Second

type Janitor struct {
	ctx     context.Context
	log     *zerolog.Logger
	sweeper reconciler.Sweeper
	cron    *cron.Cron
	wg      *sync.WaitGroup
}

// InitJanitor registers the sweep job; an unparsable schedule is reported immediately.
func InitJanitor(ctx context.Context, sweeper reconciler.Sweeper, cfg *config.SweepConfig, log *zerolog.Logger, wg *sync.WaitGroup) (*Janitor, error) {
	if sweeper == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil sweeper was passed to janitor initializer"}
	}
	j := &Janitor{
		ctx:     ctx,
		log:     log,
		sweeper: sweeper,
		cron:    cron.New(),
		wg:      wg,
	}
	if _, err := j.cron.AddJob(cfg.Schedule, j); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Schedule, err)
	}
	return j, nil
}

// Run performs a single sweep and satisfies cron.Job.
func (j *Janitor) Run() {
	ctx, cancel := context.WithTimeout(j.ctx, sweepTimeout)
	defer cancel()
	affected, err := j.sweeper.SweepStale(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("scheduled sweep failed")
		return
	}
	j.log.Debug().Int64("affected", affected).Msg("scheduled sweep done")
}

// ListenAndSweep starts the scheduler and stops it once the context is cancelled,
// waiting for a running sweep to finish.
func (j *Janitor) ListenAndSweep() {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.cron.Start()
		j.log.Info().Msg("started scheduled sweeps of stale donations")
		<-j.ctx.Done()
		<-j.cron.Stop().Done()
		j.log.Info().Msg("stopped scheduled sweeps of stale donations")
	}()
}
