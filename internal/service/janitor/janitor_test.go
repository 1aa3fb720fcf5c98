package janitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int32
	err   error
}

func (s *fakeSweeper) SweepStale(ctx context.Context) (int64, error) {
	atomic.AddInt32(&s.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return 1, s.err
}

func TestInitJanitor_InvalidSchedule(t *testing.T) {
	log := zerolog.Nop()
	_, err := InitJanitor(context.Background(), &fakeSweeper{}, &config.SweepConfig{Schedule: "every now and then"}, &log, &sync.WaitGroup{})
	assert.Error(t, err)

	_, err = InitJanitor(context.Background(), nil, &config.SweepConfig{Schedule: "@every 1m"}, &log, &sync.WaitGroup{})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	log := zerolog.Nop()
	sweeper := &fakeSweeper{err: errors.New("connection reset")}
	j, err := InitJanitor(context.Background(), sweeper, &config.SweepConfig{Schedule: "@every 1m"}, &log, &sync.WaitGroup{})
	require.NoError(t, err)

	j.Run()
	j.Run()
	assert.Equal(t, int32(2), atomic.LoadInt32(&sweeper.calls))
}

func TestListenAndSweep(t *testing.T) {
	log := zerolog.Nop()
	sweeper := &fakeSweeper{}
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	j, err := InitJanitor(ctx, sweeper, &config.SweepConfig{Schedule: "@every 1s"}, &log, wg)
	require.NoError(t, err)

	j.ListenAndSweep()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&sweeper.calls) > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop after context cancellation")
	}
}
