package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/calderapos/register-edge/pkg/enums"
	"github.com/calderapos/register-edge/pkg/logger"
)

type staleFlagger interface {
	FlagStale(ctx context.Context, olderThan time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[enums.SaleSyncStatus]int64, error)
}

// SweeperParams configure the staleness sweep job.
type SweeperParams struct {
	Logger   *logger.Logger
	Queue    staleFlagger
	Window   time.Duration
	Interval time.Duration
}

// Sweeper periodically flags queue entries that have sat unsynced past the
// staleness window, and refreshes the queue depth gauges as a side effect.
type Sweeper struct {
	logg     *logger.Logger
	queue    staleFlagger
	window   time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewSweeper validates parameters and builds the sweep job.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Queue == nil {
		return nil, errors.New("queue store is required")
	}
	if params.Window <= 0 {
		return nil, errors.New("staleness window must be positive")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		logg:     params.Logger,
		queue:    params.Queue,
		window:   params.Window,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run sweeps on a fixed interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				s.logg.Error(ctx, "staleness sweep error", err)
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	var errs []error

	cutoff := s.now().Add(-s.window)
	flagged, err := s.queue.FlagStale(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("flag stale: %w", err))
	} else if flagged > 0 {
		s.logg.Warn(
			s.logg.WithField(ctx, "flagged", flagged),
			"queued sales exceeded the staleness window",
		)
	}

	if _, err := s.queue.CountByStatus(ctx); err != nil {
		errs = append(errs, fmt.Errorf("refresh queue depth: %w", err))
	}

	return multierr.Combine(errs...)
}
