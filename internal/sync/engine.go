package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/calderapos/register-edge/internal/queue"
	"github.com/calderapos/register-edge/pkg/config"
	"github.com/calderapos/register-edge/pkg/db/models"
	"github.com/calderapos/register-edge/pkg/enums"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/metrics"
	"github.com/calderapos/register-edge/pkg/salesclient"
	"github.com/calderapos/register-edge/pkg/types"
)

type queueStore interface {
	NextPending(ctx context.Context) (*models.QueuedSale, error)
	MarkSyncing(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error, nextAttemptAt time.Time) error
	MarkConflict(ctx context.Context, id uuid.UUID, cause error) error
	Remove(ctx context.Context, id uuid.UUID) error
	PromoteDueFailed(ctx context.Context, now time.Time) (int, error)
	RecoverInFlight(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[enums.SaleSyncStatus]int64, error)
	DecodePayload(entry *models.QueuedSale) (*queue.Envelope, error)
}

type centralClient interface {
	SubmitSale(ctx context.Context, payload types.SalePayload) error
	ResumeHeldSale(ctx context.Context, heldSaleID uuid.UUID, expectedVersion int64, overwrite bool, payload types.SalePayload) error
}

// EngineParams collects the engine's dependencies.
type EngineParams struct {
	Config  config.SyncConfig
	Logger  *logger.Logger
	Queue   queueStore
	Central centralClient
	Metrics *metrics.SyncMetrics
}

// Engine drains the offline queue toward central. Exactly one entry is in
// flight at a time, oldest first. A transient failure stops the pass (the
// link is probably down and draining younger entries would break ordering);
// a conflict parks the entry and the pass moves on.
type Engine struct {
	cfg     config.SyncConfig
	logg    *logger.Logger
	queue   queueStore
	central centralClient
	metrics *metrics.SyncMetrics
	now     func() time.Time

	kick chan struct{}

	mu         stdsync.Mutex
	online     bool
	lastSyncAt *time.Time
}

// NewEngine validates dependencies and builds the sync engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Queue == nil {
		return nil, errors.New("queue store is required")
	}
	if params.Central == nil {
		return nil, errors.New("central client is required")
	}

	return &Engine{
		cfg:     params.Config,
		logg:    params.Logger,
		queue:   params.Queue,
		central: params.Central,
		metrics: params.Metrics,
		now:     time.Now,
		kick:    make(chan struct{}, 1),
	}, nil
}

// SyncNow requests an immediate drain pass. Safe to call from any goroutine;
// redundant requests coalesce.
func (e *Engine) SyncNow() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// SetOnline records the connectivity state reported by the prober. A
// transition to online triggers an immediate drain.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	wasOnline := e.online
	e.online = online
	e.mu.Unlock()

	if online && !wasOnline {
		e.SyncNow()
	}
}

// Status reports connectivity, last successful drain, and queue depth.
type Status struct {
	Online     bool                           `json:"online"`
	LastSyncAt *time.Time                     `json:"last_sync_at,omitempty"`
	Queue      map[enums.SaleSyncStatus]int64 `json:"queue"`
}

func (e *Engine) Status(ctx context.Context) (*Status, error) {
	counts, err := e.queue.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return &Status{
		Online:     e.online,
		LastSyncAt: e.lastSyncAt,
		Queue:      counts,
	}, nil
}

// Run recovers crash-stranded entries and then drains on a poll interval,
// waking early on SyncNow. Returns when the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := e.queue.RecoverInFlight(ctx); err != nil {
		return fmt.Errorf("recovering in-flight entries: %w", err)
	}

	interval := e.cfg.PollInterval()
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for {
		if err := e.drainOnce(ctx); err != nil {
			e.logg.Error(ctx, "sync drain pass error", err)
		}

		timer := time.NewTimer(withJitter(interval, e.cfg.Jitter()))
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logg.Info(ctx, "sync engine context canceled")
			return ctx.Err()
		case <-e.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// drainOnce promotes due retries and then submits pending entries one at a
// time until the queue is empty or a transient failure stops the pass.
func (e *Engine) drainOnce(ctx context.Context) error {
	if _, err := e.queue.PromoteDueFailed(ctx, e.now()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entry, err := e.queue.NextPending(ctx)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}

		stop, err := e.submitOne(ctx, entry)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// submitOne pushes a single entry to central. The returned bool asks the
// caller to stop the pass (transient failure).
func (e *Engine) submitOne(ctx context.Context, entry *models.QueuedSale) (bool, error) {
	ctx = e.logg.WithSaleID(ctx, entry.ID.String())

	if err := e.queue.MarkSyncing(ctx, entry.ID); err != nil {
		return false, err
	}

	env, err := e.queue.DecodePayload(entry)
	if err != nil {
		// An undecodable payload will never succeed; park it for review.
		e.logg.Error(ctx, "queued sale payload undecodable", err)
		if markErr := e.queue.MarkConflict(ctx, entry.ID, err); markErr != nil {
			return false, markErr
		}
		e.observe("conflict", 0)
		return false, nil
	}

	start := e.now()
	submitErr := e.submit(ctx, entry, env)
	elapsed := e.now().Sub(start)

	switch {
	case submitErr == nil:
		if err := e.queue.Remove(ctx, entry.ID); err != nil {
			return false, err
		}
		e.markSynced()
		e.observe("success", elapsed)
		e.logg.Info(ctx, "sale synced to central")
		return false, nil

	case salesclient.IsConflict(submitErr):
		if err := e.queue.MarkConflict(ctx, entry.ID, submitErr); err != nil {
			return false, err
		}
		e.observe("conflict", elapsed)
		e.logg.Warn(e.logg.WithField(ctx, "error", submitErr.Error()), "sale rejected by central")
		return false, nil

	default:
		delay := backoffForAttempt(entry.AttemptCount, e.cfg.BackoffBase(), e.cfg.BackoffMax())
		nextAttempt := e.now().Add(withJitter(delay, e.cfg.Jitter()))
		if err := e.queue.MarkFailed(ctx, entry.ID, submitErr, nextAttempt); err != nil {
			return false, err
		}
		e.observe("transient", elapsed)
		e.logg.Warn(e.logg.WithField(ctx, "error", submitErr.Error()), "sale sync failed, will retry")
		return true, nil
	}
}

func (e *Engine) submit(ctx context.Context, entry *models.QueuedSale, env *queue.Envelope) error {
	if entry.Type == enums.QueuedSaleTypeResumeHeld && entry.HeldSaleID != nil {
		expected := int64(0)
		if env.HeldExpectedVersion != nil {
			expected = *env.HeldExpectedVersion
		}
		// An operator overwrite decision rides along so the server lets
		// the resubmission win its version check.
		overwrite := entry.ConflictResolution != nil &&
			*entry.ConflictResolution == enums.ConflictResolutionOverwrite
		return e.central.ResumeHeldSale(ctx, *entry.HeldSaleID, expected, overwrite, env.Sale)
	}
	return e.central.SubmitSale(ctx, env.Sale)
}

func (e *Engine) markSynced() {
	now := e.now()
	e.mu.Lock()
	e.lastSyncAt = &now
	e.mu.Unlock()
}

func (e *Engine) observe(outcome string, elapsed time.Duration) {
	if e.metrics != nil {
		e.metrics.ObserveAttempt(outcome, elapsed)
	}
}
