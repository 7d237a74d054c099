package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/calderapos/register-edge/pkg/db"
	"github.com/calderapos/register-edge/pkg/db/models"
	"github.com/calderapos/register-edge/pkg/enums"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/metrics"
	"github.com/calderapos/register-edge/pkg/types"
)

// Store is the durable offline sale queue. Writes are serialized through a
// mutex because the local database is SQLite with a single writer, and
// because enqueue ordering is what guarantees oldest-first drain.
type Store struct {
	mu      sync.Mutex
	client  *db.Client
	logger  *logger.Logger
	metrics *metrics.SyncMetrics
	now     func() time.Time
}

// NewStore builds the queue store.
func NewStore(client *db.Client, logg *logger.Logger, m *metrics.SyncMetrics) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Store{
		client:  client,
		logger:  logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

// EnqueueSale durably appends a completed sale. The row id is the
// client-generated sale id, so a double enqueue of the same capture is
// rejected locally the same way central deduplicates redeliveries.
func (s *Store) EnqueueSale(ctx context.Context, payload types.SalePayload, customer *types.CustomerSnapshot) (*models.QueuedSale, error) {
	return s.enqueue(ctx, enums.QueuedSaleTypeSale, Envelope{Sale: payload}, customer, nil)
}

// EnqueueHeldResume durably appends the finalization of a held sale. The
// expected version rides in the payload so the sync engine can reconcile
// against central when connectivity returns.
func (s *Store) EnqueueHeldResume(ctx context.Context, heldSaleID uuid.UUID, expectedVersion int64, payload types.SalePayload, customer *types.CustomerSnapshot) (*models.QueuedSale, error) {
	if heldSaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "held sale id required")
	}
	env := Envelope{Sale: payload, HeldExpectedVersion: &expectedVersion}
	return s.enqueue(ctx, enums.QueuedSaleTypeResumeHeld, env, customer, &heldSaleID)
}

func (s *Store) enqueue(ctx context.Context, saleType enums.QueuedSaleType, env Envelope, customer *types.CustomerSnapshot, heldSaleID *uuid.UUID) (*models.QueuedSale, error) {
	if env.Sale.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if len(env.Sale.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale must have at least one line")
	}

	raw, err := EncodeEnvelope(env)
	if err != nil {
		return nil, err
	}

	var customerRaw json.RawMessage
	if customer != nil {
		customerRaw, err = json.Marshal(customer)
		if err != nil {
			return nil, fmt.Errorf("encoding customer snapshot: %w", err)
		}
	}

	entry := models.QueuedSale{
		ID:               env.Sale.SaleID,
		Type:             saleType,
		Status:           enums.SaleSyncStatusPending,
		PayloadVersion:   CurrentPayloadVersion,
		Payload:          raw,
		CustomerSnapshot: customerRaw,
		HeldSaleID:       heldSaleID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.DB().WithContext(ctx).Create(&entry).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sale already queued")
		}
		return nil, fmt.Errorf("enqueueing sale: %w", err)
	}

	s.logger.Info(s.logger.WithSaleID(ctx, entry.ID.String()), "sale enqueued for sync")
	s.refreshDepthLocked(ctx)
	return &entry, nil
}

// Get loads a single queue entry.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.QueuedSale, error) {
	var entry models.QueuedSale
	err := s.client.DB().WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "queued sale not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading queued sale: %w", err)
	}
	return &entry, nil
}

// List returns entries oldest-first, optionally filtered by status.
func (s *Store) List(ctx context.Context, status *enums.SaleSyncStatus) ([]models.QueuedSale, error) {
	query := s.client.DB().WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var rows []models.QueuedSale
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing queued sales: %w", err)
	}
	return rows, nil
}

// ListHeldResumes returns the queued held-sale finalizations, oldest first.
func (s *Store) ListHeldResumes(ctx context.Context) ([]models.QueuedSale, error) {
	var rows []models.QueuedSale
	err := s.client.DB().WithContext(ctx).
		Where("type = ?", enums.QueuedSaleTypeResumeHeld).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing held resumes: %w", err)
	}
	return rows, nil
}

// NextPending returns the oldest pending entry, or nil when the queue has no
// work. Drain order is strictly FIFO.
func (s *Store) NextPending(ctx context.Context) (*models.QueuedSale, error) {
	var entry models.QueuedSale
	err := s.client.DB().WithContext(ctx).
		Where("status = ?", enums.SaleSyncStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching next pending sale: %w", err)
	}
	return &entry, nil
}

// MarkSyncing claims an entry for submission.
func (s *Store) MarkSyncing(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, enums.SaleSyncStatusSyncing, nil)
}

// MarkFailed records a transient submission failure with its retry schedule.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, cause error, nextAttemptAt time.Time) error {
	msg := cause.Error()
	return s.transition(ctx, id, enums.SaleSyncStatusFailed, map[string]any{
		"error_message":   &msg,
		"attempt_count":   gorm.Expr("attempt_count + 1"),
		"next_attempt_at": &nextAttemptAt,
	})
}

// MarkConflict records a definitive central rejection. The entry waits for an
// operator decision and is never retried automatically.
func (s *Store) MarkConflict(ctx context.Context, id uuid.UUID, cause error) error {
	msg := cause.Error()
	return s.transition(ctx, id, enums.SaleSyncStatusConflict, map[string]any{
		"error_message":   &msg,
		"next_attempt_at": nil,
	})
}

// Remove deletes a successfully synced (or skipped) entry.
func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.client.DB().WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.QueuedSale{})
	if result.Error != nil {
		return fmt.Errorf("removing queued sale: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "queued sale not found")
	}
	s.refreshDepthLocked(ctx)
	return nil
}

// ResolveConflict applies an operator decision to a conflicted entry.
func (s *Store) ResolveConflict(ctx context.Context, id uuid.UUID, resolution enums.ConflictResolution) (*models.QueuedSale, error) {
	if !resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid conflict resolution %q", resolution))
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != enums.SaleSyncStatusConflict {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "entry is not in conflict")
	}

	switch resolution {
	case enums.ConflictResolutionSkip:
		if err := s.Remove(ctx, id); err != nil {
			return nil, err
		}
		s.logger.Info(s.logger.WithSaleID(ctx, id.String()), "conflicted sale skipped by operator")
		return nil, nil

	case enums.ConflictResolutionOverwrite:
		if err := s.transition(ctx, id, enums.SaleSyncStatusPending, map[string]any{
			"conflict_resolution": resolution,
			"error_message":       nil,
			"next_attempt_at":     nil,
		}); err != nil {
			return nil, err
		}
		s.logger.Info(s.logger.WithSaleID(ctx, id.String()), "conflicted sale requeued with overwrite")
		return s.Get(ctx, id)

	default: // manual
		s.mu.Lock()
		err := s.client.DB().WithContext(ctx).
			Model(&models.QueuedSale{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"conflict_resolution": resolution,
				"flagged_for_review":  true,
			}).Error
		s.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("flagging conflicted sale: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncFlagged()
		}
		return s.Get(ctx, id)
	}
}

// Retry requeues a single failed entry immediately, clearing its error and
// backoff. The entry must currently be failed.
func (s *Store) Retry(ctx context.Context, id uuid.UUID) (*models.QueuedSale, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != enums.SaleSyncStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed entries can be retried")
	}

	if err := s.transition(ctx, id, enums.SaleSyncStatusPending, map[string]any{
		"error_message":   nil,
		"next_attempt_at": nil,
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// RetryAllFailed requeues every failed entry immediately, clearing backoff.
func (s *Store) RetryAllFailed(ctx context.Context) (int, error) {
	failed := enums.SaleSyncStatusFailed
	rows, err := s.List(ctx, &failed)
	if err != nil {
		return 0, err
	}

	var (
		retried int
		errs    error
	)
	for _, row := range rows {
		if err := s.transition(ctx, row.ID, enums.SaleSyncStatusPending, map[string]any{
			"error_message":   nil,
			"next_attempt_at": nil,
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("requeue %s: %w", row.ID, err))
			continue
		}
		retried++
	}
	return retried, errs
}

// PromoteDueFailed moves failed entries whose backoff has elapsed back to
// pending so the next drain pass picks them up.
func (s *Store) PromoteDueFailed(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.client.DB().WithContext(ctx).
		Model(&models.QueuedSale{}).
		Where("status = ?", enums.SaleSyncStatusFailed).
		Where("next_attempt_at IS NOT NULL AND next_attempt_at <= ?", now).
		Updates(map[string]any{
			"status":          enums.SaleSyncStatusPending,
			"next_attempt_at": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("promoting due failed sales: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.refreshDepthLocked(ctx)
	}
	return int(result.RowsAffected), nil
}

// RecoverInFlight returns entries stranded in syncing by a crash to pending.
// Called once at startup; redelivery is safe because central deduplicates on
// the sale id.
func (s *Store) RecoverInFlight(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.client.DB().WithContext(ctx).
		Model(&models.QueuedSale{}).
		Where("status = ?", enums.SaleSyncStatusSyncing).
		Update("status", enums.SaleSyncStatusPending)
	if result.Error != nil {
		return 0, fmt.Errorf("recovering in-flight sales: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Warn(ctx, fmt.Sprintf("recovered %d in-flight sale(s) after restart", result.RowsAffected))
		s.refreshDepthLocked(ctx)
	}
	return int(result.RowsAffected), nil
}

// FlagStale marks unsynced entries older than the staleness cutoff for
// operator review. Already-flagged entries are left alone.
func (s *Store) FlagStale(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.client.DB().WithContext(ctx).
		Model(&models.QueuedSale{}).
		Where("created_at < ?", olderThan).
		Where("flagged_for_review = ?", false).
		Update("flagged_for_review", true)
	if result.Error != nil {
		return 0, fmt.Errorf("flagging stale sales: %w", result.Error)
	}

	if s.metrics != nil {
		for i := int64(0); i < result.RowsAffected; i++ {
			s.metrics.IncFlagged()
		}
	}
	return int(result.RowsAffected), nil
}

// CountByStatus reports queue depth per status and refreshes the gauges.
func (s *Store) CountByStatus(ctx context.Context) (map[enums.SaleSyncStatus]int64, error) {
	type row struct {
		Status enums.SaleSyncStatus
		Total  int64
	}

	var rows []row
	err := s.client.DB().WithContext(ctx).
		Model(&models.QueuedSale{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting queued sales: %w", err)
	}

	counts := map[enums.SaleSyncStatus]int64{
		enums.SaleSyncStatusPending:  0,
		enums.SaleSyncStatusSyncing:  0,
		enums.SaleSyncStatusFailed:   0,
		enums.SaleSyncStatusConflict: 0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}

	if s.metrics != nil {
		for status, total := range counts {
			s.metrics.SetQueueDepth(status.String(), total)
		}
	}
	return counts, nil
}

// DecodePayload upgrades and decodes an entry's stored payload.
func (s *Store) DecodePayload(entry *models.QueuedSale) (*Envelope, error) {
	return DecodeEnvelope(entry.PayloadVersion, entry.Payload)
}

// transition validates the status move against the state machine, then
// applies it together with any extra column updates. The WHERE clause on the
// previous status makes the move atomic even if another caller races.
func (s *Store) transition(ctx context.Context, id uuid.UUID, to enums.SaleSyncStatus, extra map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry models.QueuedSale
	err := s.client.DB().WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "queued sale not found")
	}
	if err != nil {
		return fmt.Errorf("loading queued sale: %w", err)
	}

	if err := ValidateTransition(entry.Status, to); err != nil {
		return err
	}

	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	result := s.client.DB().WithContext(ctx).
		Model(&models.QueuedSale{}).
		Where("id = ? AND status = ?", id, entry.Status).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating queued sale status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "queued sale changed concurrently")
	}

	s.refreshDepthLocked(ctx)
	return nil
}

// refreshDepthLocked updates the depth gauges without taking the store lock
// again. Errors are swallowed: metrics must never fail queue operations.
func (s *Store) refreshDepthLocked(ctx context.Context) {
	if s.metrics == nil {
		return
	}

	type row struct {
		Status enums.SaleSyncStatus
		Total  int64
	}
	var rows []row
	if err := s.client.DB().WithContext(ctx).
		Model(&models.QueuedSale{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return
	}

	counts := map[enums.SaleSyncStatus]int64{
		enums.SaleSyncStatusPending:  0,
		enums.SaleSyncStatusSyncing:  0,
		enums.SaleSyncStatusFailed:   0,
		enums.SaleSyncStatusConflict: 0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	for status, total := range counts {
		s.metrics.SetQueueDepth(status.String(), total)
	}
}
