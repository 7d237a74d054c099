package central

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/redis"
	"github.com/calderapos/register-edge/pkg/types"
)

const saleIdempotencyScope = "sales"

// Service is the development stand-in for the central sales API. It accepts
// sale submissions with at-least-once semantics: redelivery of a sale id
// already recorded is acknowledged without double-recording.
type Service struct {
	idempotency redis.IdempotencyStore
	ttl         time.Duration
	logger      *logger.Logger

	mu    stdsync.Mutex
	held  map[uuid.UUID]*types.HeldSale
	sales map[uuid.UUID]types.SalePayload
}

// NewService builds the central stub.
func NewService(idempotency redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if idempotency == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		idempotency: idempotency,
		ttl:         ttl,
		logger:      logg,
		held:        map[uuid.UUID]*types.HeldSale{},
		sales:       map[uuid.UUID]types.SalePayload{},
	}, nil
}

// RecordSale stores a submitted sale. The returned bool is false when the
// sale id was already recorded and the submission was deduplicated.
func (s *Service) RecordSale(ctx context.Context, payload types.SalePayload) (bool, error) {
	if payload.SaleID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if len(payload.Lines) == 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "sale must have at least one line")
	}

	key := s.idempotency.IdempotencyKey(saleIdempotencyScope, payload.SaleID.String())
	first, err := s.idempotency.SetNX(ctx, key, payload.CapturedAt.UTC().Format(time.RFC3339Nano), s.ttl)
	if err != nil {
		return false, fmt.Errorf("checking sale idempotency: %w", err)
	}
	if !first {
		s.logger.Info(s.logger.WithSaleID(ctx, payload.SaleID.String()), "duplicate sale submission deduplicated")
		return false, nil
	}

	s.mu.Lock()
	s.sales[payload.SaleID] = payload
	s.mu.Unlock()

	s.logger.Info(s.logger.WithSaleID(ctx, payload.SaleID.String()), "sale recorded")
	return true, nil
}

// ResumeHeld finalizes a held sale. The expected version must match the
// current ticket version; a mismatch or an already-finalized ticket is a
// state conflict, except for redelivery of the exact same finalizing sale.
// With overwrite set the version check is waived: the register's operator has
// decided this submission wins a version mismatch. Overwrite never unseats a
// ticket that another sale already finalized.
func (s *Service) ResumeHeld(ctx context.Context, heldSaleID uuid.UUID, expectedVersion int64, overwrite bool, payload types.SalePayload) error {
	if heldSaleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "held sale id required")
	}

	s.mu.Lock()
	held, ok := s.held[heldSaleID]
	if !ok {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "held sale not found")
	}

	if held.FinalSale != nil {
		finalized := *held.FinalSale
		s.mu.Unlock()
		if finalized == payload.SaleID {
			// Redelivery of the submission that already won.
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "held sale already finalized").
			WithDetails(map[string]any{"final_sale_id": finalized.String()})
	}

	if held.Version != expectedVersion && !overwrite {
		current := held.Version
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "held sale version mismatch").
			WithDetails(map[string]any{"current_version": current, "expected_version": expectedVersion})
	}
	s.mu.Unlock()

	recorded, err := s.RecordSale(ctx, payload)
	if err != nil {
		return err
	}
	_ = recorded

	s.mu.Lock()
	saleID := payload.SaleID
	held.FinalSale = &saleID
	held.Version++
	s.mu.Unlock()

	s.logger.Info(
		s.logger.WithField(s.logger.WithSaleID(ctx, payload.SaleID.String()), "held_sale_id", heldSaleID.String()),
		"held sale finalized",
	)
	return nil
}

// CreateHeld parks a new held sale and returns it at version 1.
func (s *Service) CreateHeld(ctx context.Context, storeID uuid.UUID, lines []types.SaleLine, customerID *uuid.UUID, notes string) (*types.HeldSale, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "held sale must have at least one line")
	}

	held := &types.HeldSale{
		ID:         uuid.New(),
		StoreID:    storeID,
		Version:    1,
		Lines:      lines,
		CustomerID: customerID,
		Notes:      notes,
		HeldAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.held[held.ID] = held
	s.mu.Unlock()

	s.logger.Info(s.logger.WithField(ctx, "held_sale_id", held.ID.String()), "held sale created")
	return held, nil
}

// GetHeld returns a copy of the held sale.
func (s *Service) GetHeld(_ context.Context, heldSaleID uuid.UUID) (*types.HeldSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held, ok := s.held[heldSaleID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "held sale not found")
	}
	clone := *held
	clone.Lines = append([]types.SaleLine(nil), held.Lines...)
	return &clone, nil
}

// SaleCount reports how many distinct sales have been recorded.
func (s *Service) SaleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}
