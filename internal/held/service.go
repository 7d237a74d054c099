package held

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/calderapos/register-edge/internal/cart"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/salesclient"
	"github.com/calderapos/register-edge/pkg/types"
)

type centralClient interface {
	FetchHeldSale(ctx context.Context, heldSaleID uuid.UUID) (*types.HeldSale, error)
}

type heldLoader interface {
	LoadHeld(ctx context.Context, held *types.HeldSale) (*cart.View, error)
}

// Service bridges central held sales into the local cart. Resuming needs
// connectivity (the ticket lives on central); the checkout that follows does
// not, because the finalization is queued like any other sale.
type Service interface {
	Get(ctx context.Context, heldSaleID uuid.UUID) (*types.HeldSale, error)
	Resume(ctx context.Context, heldSaleID uuid.UUID) (*cart.View, error)
}

type service struct {
	central centralClient
	carts   heldLoader
	logger  *logger.Logger
}

// NewService builds the held-sale bridge.
func NewService(central centralClient, carts heldLoader, logg *logger.Logger) (Service, error) {
	if central == nil {
		return nil, fmt.Errorf("central client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{central: central, carts: carts, logger: logg}, nil
}

func (s *service) Get(ctx context.Context, heldSaleID uuid.UUID) (*types.HeldSale, error) {
	if heldSaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "held sale id required")
	}

	held, err := s.central.FetchHeldSale(ctx, heldSaleID)
	if err != nil {
		return nil, mapCentralError(err)
	}
	return held, nil
}

func (s *service) Resume(ctx context.Context, heldSaleID uuid.UUID) (*cart.View, error) {
	held, err := s.Get(ctx, heldSaleID)
	if err != nil {
		return nil, err
	}

	view, err := s.carts.LoadHeld(ctx, held)
	if err != nil {
		return nil, err
	}

	s.logger.Info(
		s.logger.WithField(ctx, "held_sale_id", heldSaleID.String()),
		"held sale resumed into cart",
	)
	return view, nil
}

func mapCentralError(err error) error {
	if salesclient.IsTransient(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "central is unreachable; resuming a held sale requires connectivity")
	}
	if ce, ok := salesclient.AsConflict(err); ok && ce.StatusCode == 404 {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "held sale not found")
	}
	return err
}
