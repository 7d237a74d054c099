package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderapos/register-edge/pkg/config"
	"github.com/calderapos/register-edge/pkg/db/models"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/types"
)

type saleEnqueuer interface {
	EnqueueSale(ctx context.Context, payload types.SalePayload, customer *types.CustomerSnapshot) (*models.QueuedSale, error)
	EnqueueHeldResume(ctx context.Context, heldSaleID uuid.UUID, expectedVersion int64, payload types.SalePayload, customer *types.CustomerSnapshot) (*models.QueuedSale, error)
}

// View is the cart state returned to callers, with derived totals attached.
type View struct {
	Cart   *Cart            `json:"cart"`
	Totals types.SaleTotals `json:"totals"`
}

// Service exposes the register's single working cart. All mutations persist a
// durable snapshot so an in-progress transaction survives restart.
type Service interface {
	View(ctx context.Context) (*View, error)
	AddLine(ctx context.Context, line Line) (*View, error)
	RemoveLine(ctx context.Context, productID uuid.UUID) (*View, error)
	SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*View, error)
	SetLinePrice(ctx context.Context, productID uuid.UUID, unitPrice decimal.Decimal) (*View, error)
	SetLineDiscount(ctx context.Context, productID uuid.UUID, percent decimal.Decimal) (*View, error)
	SetOrderDiscount(ctx context.Context, percent decimal.Decimal) (*View, error)
	SetCustomer(ctx context.Context, customer *types.CustomerSnapshot) (*View, error)
	SetNotes(ctx context.Context, notes string) (*View, error)
	Clear(ctx context.Context) (*View, error)
	LoadHeld(ctx context.Context, held *types.HeldSale) (*View, error)
	Checkout(ctx context.Context, payments []types.SalePayment) (*models.QueuedSale, error)
}

type service struct {
	mu         sync.Mutex
	cart       *Cart
	snapshots  *SnapshotStore
	queue      saleEnqueuer
	registerID uuid.UUID
	storeID    uuid.UUID
	logger     *logger.Logger
	now        func() time.Time
}

// NewService restores the persisted cart and wires the checkout path into the
// offline queue.
func NewService(ctx context.Context, snapshots *SnapshotStore, queue saleEnqueuer, reg config.RegisterConfig, logg *logger.Logger) (Service, error) {
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	if queue == nil {
		return nil, fmt.Errorf("sale enqueuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	registerID, err := uuid.Parse(reg.ID)
	if err != nil {
		return nil, fmt.Errorf("register id must be a uuid: %w", err)
	}
	storeID, err := uuid.Parse(reg.StoreID)
	if err != nil {
		return nil, fmt.Errorf("store id must be a uuid: %w", err)
	}

	restored, err := snapshots.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !restored.IsEmpty() {
		logg.Info(ctx, "restored in-progress cart from snapshot")
	}

	return &service{
		cart:       restored,
		snapshots:  snapshots,
		queue:      queue,
		registerID: registerID,
		storeID:    storeID,
		logger:     logg,
		now:        time.Now,
	}, nil
}

func (s *service) View(ctx context.Context) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

func (s *service) AddLine(ctx context.Context, line Line) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error { return c.AddLine(line) })
}

func (s *service) RemoveLine(ctx context.Context, productID uuid.UUID) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error { return c.RemoveLine(productID) })
}

func (s *service) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error { return c.SetQuantity(productID, quantity) })
}

func (s *service) SetLinePrice(ctx context.Context, productID uuid.UUID, unitPrice decimal.Decimal) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error { return c.SetLinePrice(productID, unitPrice) })
}

func (s *service) SetLineDiscount(ctx context.Context, productID uuid.UUID, percent decimal.Decimal) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error { return c.SetLineDiscount(productID, percent) })
}

func (s *service) SetOrderDiscount(ctx context.Context, percent decimal.Decimal) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error { return c.SetOrderDiscount(percent) })
}

func (s *service) SetCustomer(ctx context.Context, customer *types.CustomerSnapshot) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error {
		c.SetCustomer(customer)
		return nil
	})
}

func (s *service) SetNotes(ctx context.Context, notes string) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error {
		c.SetNotes(notes)
		return nil
	})
}

func (s *service) Clear(ctx context.Context) (*View, error) {
	return s.mutate(ctx, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

// LoadHeld rehydrates the cart from a central held-sale snapshot. The cart
// must be empty so a resume never silently merges into an unrelated sale.
func (s *service) LoadHeld(ctx context.Context, held *types.HeldSale) (*View, error) {
	if held == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "held sale required")
	}
	if held.FinalSale != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "held sale already finalized")
	}

	return s.mutate(ctx, func(c *Cart) error {
		if !c.IsEmpty() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart must be empty before resuming a held sale")
		}

		c.Clear()
		for _, line := range held.Lines {
			if err := c.AddLine(Line{
				ProductID:       line.ProductID,
				Name:            line.Name,
				SKU:             line.SKU,
				Quantity:        line.Quantity,
				UnitPrice:       line.UnitPrice,
				DiscountPercent: line.LineDiscountPercent,
				TaxRate:         line.TaxRate,
			}); err != nil {
				return err
			}
		}
		if held.CustomerID != nil {
			c.SetCustomer(&types.CustomerSnapshot{CustomerID: *held.CustomerID})
		}
		c.SetNotes(held.Notes)
		heldID := held.ID
		c.HeldSaleID = &heldID
		c.HeldVersion = held.Version
		return nil
	})
}

// Checkout freezes the cart into an immutable sale payload, durably enqueues
// it, and only then clears the cart. A failed enqueue leaves the cart intact.
func (s *service) Checkout(ctx context.Context, payments []types.SalePayment) (*models.QueuedSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot check out an empty cart")
	}

	totals := s.cart.Totals()
	if err := validatePayments(payments, totals.GrandTotal); err != nil {
		return nil, err
	}

	payload := s.freeze(payments, totals)
	ctx = s.logger.WithSaleID(ctx, payload.SaleID.String())

	var (
		entry *models.QueuedSale
		err   error
	)
	if s.cart.HeldSaleID != nil {
		entry, err = s.queue.EnqueueHeldResume(ctx, *s.cart.HeldSaleID, s.cart.HeldVersion, payload, s.cart.Customer)
	} else {
		entry, err = s.queue.EnqueueSale(ctx, payload, s.cart.Customer)
	}
	if err != nil {
		return nil, err
	}

	s.cart.Clear()
	if err := s.snapshots.Save(ctx, s.cart); err != nil {
		// The sale is already durably queued; only the cleared-cart snapshot
		// is stale. Surface it so the operator knows local storage is unwell.
		return entry, fmt.Errorf("sale queued but clearing cart snapshot failed: %w", err)
	}

	s.logger.Info(ctx, "sale captured to offline queue")
	return entry, nil
}

func (s *service) freeze(payments []types.SalePayment, totals types.SaleTotals) types.SalePayload {
	lines := make([]types.SaleLine, 0, len(s.cart.Lines))
	for _, line := range s.cart.Lines {
		lines = append(lines, types.SaleLine{
			ProductID:           line.ProductID,
			Name:                line.Name,
			SKU:                 line.SKU,
			Quantity:            line.Quantity,
			UnitPrice:           line.UnitPrice,
			LineDiscountPercent: line.DiscountPercent,
			TaxRate:             line.TaxRate,
			Subtotal:            line.Subtotal(),
			TaxAmount:           line.TaxAmount(),
			Total:               line.Total(),
		})
	}

	payload := types.SalePayload{
		SaleID:               uuid.New(),
		StoreID:              s.storeID,
		RegisterID:           s.registerID,
		HeldSaleID:           s.cart.HeldSaleID,
		Lines:                lines,
		Payments:             payments,
		Totals:               totals,
		OrderDiscountPercent: s.cart.OrderDiscountPercent,
		Notes:                s.cart.Notes,
		CapturedAt:           s.now().UTC(),
	}
	if s.cart.Customer != nil {
		customerID := s.cart.Customer.CustomerID
		payload.CustomerID = &customerID
	}
	return payload
}

func (s *service) mutate(ctx context.Context, fn func(*Cart) error) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.cart); err != nil {
		return nil, err
	}
	if err := s.snapshots.Save(ctx, s.cart); err != nil {
		return nil, err
	}
	return s.view(), nil
}

// view deep-copies the cart so callers never share the mutable slice.
func (s *service) view() *View {
	clone := *s.cart
	clone.Lines = append([]Line(nil), s.cart.Lines...)
	return &View{Cart: &clone, Totals: s.cart.Totals()}
}

func validatePayments(payments []types.SalePayment, grandTotal decimal.Decimal) error {
	if len(payments) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one payment required")
	}

	tendered := decimal.Zero
	for _, p := range payments {
		if !p.Method.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", p.Method))
		}
		if !p.Amount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment amounts must be positive")
		}
		tendered = tendered.Add(p.Amount)
	}

	if !tendered.Equal(grandTotal) {
		return pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("payments total %s does not match grand total %s", tendered, grandTotal),
		)
	}
	return nil
}
