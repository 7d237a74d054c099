package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Line is one product row in the working cart. Quantity and prices stay
// mutable until checkout freezes them into a sale payload.
type Line struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
}

// Subtotal is quantity * unit price less the line discount, rounded to cents.
func (l Line) Subtotal() decimal.Decimal {
	gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	discount := gross.Mul(l.DiscountPercent).Div(hundred)
	return gross.Sub(discount).Round(2)
}

// TaxAmount is computed on the discounted line subtotal. Order-level discounts
// do not reduce the tax basis.
func (l Line) TaxAmount() decimal.Decimal {
	return l.Subtotal().Mul(l.TaxRate).Div(hundred).Round(2)
}

// Total is the line subtotal plus its tax.
func (l Line) Total() decimal.Decimal {
	return l.Subtotal().Add(l.TaxAmount())
}

// Cart is the in-progress transaction on a register. At most one cart is
// active per register; a held-sale resume rehydrates it with provenance so
// checkout reconciles against the central ticket.
type Cart struct {
	Lines                []Line                  `json:"lines"`
	OrderDiscountPercent decimal.Decimal         `json:"order_discount_percent"`
	Customer             *types.CustomerSnapshot `json:"customer,omitempty"`
	Notes                string                  `json:"notes,omitempty"`
	HeldSaleID           *uuid.UUID              `json:"held_sale_id,omitempty"`
	HeldVersion          int64                   `json:"held_version,omitempty"`
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{OrderDiscountPercent: decimal.Zero}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) findLine(productID uuid.UUID) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// AddLine adds a product to the cart. Adding a product already present merges
// into the existing line by incrementing its quantity.
func (c *Cart) AddLine(line Line) error {
	if line.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if line.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if err := validatePercent(line.DiscountPercent, "line discount"); err != nil {
		return err
	}
	if line.TaxRate.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
	}

	if existing := c.findLine(line.ProductID); existing != nil {
		existing.Quantity += line.Quantity
		return nil
	}
	c.Lines = append(c.Lines, line)
	return nil
}

// RemoveLine drops a product from the cart entirely. Removing a product that
// is not in the cart is a no-op, so a retried delete cannot fail.
func (c *Cart) RemoveLine(productID uuid.UUID) error {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			break
		}
	}
	return nil
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero or
// less removes the line, with RemoveLine's idempotency.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return c.RemoveLine(productID)
	}
	line := c.findLine(productID)
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	line.Quantity = quantity
	return nil
}

// SetLinePrice overrides the unit price of an existing line.
func (c *Cart) SetLinePrice(productID uuid.UUID, unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	line := c.findLine(productID)
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	line.UnitPrice = unitPrice
	return nil
}

// SetLineDiscount applies a percentage discount to an existing line.
func (c *Cart) SetLineDiscount(productID uuid.UUID, percent decimal.Decimal) error {
	if err := validatePercent(percent, "line discount"); err != nil {
		return err
	}
	line := c.findLine(productID)
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	line.DiscountPercent = percent
	return nil
}

// SetOrderDiscount applies a percentage discount to the pre-tax subtotal.
func (c *Cart) SetOrderDiscount(percent decimal.Decimal) error {
	if err := validatePercent(percent, "order discount"); err != nil {
		return err
	}
	c.OrderDiscountPercent = percent
	return nil
}

// SetCustomer attaches or detaches the customer snapshot.
func (c *Cart) SetCustomer(customer *types.CustomerSnapshot) {
	c.Customer = customer
}

// SetNotes replaces the free-form cart notes.
func (c *Cart) SetNotes(notes string) {
	c.Notes = notes
}

// Clear resets the cart to its empty state, dropping held-sale provenance.
func (c *Cart) Clear() {
	*c = *NewCart()
}

// Totals derives the cart-level amounts. Tax accrues per line on the
// discounted line subtotal; the order discount reduces the pre-tax subtotal
// but never the tax basis.
func (c *Cart) Totals() types.SaleTotals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range c.Lines {
		subtotal = subtotal.Add(line.Subtotal())
		tax = tax.Add(line.TaxAmount())
	}

	orderDiscount := subtotal.Mul(c.OrderDiscountPercent).Div(hundred).Round(2)
	grand := subtotal.Sub(orderDiscount).Add(tax)

	return types.SaleTotals{
		Subtotal:            subtotal,
		OrderDiscountAmount: orderDiscount,
		Tax:                 tax,
		GrandTotal:          grand,
	}
}

func validatePercent(percent decimal.Decimal, label string) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, label+" must be between 0 and 100")
	}
	return nil
}
