package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderapos/register-edge/pkg/enums"
)

// SaleLine is one frozen line item inside a sale payload.
type SaleLine struct {
	ProductID           uuid.UUID       `json:"product_id"`
	Name                string          `json:"name"`
	SKU                 string          `json:"sku,omitempty"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	LineDiscountPercent decimal.Decimal `json:"line_discount_percent"`
	TaxRate             decimal.Decimal `json:"tax_rate"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	Total               decimal.Decimal `json:"total"`
}

// SalePayment is one tender applied to a sale.
type SalePayment struct {
	Method enums.PaymentMethod `json:"method"`
	Amount decimal.Decimal     `json:"amount"`
}

// SaleTotals carries the cart-level derived amounts at checkout time.
type SaleTotals struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	OrderDiscountAmount decimal.Decimal `json:"order_discount_amount"`
	Tax                 decimal.Decimal `json:"tax"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
}

// CustomerSnapshot is denormalized customer display data captured at enqueue
// time so the register UI can render a queued sale without network access.
type CustomerSnapshot struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
}

// SalePayload is the immutable snapshot submitted to the central sales API.
// It is frozen when the sale is enqueued and never mutated afterwards.
type SalePayload struct {
	SaleID               uuid.UUID       `json:"sale_id"`
	StoreID              uuid.UUID       `json:"store_id"`
	RegisterID           uuid.UUID       `json:"register_id"`
	CustomerID           *uuid.UUID      `json:"customer_id,omitempty"`
	HeldSaleID           *uuid.UUID      `json:"held_sale_id,omitempty"`
	Lines                []SaleLine      `json:"lines"`
	Payments             []SalePayment   `json:"payments"`
	Totals               SaleTotals      `json:"totals"`
	OrderDiscountPercent decimal.Decimal `json:"order_discount_percent"`
	Notes                string          `json:"notes,omitempty"`
	CapturedAt           time.Time       `json:"captured_at"`
}

// HeldSale mirrors the central record a resume_held entry reconciles against.
type HeldSale struct {
	ID         uuid.UUID  `json:"id"`
	StoreID    uuid.UUID  `json:"store_id"`
	Version    int64      `json:"version"`
	Lines      []SaleLine `json:"lines"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	HeldAt     time.Time  `json:"held_at"`
	FinalSale  *uuid.UUID `json:"final_sale_id,omitempty"`
}
