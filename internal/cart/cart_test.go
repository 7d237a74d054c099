package cart

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCartTotalsWithDiscountsAndTax(t *testing.T) {
	c := NewCart()

	// Two lines at 10.00: one taxed at 8%, quantity 2 with a 50% line
	// discount, one untaxed at quantity 2.
	if err := c.AddLine(Line{
		ProductID:       uuid.New(),
		Name:            "Espresso Beans",
		Quantity:        4,
		UnitPrice:       dec("10.00"),
		DiscountPercent: dec("50"),
		TaxRate:         dec("8"),
	}); err != nil {
		t.Fatalf("add taxed line: %v", err)
	}
	if err := c.AddLine(Line{
		ProductID: uuid.New(),
		Name:      "Gift Card",
		Quantity:  1,
		UnitPrice: dec("10.00"),
	}); err != nil {
		t.Fatalf("add untaxed line: %v", err)
	}
	if err := c.SetOrderDiscount(dec("10")); err != nil {
		t.Fatalf("set order discount: %v", err)
	}

	totals := c.Totals()

	// Taxed line: 4 * 10.00 = 40.00, minus 50% = 20.00, tax 1.60.
	// Untaxed line: 10.00. Subtotal 30.00, order discount 3.00, tax 1.60...
	if !totals.Subtotal.Equal(dec("30.00")) {
		t.Errorf("expected subtotal 30.00, got %s", totals.Subtotal)
	}
	if !totals.OrderDiscountAmount.Equal(dec("3.00")) {
		t.Errorf("expected order discount 3.00, got %s", totals.OrderDiscountAmount)
	}
	if !totals.Tax.Equal(dec("1.60")) {
		t.Errorf("expected tax 1.60, got %s", totals.Tax)
	}
	if !totals.GrandTotal.Equal(dec("28.60")) {
		t.Errorf("expected grand total 28.60, got %s", totals.GrandTotal)
	}
}

func TestOrderDiscountDoesNotReduceTaxBasis(t *testing.T) {
	c := NewCart()

	if err := c.AddLine(Line{
		ProductID: uuid.New(),
		Name:      "House Blend",
		Quantity:  3,
		UnitPrice: dec("10.00"),
		TaxRate:   dec("8"),
	}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := c.SetOrderDiscount(dec("10")); err != nil {
		t.Fatalf("set order discount: %v", err)
	}

	totals := c.Totals()

	// Tax is 8% of the 30.00 subtotal, not of the discounted 27.00.
	if !totals.Tax.Equal(dec("2.40")) {
		t.Errorf("expected tax 2.40, got %s", totals.Tax)
	}
	if !totals.GrandTotal.Equal(dec("29.40")) {
		t.Errorf("expected grand total 29.40, got %s", totals.GrandTotal)
	}
}

func TestAddLineMergesSameProduct(t *testing.T) {
	c := NewCart()
	productID := uuid.New()

	line := Line{ProductID: productID, Name: "Latte", Quantity: 1, UnitPrice: dec("5.00")}
	if err := c.AddLine(line); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := c.AddLine(line); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(c.Lines) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(c.Lines))
	}
	if c.Lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", c.Lines[0].Quantity)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	c := NewCart()
	productID := uuid.New()

	if err := c.AddLine(Line{ProductID: productID, Name: "Mocha", Quantity: 2, UnitPrice: dec("6.00")}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := c.SetQuantity(productID, 0); err != nil {
		t.Fatalf("set quantity zero: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestRemoveLineIdempotent(t *testing.T) {
	c := NewCart()
	productID := uuid.New()

	if err := c.AddLine(Line{ProductID: productID, Name: "Flat White", Quantity: 1, UnitPrice: dec("4.50")}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := c.RemoveLine(productID); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	// Retrying the same remove must succeed, as must removing a product
	// that was never in the cart.
	if err := c.RemoveLine(productID); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if err := c.RemoveLine(uuid.New()); err != nil {
		t.Fatalf("remove absent product: %v", err)
	}
	if err := c.SetQuantity(uuid.New(), 0); err != nil {
		t.Fatalf("set quantity zero on absent product: %v", err)
	}
	if err := c.SetQuantity(uuid.New(), -1); err != nil {
		t.Fatalf("set negative quantity on absent product: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestSetNegativeQuantityRemovesLine(t *testing.T) {
	c := NewCart()
	productID := uuid.New()

	if err := c.AddLine(Line{ProductID: productID, Name: "Cortado", Quantity: 2, UnitPrice: dec("4.00")}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := c.SetQuantity(productID, -3); err != nil {
		t.Fatalf("set negative quantity: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected line removed")
	}
}

func TestCartValidation(t *testing.T) {
	c := NewCart()
	productID := uuid.New()
	if err := c.AddLine(Line{ProductID: productID, Name: "Scone", Quantity: 1, UnitPrice: dec("3.00")}); err != nil {
		t.Fatalf("seed line: %v", err)
	}

	cases := []struct {
		name string
		err  error
		code pkgerrors.Code
	}{
		{
			name: "missing product id",
			err:  c.AddLine(Line{Quantity: 1, UnitPrice: dec("1.00")}),
			code: pkgerrors.CodeValidation,
		},
		{
			name: "non-positive quantity",
			err:  c.AddLine(Line{ProductID: uuid.New(), Quantity: 0, UnitPrice: dec("1.00")}),
			code: pkgerrors.CodeValidation,
		},
		{
			name: "negative unit price",
			err:  c.AddLine(Line{ProductID: uuid.New(), Quantity: 1, UnitPrice: dec("-1.00")}),
			code: pkgerrors.CodeValidation,
		},
		{
			name: "discount above 100",
			err:  c.SetLineDiscount(productID, dec("101")),
			code: pkgerrors.CodeValidation,
		},
		{
			name: "negative order discount",
			err:  c.SetOrderDiscount(dec("-5")),
			code: pkgerrors.CodeValidation,
		},
		{
			name: "set quantity on unknown product",
			err:  c.SetQuantity(uuid.New(), 3),
			code: pkgerrors.CodeNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Fatalf("expected error")
			}
			appErr := pkgerrors.As(tc.err)
			if appErr == nil {
				t.Fatalf("expected typed error, got %v", tc.err)
			}
			if appErr.Code() != tc.code {
				t.Fatalf("expected code %s, got %s (%v)", tc.code, appErr.Code(), tc.err)
			}
		})
	}
}

func TestClearDropsHeldProvenance(t *testing.T) {
	c := NewCart()
	heldID := uuid.New()
	c.HeldSaleID = &heldID
	c.HeldVersion = 3
	if err := c.AddLine(Line{ProductID: uuid.New(), Name: "Tea", Quantity: 1, UnitPrice: dec("2.50")}); err != nil {
		t.Fatalf("add line: %v", err)
	}

	c.Clear()

	if !c.IsEmpty() {
		t.Errorf("expected empty cart")
	}
	if c.HeldSaleID != nil || c.HeldVersion != 0 {
		t.Errorf("expected held provenance cleared")
	}
	if !c.OrderDiscountPercent.IsZero() {
		t.Errorf("expected order discount reset")
	}
}

func TestFullLineDiscountZeroesTax(t *testing.T) {
	c := NewCart()

	if err := c.AddLine(Line{
		ProductID:       uuid.New(),
		Name:            "Comped Pastry",
		Quantity:        2,
		UnitPrice:       dec("3.75"),
		DiscountPercent: dec("100"),
		TaxRate:         dec("8.5"),
	}); err != nil {
		t.Fatalf("add line: %v", err)
	}

	totals := c.Totals()

	// A fully discounted line contributes nothing, including tax.
	if !totals.Subtotal.IsZero() {
		t.Errorf("expected zero subtotal, got %s", totals.Subtotal)
	}
	if !totals.Tax.IsZero() {
		t.Errorf("expected zero tax, got %s", totals.Tax)
	}
	if !totals.GrandTotal.IsZero() {
		t.Errorf("expected zero grand total, got %s", totals.GrandTotal)
	}
}

func TestTotalsIdentityRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		c := NewCart()
		lines := 1 + rng.Intn(6)
		for j := 0; j < lines; j++ {
			discount := decimal.NewFromInt(int64(rng.Intn(101)))
			if j == 0 && i%5 == 0 {
				discount = dec("100")
			}
			line := Line{
				ProductID:       uuid.New(),
				Name:            "Item",
				Quantity:        1 + rng.Intn(9),
				UnitPrice:       decimal.NewFromInt(int64(rng.Intn(10000))).Div(dec("100")),
				DiscountPercent: discount,
				TaxRate:         decimal.NewFromInt(int64(rng.Intn(26))),
			}
			if err := c.AddLine(line); err != nil {
				t.Fatalf("add line: %v", err)
			}
		}
		if err := c.SetOrderDiscount(decimal.NewFromInt(int64(rng.Intn(101)))); err != nil {
			t.Fatalf("set order discount: %v", err)
		}

		totals := c.Totals()

		// The order discount reduces the pre-tax subtotal only; tax stays
		// on the discounted line subtotals.
		var lineSubtotals, lineTax decimal.Decimal
		for _, l := range c.Lines {
			lineSubtotals = lineSubtotals.Add(l.Subtotal())
			lineTax = lineTax.Add(l.TaxAmount())
		}
		if !totals.Subtotal.Equal(lineSubtotals) {
			t.Fatalf("cart %d: expected subtotal %s, got %s", i, lineSubtotals, totals.Subtotal)
		}
		if !totals.Tax.Equal(lineTax) {
			t.Fatalf("cart %d: expected tax %s, got %s", i, lineTax, totals.Tax)
		}
		want := totals.Subtotal.Sub(totals.OrderDiscountAmount).Add(totals.Tax)
		if !totals.GrandTotal.Equal(want) {
			t.Fatalf("cart %d: expected grand total %s, got %s", i, want, totals.GrandTotal)
		}
		if totals.GrandTotal.IsNegative() {
			t.Fatalf("cart %d: negative grand total %s", i, totals.GrandTotal)
		}
	}
}

func TestLineRounding(t *testing.T) {
	line := Line{
		ProductID:       uuid.New(),
		Name:            "Bulk Beans",
		Quantity:        3,
		UnitPrice:       dec("1.99"),
		DiscountPercent: dec("33"),
		TaxRate:         dec("7.25"),
	}

	// 3 * 1.99 = 5.97; 33% discount = 1.9701; subtotal 4.00 after rounding.
	if !line.Subtotal().Equal(dec("4.00")) {
		t.Errorf("expected subtotal 4.00, got %s", line.Subtotal())
	}
	// 7.25% of 4.00 = 0.29.
	if !line.TaxAmount().Equal(dec("0.29")) {
		t.Errorf("expected tax 0.29, got %s", line.TaxAmount())
	}
	if !line.Total().Equal(dec("4.29")) {
		t.Errorf("expected total 4.29, got %s", line.Total())
	}
}
