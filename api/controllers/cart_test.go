package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/calderapos/register-edge/internal/cart"
	"github.com/calderapos/register-edge/pkg/db/models"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/types"
)

type testCartService struct {
	addLineFn     func(ctx context.Context, line cartsvc.Line) (*cartsvc.View, error)
	removeLineFn  func(ctx context.Context, productID uuid.UUID) (*cartsvc.View, error)
	setQuantityFn func(ctx context.Context, productID uuid.UUID, quantity int) (*cartsvc.View, error)
	checkoutFn    func(ctx context.Context, payments []types.SalePayment) (*models.QueuedSale, error)
}

func (s *testCartService) View(ctx context.Context) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) AddLine(ctx context.Context, line cartsvc.Line) (*cartsvc.View, error) {
	if s.addLineFn != nil {
		return s.addLineFn(ctx, line)
	}
	return emptyView(), nil
}

func (s *testCartService) RemoveLine(ctx context.Context, productID uuid.UUID) (*cartsvc.View, error) {
	if s.removeLineFn != nil {
		return s.removeLineFn(ctx, productID)
	}
	return emptyView(), nil
}

func (s *testCartService) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*cartsvc.View, error) {
	if s.setQuantityFn != nil {
		return s.setQuantityFn(ctx, productID, quantity)
	}
	return emptyView(), nil
}

func (s *testCartService) SetLinePrice(ctx context.Context, productID uuid.UUID, unitPrice decimal.Decimal) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) SetLineDiscount(ctx context.Context, productID uuid.UUID, percent decimal.Decimal) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) SetOrderDiscount(ctx context.Context, percent decimal.Decimal) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) SetCustomer(ctx context.Context, customer *types.CustomerSnapshot) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) SetNotes(ctx context.Context, notes string) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) Clear(ctx context.Context) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) LoadHeld(ctx context.Context, held *types.HeldSale) (*cartsvc.View, error) {
	return emptyView(), nil
}

func (s *testCartService) Checkout(ctx context.Context, payments []types.SalePayment) (*models.QueuedSale, error) {
	if s.checkoutFn != nil {
		return s.checkoutFn(ctx, payments)
	}
	return &models.QueuedSale{ID: uuid.New()}, nil
}

func emptyView() *cartsvc.View {
	return &cartsvc.View{Cart: cartsvc.NewCart()}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestCartAddLineSuccess(t *testing.T) {
	productID := uuid.New()
	called := false
	svc := &testCartService{
		addLineFn: func(ctx context.Context, line cartsvc.Line) (*cartsvc.View, error) {
			called = true
			if line.ProductID != productID {
				t.Fatalf("unexpected product %s", line.ProductID)
			}
			if line.Quantity != 3 {
				t.Fatalf("unexpected quantity %d", line.Quantity)
			}
			return emptyView(), nil
		},
	}

	body := `{"product_id":"` + productID.String() + `","name":"Widget","quantity":3,"unit_price":"9.99"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CartAddLine(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestCartAddLineRejectsUnknownFields(t *testing.T) {
	body := `{"product_id":"` + uuid.NewString() + `","name":"Widget","quantity":1,"unit_price":"1.00","bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CartAddLine(&testCartService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestCartAddLineRequiresQuantity(t *testing.T) {
	body := `{"product_id":"` + uuid.NewString() + `","name":"Widget","unit_price":"1.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CartAddLine(&testCartService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestCartRemoveLineParsesPathParam(t *testing.T) {
	productID := uuid.New()
	var got uuid.UUID
	svc := &testCartService{
		removeLineFn: func(ctx context.Context, id uuid.UUID) (*cartsvc.View, error) {
			got = id
			return emptyView(), nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/lines/"+productID.String(), nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", productID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()

	CartRemoveLine(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got != productID {
		t.Fatalf("unexpected product %s", got)
	}
}

func TestCartSetQuantityPassesNegativeThrough(t *testing.T) {
	productID := uuid.New()
	var got int
	svc := &testCartService{
		setQuantityFn: func(ctx context.Context, id uuid.UUID, quantity int) (*cartsvc.View, error) {
			got = quantity
			return emptyView(), nil
		},
	}

	// Negative quantities are not a request error; the cart treats them as
	// a removal.
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/lines/"+productID.String()+"/quantity", strings.NewReader(`{"quantity":-2}`))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", productID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()

	CartSetQuantity(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got != -2 {
		t.Fatalf("unexpected quantity %d", got)
	}
}

func TestCartRemoveLineRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/lines/not-a-uuid", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()

	CartRemoveLine(&testCartService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
