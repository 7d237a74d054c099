package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/calderapos/register-edge/pkg/db/models"
	"github.com/calderapos/register-edge/pkg/enums"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/types"
)

type testSyncer struct {
	kicked int
}

func (s *testSyncer) SyncNow() {
	s.kicked++
}

func TestCheckoutQueuesSaleAndKicksSync(t *testing.T) {
	saleID := uuid.New()
	svc := &testCartService{
		checkoutFn: func(ctx context.Context, payments []types.SalePayment) (*models.QueuedSale, error) {
			if len(payments) != 1 {
				t.Fatalf("unexpected payment count %d", len(payments))
			}
			return &models.QueuedSale{ID: saleID, Status: enums.SaleSyncStatusPending}, nil
		},
	}
	syncer := &testSyncer{}

	body := `{"payments":[{"method":"cash","amount":"28.60"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	resp := httptest.NewRecorder()

	Checkout(svc, syncer, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if syncer.kicked != 1 {
		t.Fatalf("expected one sync kick, got %d", syncer.kicked)
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.SaleID != saleID.String() {
		t.Fatalf("unexpected sale id %s", envelope.Data.SaleID)
	}
	if envelope.Data.Status != "pending" {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestCheckoutRequiresPayments(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payments":[]}`))
	resp := httptest.NewRecorder()

	Checkout(&testCartService{}, &testSyncer{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestCheckoutEmptyCartMapsToValidation(t *testing.T) {
	svc := &testCartService{
		checkoutFn: func(ctx context.Context, payments []types.SalePayment) (*models.QueuedSale, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		},
	}
	syncer := &testSyncer{}

	body := `{"payments":[{"method":"cash","amount":"1.00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	resp := httptest.NewRecorder()

	Checkout(svc, syncer, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if syncer.kicked != 0 {
		t.Fatal("sync must not be kicked when checkout fails")
	}
}
