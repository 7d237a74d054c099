package held

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calderapos/register-edge/internal/cart"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/salesclient"
	"github.com/calderapos/register-edge/pkg/types"
)

type fakeCentral struct {
	held *types.HeldSale
	err  error
}

func (f *fakeCentral) FetchHeldSale(context.Context, uuid.UUID) (*types.HeldSale, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.held, nil
}

type fakeLoader struct {
	loaded *types.HeldSale
	err    error
}

func (f *fakeLoader) LoadHeld(_ context.Context, held *types.HeldSale) (*cart.View, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.loaded = held
	return &cart.View{Cart: cart.NewCart()}, nil
}

func newService(t *testing.T, central centralClient, loader heldLoader) Service {
	t.Helper()
	svc, err := NewService(central, loader, logger.New(logger.Options{ServiceName: "held-test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestResumeLoadsHeldIntoCart(t *testing.T) {
	held := &types.HeldSale{ID: uuid.New(), StoreID: uuid.New(), Version: 2, HeldAt: time.Now().UTC()}
	loader := &fakeLoader{}
	svc := newService(t, &fakeCentral{held: held}, loader)

	view, err := svc.Resume(context.Background(), held.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if view == nil {
		t.Fatalf("expected cart view")
	}
	if loader.loaded == nil || loader.loaded.ID != held.ID {
		t.Fatalf("expected held sale forwarded to cart")
	}
}

func TestResumeOfflineIsDependencyError(t *testing.T) {
	central := &fakeCentral{err: &salesclient.TransientError{Err: context.DeadlineExceeded}}
	svc := newService(t, central, &fakeLoader{})

	_, err := svc.Resume(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestGetMapsNotFound(t *testing.T) {
	central := &fakeCentral{err: &salesclient.ConflictError{StatusCode: http.StatusNotFound, Message: "no such ticket"}}
	svc := newService(t, central, &fakeLoader{})

	_, err := svc.Get(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestGetRequiresID(t *testing.T) {
	svc := newService(t, &fakeCentral{}, &fakeLoader{})

	_, err := svc.Get(context.Background(), uuid.Nil)
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
