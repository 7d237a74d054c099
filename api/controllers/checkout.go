package controllers

import (
	"net/http"

	"github.com/calderapos/register-edge/api/responses"
	"github.com/calderapos/register-edge/api/validators"
	cartsvc "github.com/calderapos/register-edge/internal/cart"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/types"
)

type checkoutRequest struct {
	Payments []types.SalePayment `json:"payments" validate:"required,min=1"`
}

type checkoutResponse struct {
	SaleID string `json:"sale_id"`
	Status string `json:"status"`
}

// Checkout freezes the cart into an immutable sale and queues it for sync.
// The sale is durable locally before the response is written; no network
// round trip happens on this path.
func Checkout(svc cartsvc.Service, syncer interface{ SyncNow() }, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Checkout(r.Context(), payload.Payments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if syncer != nil {
			syncer.SyncNow()
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			SaleID: entry.ID.String(),
			Status: string(entry.Status),
		})
	}
}
