package controllers

import (
	"net/http"

	"github.com/calderapos/register-edge/api/responses"
	heldsvc "github.com/calderapos/register-edge/internal/held"
	"github.com/calderapos/register-edge/pkg/logger"
)

// HeldDetail fetches a held ticket from central. Requires connectivity.
func HeldDetail(svc heldsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "heldSaleId", "held sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		held, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, held)
	}
}

// HeldResume pulls the ticket into the local cart. The cart must be empty and
// the ticket not already finalized.
func HeldResume(svc heldsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "heldSaleId", "held sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Resume(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
