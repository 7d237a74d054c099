package controllers

import (
	"net/http"

	"github.com/calderapos/register-edge/api/responses"
	"github.com/calderapos/register-edge/api/validators"
	"github.com/calderapos/register-edge/internal/queue"
	"github.com/calderapos/register-edge/pkg/enums"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
)

type resolveConflictRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=overwrite skip manual"`
}

type retryResponse struct {
	Retried int `json:"retried"`
}

// QueueList returns queued sales oldest first, optionally filtered by the
// ?status= query parameter.
func QueueList(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") == string(enums.QueuedSaleTypeResumeHeld) {
			rows, err := store.ListHeldResumes(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
			return
		}

		var filter *enums.SaleSyncStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseSaleSyncStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter = &status
		}

		rows, err := store.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func QueueDetail(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := store.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// QueueRetryFailed moves every failed entry back to pending immediately,
// skipping its backoff window, then kicks a drain pass.
func QueueRetryFailed(store *queue.Store, syncer interface{ SyncNow() }, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		retried, err := store.RetryAllFailed(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if retried > 0 && syncer != nil {
			syncer.SyncNow()
		}
		responses.WriteSuccess(w, retryResponse{Retried: retried})
	}
}

// QueueRetry requeues a single failed entry and kicks a drain pass.
func QueueRetry(store *queue.Store, syncer interface{ SyncNow() }, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := store.Retry(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if syncer != nil {
			syncer.SyncNow()
		}
		responses.WriteSuccess(w, entry)
	}
}

// QueueRemove permanently deletes an entry. This is the operator's explicit
// dismissal; nothing else deletes queued financial data.
func QueueRemove(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.Remove(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"removed": id.String()})
	}
}

// QueueResolveConflict applies the operator's decision to a conflicted entry.
func QueueResolveConflict(store *queue.Store, syncer interface{ SyncNow() }, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveConflictRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolution, err := enums.ParseConflictResolution(payload.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution"))
			return
		}

		entry, err := store.ResolveConflict(r.Context(), id, resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if resolution == enums.ConflictResolutionOverwrite && syncer != nil {
			syncer.SyncNow()
		}
		if entry == nil {
			// A skip removes the entry; there is nothing left to return.
			responses.WriteSuccess(w, map[string]string{"resolution": string(resolution)})
			return
		}
		responses.WriteSuccess(w, entry)
	}
}
