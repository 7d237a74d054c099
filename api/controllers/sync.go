package controllers

import (
	"net/http"

	"github.com/calderapos/register-edge/api/responses"
	syncengine "github.com/calderapos/register-edge/internal/sync"
	"github.com/calderapos/register-edge/pkg/logger"
)

// SyncStatus reports connectivity, last successful drain, and queue depth by
// status.
func SyncStatus(engine *syncengine.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := engine.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// SyncNow kicks an immediate drain pass. The drain itself runs on the
// engine's goroutine; this returns as soon as the request is registered.
func SyncNow(engine *syncengine.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.SyncNow()
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "requested"})
	}
}
