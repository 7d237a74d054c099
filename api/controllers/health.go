package controllers

import (
	"net/http"

	"github.com/calderapos/register-edge/api/responses"
	"github.com/calderapos/register-edge/pkg/config"
	"github.com/calderapos/register-edge/pkg/db"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Caldera-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the local database only. Central being down is normal
// operation for an offline-first register, so it never gates readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Caldera-Env", cfg.App.Env)
		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "local database unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
