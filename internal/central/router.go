package central

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calderapos/register-edge/api/middleware"
	"github.com/calderapos/register-edge/api/responses"
	"github.com/calderapos/register-edge/api/validators"
	"github.com/calderapos/register-edge/pkg/auth"
	"github.com/calderapos/register-edge/pkg/config"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/types"
)

// NewRouter assembles the stub's HTTP surface. Every /api/v1 route requires a
// register token; the wire contract mirrors what the agent's sales client
// sends and expects back.
func NewRouter(cfg *config.Config, logg *logger.Logger, svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(registerAuth(cfg.JWT, logg))

		r.Post("/sales", recordSale(svc, logg))
		r.Route("/held-sales", func(r chi.Router) {
			r.Post("/", createHeld(svc, logg))
			r.Get("/{heldSaleId}", getHeld(svc, logg))
			r.Post("/{heldSaleId}/resume", resumeHeld(svc, logg))
		})
	})

	return r
}

func registerAuth(jwtCfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "register token required"))
				return
			}

			claims, err := auth.ParseRegisterToken(jwtCfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid register token"))
				return
			}

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRegisterID(ctx, claims.RegisterID)
			}
			ctx = middleware.WithRegisterID(ctx, claims.RegisterID)
			ctx = middleware.WithStoreID(ctx, claims.StoreID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type recordSaleResponse struct {
	SaleID    uuid.UUID `json:"sale_id"`
	Duplicate bool      `json:"duplicate"`
}

func recordSale(svc *Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload types.SalePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recorded, err := svc.RecordSale(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, recordSaleResponse{
			SaleID:    payload.SaleID,
			Duplicate: !recorded,
		})
	}
}

type createHeldRequest struct {
	StoreID    uuid.UUID        `json:"store_id" validate:"required"`
	Lines      []types.SaleLine `json:"lines" validate:"required,min=1"`
	CustomerID *uuid.UUID       `json:"customer_id"`
	Notes      string           `json:"notes"`
}

func createHeld(svc *Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createHeldRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		held, err := svc.CreateHeld(r.Context(), payload.StoreID, payload.Lines, payload.CustomerID, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, held)
	}
}

func getHeld(svc *Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := heldSaleIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		held, err := svc.GetHeld(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, held)
	}
}

type resumeHeldRequest struct {
	ExpectedVersion int64             `json:"expected_version" validate:"required,min=1"`
	Overwrite       bool              `json:"overwrite"`
	Sale            types.SalePayload `json:"sale" validate:"required"`
}

func resumeHeld(svc *Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := heldSaleIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resumeHeldRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResumeHeld(r.Context(), id, payload.ExpectedVersion, payload.Overwrite, payload.Sale); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recordSaleResponse{SaleID: payload.Sale.SaleID})
	}
}

func heldSaleIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "heldSaleId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid held sale id")
	}
	return id, nil
}
