package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calderapos/register-edge/api/controllers"
	"github.com/calderapos/register-edge/api/middleware"
	cartsvc "github.com/calderapos/register-edge/internal/cart"
	heldsvc "github.com/calderapos/register-edge/internal/held"
	"github.com/calderapos/register-edge/internal/queue"
	syncengine "github.com/calderapos/register-edge/internal/sync"
	"github.com/calderapos/register-edge/pkg/config"
	"github.com/calderapos/register-edge/pkg/db"
	"github.com/calderapos/register-edge/pkg/logger"
)

// NewRouter assembles the agent's local HTTP surface. It is bound to
// loopback in production; the register UI is its only client.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	registry *prometheus.Registry,
	cartService cartsvc.Service,
	queueStore *queue.Store,
	engine *syncengine.Engine,
	heldService heldsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})
	r.Get("/healthz", controllers.HealthLive(cfg))

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", controllers.Ping())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/lines", controllers.CartAddLine(cartService, logg))
			r.Delete("/lines/{productId}", controllers.CartRemoveLine(cartService, logg))
			r.Put("/lines/{productId}/quantity", controllers.CartSetQuantity(cartService, logg))
			r.Put("/lines/{productId}/price", controllers.CartSetLinePrice(cartService, logg))
			r.Put("/lines/{productId}/discount", controllers.CartSetLineDiscount(cartService, logg))
			r.Put("/discount", controllers.CartSetOrderDiscount(cartService, logg))
			r.Put("/customer", controllers.CartSetCustomer(cartService, logg))
			r.Put("/notes", controllers.CartSetNotes(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(cartService, engine, logg))

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", controllers.QueueList(queueStore, logg))
			r.Get("/{saleId}", controllers.QueueDetail(queueStore, logg))
			r.Post("/retry-failed", controllers.QueueRetryFailed(queueStore, engine, logg))
			r.Post("/{saleId}/retry", controllers.QueueRetry(queueStore, engine, logg))
			r.Post("/{saleId}/resolve", controllers.QueueResolveConflict(queueStore, engine, logg))
			r.Delete("/{saleId}", controllers.QueueRemove(queueStore, logg))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", controllers.SyncStatus(engine, logg))
			r.Post("/now", controllers.SyncNow(engine, logg))
		})

		r.Route("/held-sales", func(r chi.Router) {
			r.Get("/{heldSaleId}", controllers.HeldDetail(heldService, logg))
			r.Post("/{heldSaleId}/resume", controllers.HeldResume(heldService, logg))
		})
	})

	return r
}
