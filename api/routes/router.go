package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karimzem/fulfillment-backend/api/controllers"
	"github.com/karimzem/fulfillment-backend/api/middleware"
	"github.com/karimzem/fulfillment-backend/internal/assignment"
	"github.com/karimzem/fulfillment-backend/internal/notifications"
	"github.com/karimzem/fulfillment-backend/internal/shipping"
	ordersync "github.com/karimzem/fulfillment-backend/internal/sync"
	"github.com/karimzem/fulfillment-backend/internal/syncpos"
	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            pinger
	Redis         pinger
	Assignment    assignment.Service
	Sync          ordersync.Service
	Shipping      shipping.Service
	Positions     *syncpos.Store
	Notifications notifications.Repository
	Metrics       prometheus.Gatherer
}

// NewRouter builds the API's route tree.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/assign-batch", controllers.AssignOrdersBatch(params.Assignment, logg))
			r.Post("/auto-assign", controllers.AutoAssign(params.Assignment, logg))
			r.Post("/{orderId}/assign", controllers.AssignOrder(params.Assignment, logg))
			r.Post("/{orderId}/manual-assign", controllers.ManualAssign(params.Assignment, logg))
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/stats", controllers.AssignmentStats(params.Assignment, logg))
			r.Post("/{agentId}/redistribute", controllers.Redistribute(params.Assignment, logg))
			r.Route("/{agentId}/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(params.Notifications, logg))
				r.Post("/read", controllers.MarkNotificationsRead(params.Notifications, logg))
			})
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/run", controllers.SyncAll(params.Sync, logg))
			r.Get("/positions", controllers.SyncPositions(params.Positions, cfg.Sync.ActiveStores, logg))
			r.Post("/{store}", controllers.SyncStore(params.Sync, logg))
		})

		r.Post("/shipping/refresh", controllers.RefreshShipping(params.Shipping, logg))
	})

	return r
}
