package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/notification-hub/internal/engine"
	"github.com/Priya8975/notification-hub/internal/metrics"
	"github.com/Priya8975/notification-hub/internal/store"
	ws "github.com/Priya8975/notification-hub/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Dependencies are the components the HTTP API is built on.
type Dependencies struct {
	Registry store.Registry
	FanOut   *engine.FanOutEngine
	Breaker  *engine.CircuitBreaker
	Hub      *ws.Hub
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics. It is usually the registry Metrics was
	// registered with.
	Gatherer prometheus.Gatherer
	// DeliveryLog is nil when no database is configured; the delivery and
	// dead letter routes are then not mounted.
	DeliveryLog DeliveryLog
	Logger      *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler)

	subHandler := NewSubscriberHandler(deps.Registry, deps.Hub, deps.Metrics, deps.Logger)
	notifHandler := NewNotificationHandler(deps.FanOut, deps.Logger)

	dashHandler := NewDashboardHandler(deps.Registry, deps.FanOut, deps.Breaker, deps.Hub, deps.DeliveryLog, deps.Logger)

	r.Handle("/ws", deps.Hub)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(deps.Logger.Handler(), slog.LevelError),
	}))

	r.Route("/notification", func(r chi.Router) {
		r.Post("/subscribe/{topic}", subHandler.Subscribe)
		r.Post("/unsubscribe/{topic}", subHandler.Unsubscribe)
		r.Get("/subscribers/{topic}", subHandler.List)
		r.Delete("/subscribers/{topic}", subHandler.Clear)
		r.Get("/topics", subHandler.Topics)
		r.Post("/publish/{topic}", notifHandler.Publish)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(Version))
		r.Get("/stats", dashHandler.Stats)
		r.Get("/topics/{topic}/health", dashHandler.TopicHealth)

		if deps.DeliveryLog == nil {
			return
		}

		deliveryHandler := NewDeliveryHandler(deps.DeliveryLog, deps.Logger)
		dlqHandler := NewDeadLetterHandler(deps.DeliveryLog, deps.Logger)

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", deliveryHandler.List)
			r.Get("/{id}", deliveryHandler.Get)
		})

		r.Route("/dead-letters", func(r chi.Router) {
			r.Get("/", dlqHandler.List)
			r.Post("/{id}/resolve", dlqHandler.Resolve)
		})
	})

	return r
}
