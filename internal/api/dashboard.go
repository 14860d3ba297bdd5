package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/engine"
	"github.com/Priya8975/notification-hub/internal/store"
	ws "github.com/Priya8975/notification-hub/internal/websocket"
	"github.com/go-chi/chi/v5"
)

// StatsSource supplies the aggregated delivery log figures.
type StatsSource interface {
	GetDeliveryStats(ctx context.Context) (*store.DeliveryStats, error)
}

type DashboardHandler struct {
	registry store.Registry
	fanout   *engine.FanOutEngine
	cb       *engine.CircuitBreaker
	hub      *ws.Hub
	stats    StatsSource
	logger   *slog.Logger
}

func NewDashboardHandler(reg store.Registry, f *engine.FanOutEngine, cb *engine.CircuitBreaker, hub *ws.Hub, stats StatsSource, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{registry: reg, fanout: f, cb: cb, hub: hub, stats: stats, logger: logger}
}

type statsResponse struct {
	QueueDepth       int64                `json:"queue_depth"`
	WebSocketClients int                  `json:"websocket_clients"`
	Topics           int                  `json:"topics"`
	Deliveries       *store.DeliveryStats `json:"deliveries,omitempty"`
}

// Stats returns queue and registry figures, plus delivery log statistics
// when the log is enabled.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	topics, err := h.registry.Topics(ctx)
	if err != nil {
		h.logger.Error("failed to list topics", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	queueDepth, err := h.fanout.QueueDepth(ctx)
	if err != nil {
		h.logger.Warn("failed to read queue depth", "error", err)
		queueDepth = 0
	}

	resp := statsResponse{
		QueueDepth:       queueDepth,
		WebSocketClients: h.hub.ClientCount(),
		Topics:           len(topics),
	}

	if h.stats != nil {
		resp.Deliveries, err = h.stats.GetDeliveryStats(ctx)
		if err != nil {
			h.logger.Error("failed to get delivery stats", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to get stats")
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

type subscriberHealth struct {
	URL            string               `json:"url"`
	Name           string               `json:"name"`
	CircuitBreaker engine.BreakerStatus `json:"circuit_breaker"`
}

type topicHealthResponse struct {
	Topic       string             `json:"topic"`
	Subscribers []subscriberHealth `json:"subscribers"`
}

// TopicHealth reports the circuit breaker of every subscriber of a topic.
func (h *DashboardHandler) TopicHealth(w http.ResponseWriter, r *http.Request) {
	topic, err := domain.NormalizeTopic(chi.URLParam(r, "topic"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	subscribers, err := h.registry.Subscribers(r.Context(), topic)
	if err != nil {
		h.logger.Error("failed to list subscribers", "error", err, "topic", topic)
		respondError(w, http.StatusInternalServerError, "failed to list subscribers")
		return
	}

	result := make([]subscriberHealth, 0, len(subscribers))
	for _, sub := range subscribers {
		result = append(result, subscriberHealth{
			URL:            sub.URL,
			Name:           sub.Name,
			CircuitBreaker: h.cb.Status(r.Context(), sub.URL),
		})
	}

	respondJSON(w, http.StatusOK, topicHealthResponse{Topic: topic, Subscribers: result})
}
