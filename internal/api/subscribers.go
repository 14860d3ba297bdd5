package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/metrics"
	"github.com/Priya8975/notification-hub/internal/store"
	"github.com/Priya8975/notification-hub/internal/validation"
	ws "github.com/Priya8975/notification-hub/internal/websocket"
	"github.com/go-chi/chi/v5"
)

type SubscriberHandler struct {
	registry store.Registry
	hub      *ws.Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewSubscriberHandler(reg store.Registry, hub *ws.Hub, m *metrics.Metrics, logger *slog.Logger) *SubscriberHandler {
	return &SubscriberHandler{registry: reg, hub: hub, metrics: m, logger: logger}
}

// Subscribe registers the subscriber in the request body for the topic.
// Subscribing the same URL again replaces its name.
func (h *SubscriberHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	topic, err := domain.NormalizeTopic(chi.URLParam(r, "topic"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := domain.DecodeSubscriber(body)
	if err == nil {
		err = validation.Struct(sub)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.registry.Subscribe(r.Context(), topic, sub)
	if err != nil {
		h.logger.Error("failed to subscribe", "error", err, "topic", topic, "subscriber_url", sub.URL)
		respondError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	sub = stored

	h.metrics.SubscriptionChanges.WithLabelValues("subscribe").Inc()
	h.hub.Broadcast(ws.FeedEvent{
		Type:           ws.EventSubscribed,
		Topic:          topic,
		SubscriberURL:  sub.URL,
		SubscriberName: sub.Name,
	})
	h.logger.Info("subscriber added", "topic", topic, "subscriber_url", sub.URL, "subscriber_name", sub.Name)

	respondJSON(w, http.StatusCreated, sub)
}

// Unsubscribe removes the subscriber identified by the url query parameter.
func (h *SubscriberHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	topic, err := domain.NormalizeTopic(chi.URLParam(r, "topic"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		respondError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	removed, err := h.registry.Unsubscribe(r.Context(), topic, url)
	if err != nil {
		h.logger.Error("failed to unsubscribe", "error", err, "topic", topic, "subscriber_url", url)
		respondError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}
	if removed == nil {
		respondError(w, http.StatusNotFound, "subscriber not found")
		return
	}

	h.metrics.SubscriptionChanges.WithLabelValues("unsubscribe").Inc()
	h.hub.Broadcast(ws.FeedEvent{
		Type:           ws.EventUnsubscribe,
		Topic:          topic,
		SubscriberURL:  removed.URL,
		SubscriberName: removed.Name,
	})
	h.logger.Info("subscriber removed", "topic", topic, "subscriber_url", removed.URL)

	respondJSON(w, http.StatusOK, removed)
}

func (h *SubscriberHandler) List(w http.ResponseWriter, r *http.Request) {
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
	if subscribers == nil {
		subscribers = []domain.Subscriber{}
	}

	respondJSON(w, http.StatusOK, subscribers)
}

type clearResponse struct {
	Removed int `json:"removed"`
}

// Clear drops every subscriber of the topic.
func (h *SubscriberHandler) Clear(w http.ResponseWriter, r *http.Request) {
	topic, err := domain.NormalizeTopic(chi.URLParam(r, "topic"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.registry.Clear(r.Context(), topic)
	if err != nil {
		h.logger.Error("failed to clear topic", "error", err, "topic", topic)
		respondError(w, http.StatusInternalServerError, "failed to clear topic")
		return
	}

	if n > 0 {
		h.metrics.SubscriptionChanges.WithLabelValues("clear").Add(float64(n))
		h.logger.Info("topic cleared", "topic", topic, "removed", n)
	}

	respondJSON(w, http.StatusOK, clearResponse{Removed: n})
}

func (h *SubscriberHandler) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.registry.Topics(r.Context())
	if err != nil {
		h.logger.Error("failed to list topics", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list topics")
		return
	}
	if topics == nil {
		topics = []string{}
	}

	respondJSON(w, http.StatusOK, topics)
}
