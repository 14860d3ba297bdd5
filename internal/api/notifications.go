package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/engine"
	"github.com/Priya8975/notification-hub/internal/validation"
	"github.com/go-chi/chi/v5"
)

type NotificationHandler struct {
	fanout *engine.FanOutEngine
	logger *slog.Logger
}

func NewNotificationHandler(f *engine.FanOutEngine, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{fanout: f, logger: logger}
}

// Publish queues one delivery per subscriber of the topic. Delivery
// happens asynchronously, so the response is 202.
func (h *NotificationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req domain.PublishRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.fanout.FanOut(r.Context(), chi.URLParam(r, "topic"), req)
	if err != nil {
		if clientError(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to publish notification", "error", err, "topic", resp.Topic)
		respondError(w, http.StatusInternalServerError, "failed to publish notification")
		return
	}

	respondJSON(w, http.StatusAccepted, resp)
}
