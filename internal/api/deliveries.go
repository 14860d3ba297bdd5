package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DeliveryLog is the read side of the delivery log.
type DeliveryLog interface {
	StatsSource
	ListDeliveryAttempts(ctx context.Context, f store.DeliveryFilter) ([]domain.DeliveryAttempt, error)
	GetDeliveryAttempt(ctx context.Context, id string) (*domain.DeliveryAttempt, error)
	ListDeadLetters(ctx context.Context, f store.DeadLetterFilter) ([]domain.DeadLetter, error)
	ResolveDeadLetter(ctx context.Context, id, resolvedBy string) error
}

type DeliveryHandler struct {
	log    DeliveryLog
	logger *slog.Logger
}

func NewDeliveryHandler(log DeliveryLog, logger *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{log: log, logger: logger}
}

func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	attempts, err := h.log.ListDeliveryAttempts(r.Context(), store.DeliveryFilter{
		NotificationID: q.Get("notification_id"),
		SubscriberURL:  q.Get("subscriber_url"),
		Status:         q.Get("status"),
		Limit:          parseLimit(r),
	})
	if err != nil {
		h.logger.Error("failed to list delivery attempts", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list delivery attempts")
		return
	}
	if attempts == nil {
		attempts = []domain.DeliveryAttempt{}
	}

	respondJSON(w, http.StatusOK, attempts)
}

func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusNotFound, "delivery attempt not found")
		return
	}

	attempt, err := h.log.GetDeliveryAttempt(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get delivery attempt", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to get delivery attempt")
		return
	}
	if attempt == nil {
		respondError(w, http.StatusNotFound, "delivery attempt not found")
		return
	}

	respondJSON(w, http.StatusOK, attempt)
}
