package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DeadLetterHandler struct {
	log    DeliveryLog
	logger *slog.Logger
}

func NewDeadLetterHandler(log DeliveryLog, logger *slog.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{log: log, logger: logger}
}

func (h *DeadLetterHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	letters, err := h.log.ListDeadLetters(r.Context(), store.DeadLetterFilter{
		SubscriberURL: q.Get("subscriber_url"),
		Resolved:      q.Get("resolved") == "true",
		Limit:         parseLimit(r),
	})
	if err != nil {
		h.logger.Error("failed to list dead letters", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}
	if letters == nil {
		letters = []domain.DeadLetter{}
	}

	respondJSON(w, http.StatusOK, letters)
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// Resolve marks a dead letter as handled. The body is optional.
func (h *DeadLetterHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusNotFound, store.ErrDeadLetterNotFound.Error())
		return
	}

	var req resolveRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResolvedBy == "" {
		req.ResolvedBy = "manual"
	}

	err = h.log.ResolveDeadLetter(r.Context(), id, req.ResolvedBy)
	switch {
	case errors.Is(err, store.ErrDeadLetterNotFound):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to resolve dead letter", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to resolve dead letter")
		return
	}

	h.logger.Info("dead letter resolved", "id", id, "resolved_by", req.ResolvedBy)
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
