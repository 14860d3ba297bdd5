package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/store"
	"github.com/go-chi/chi/v5"
)

var errRegistryDown = errors.New("registry unavailable")

// brokenRegistry fails every write with the zero value.
type brokenRegistry struct {
	store.Registry
}

func (brokenRegistry) Subscribe(context.Context, string, domain.Subscriber) (domain.Subscriber, error) {
	return domain.Subscriber{}, errRegistryDown
}

func TestSubscribe_RegistryErrorLogsSubscriber(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	h := NewSubscriberHandler(brokenRegistry{}, nil, nil, logger)
	r := chi.NewRouter()
	r.Post("/notification/subscribe/{topic}", h.Subscribe)

	req := httptest.NewRequest(http.MethodPost, "/notification/subscribe/book",
		strings.NewReader(`{"url":"http://a.test/hook","name":"alice"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log line %q: %v", logs.String(), err)
	}
	if entry["subscriber_url"] != "http://a.test/hook" {
		t.Errorf("logged subscriber_url = %v, want http://a.test/hook", entry["subscriber_url"])
	}
	if entry["topic"] != "BOOK" {
		t.Errorf("logged topic = %v, want BOOK", entry["topic"])
	}
}
