// Command mock-endpoints runs a throwaway subscriber for exercising the
// hub locally. Point subscriptions at /webhook/success, /webhook/slow,
// /webhook/fail or /webhook/flaky.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/worker"
	"github.com/go-chi/chi/v5"
)

type receiver struct {
	secret   string
	delay    time.Duration
	logger   *slog.Logger
	requests atomic.Int64
	rejected atomic.Int64
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	rcv := &receiver{
		secret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
		delay:  3 * time.Second,
		logger: logger,
	}

	logger.Info("mock endpoint server starting",
		"port", port,
		"signature_check", rcv.secret != "",
		"routes", []string{
			"POST /webhook/success -> 200",
			"POST /webhook/slow -> 200 after 3s",
			"POST /webhook/fail -> 500",
			"POST /webhook/flaky -> 503 on odd requests",
			"GET /stats",
		},
	)

	if err := http.ListenAndServe(":"+port, rcv.routes()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (rcv *receiver) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhook/success", rcv.handle(func(int64) int { return http.StatusOK }, 0))
	r.Post("/webhook/slow", rcv.handle(func(int64) int { return http.StatusOK }, rcv.delay))
	r.Post("/webhook/fail", rcv.handle(func(int64) int { return http.StatusInternalServerError }, 0))
	r.Post("/webhook/flaky", rcv.handle(func(n int64) int {
		if n%2 == 1 {
			return http.StatusServiceUnavailable
		}
		return http.StatusOK
	}, 0))

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{
			"total_requests":    rcv.requests.Load(),
			"rejected_requests": rcv.rejected.Load(),
		})
	})

	return r
}

// handle decodes the notification, checks its signature and answers with
// the status chosen by statusFor.
func (rcv *receiver) handle(statusFor func(n int64) int, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := rcv.requests.Add(1)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			rcv.reject(w, r, n, "unreadable body")
			return
		}

		if rcv.secret != "" && !validSignature(body, r.Header.Get(worker.HeaderSignature), rcv.secret) {
			rcv.reject(w, r, n, "bad signature")
			return
		}

		var notif domain.Notification
		if err := json.Unmarshal(body, &notif); err != nil {
			rcv.reject(w, r, n, "invalid payload")
			return
		}

		if delay > 0 {
			time.Sleep(delay)
		}

		status := statusFor(n)
		rcv.logger.Info("notification received",
			"request", n,
			"path", r.URL.Path,
			"status", status,
			"topic", r.Header.Get(worker.HeaderTopic),
			"notification_id", truncate(r.Header.Get(worker.HeaderNotificationID), 8),
			"attempt", r.Header.Get(worker.HeaderAttempt),
			"product_title", notif.ProductTitle,
			"product_status", notif.Status,
			"subscriber_name", notif.SubscriberName,
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status < 400 {
			json.NewEncoder(w).Encode(map[string]string{"status": "received"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status)})
	}
}

func (rcv *receiver) reject(w http.ResponseWriter, r *http.Request, n int64, reason string) {
	rcv.rejected.Add(1)
	rcv.logger.Warn("notification rejected", "request", n, "path", r.URL.Path, "reason", reason)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

func validSignature(body []byte, header, secret string) bool {
	got, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
