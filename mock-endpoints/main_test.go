package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Priya8975/notification-hub/internal/worker"
)

const payload = `{"product_title":"Go in Action","product_type":"BOOK","product_url":"http://shop.test/p/1","subscriber_name":"alice","status":"CREATED"}`

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newReceiver(secret string) *receiver {
	return &receiver{secret: secret, logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func post(h http.Handler, path, body, sig string) int {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if sig != "" {
		req.Header.Set(worker.HeaderSignature, sig)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestReceiver_Statuses(t *testing.T) {
	h := newReceiver("").routes()

	if got := post(h, "/webhook/success", payload, ""); got != http.StatusOK {
		t.Errorf("success: %d", got)
	}
	if got := post(h, "/webhook/fail", payload, ""); got != http.StatusInternalServerError {
		t.Errorf("fail: %d", got)
	}
	if got := post(h, "/webhook/success", `not json`, ""); got != http.StatusBadRequest {
		t.Errorf("invalid payload: %d", got)
	}
}

func TestReceiver_Flaky(t *testing.T) {
	h := newReceiver("").routes()

	first := post(h, "/webhook/flaky", payload, "")
	second := post(h, "/webhook/flaky", payload, "")
	if first != http.StatusServiceUnavailable || second != http.StatusOK {
		t.Errorf("flaky = (%d, %d), want (503, 200)", first, second)
	}
}

func TestReceiver_Signature(t *testing.T) {
	rcv := newReceiver("s3cret")
	h := rcv.routes()

	if got := post(h, "/webhook/success", payload, sign(payload, "s3cret")); got != http.StatusOK {
		t.Errorf("valid signature: %d", got)
	}
	if got := post(h, "/webhook/success", payload, sign(payload, "other")); got != http.StatusBadRequest {
		t.Errorf("wrong secret: %d", got)
	}
	if got := post(h, "/webhook/success", payload, ""); got != http.StatusBadRequest {
		t.Errorf("missing signature: %d", got)
	}
	if rcv.rejected.Load() != 2 {
		t.Errorf("rejected = %d, want 2", rcv.rejected.Load())
	}
}
