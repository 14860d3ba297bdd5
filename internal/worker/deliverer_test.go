package worker

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestComputeHMAC(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{
			name:    "notification payload",
			payload: []byte(`{"product_title":"Go in Action","product_type":"BOOK","status":"CREATED"}`),
			secret:  "hub-secret",
		},
		{
			name:    "empty object",
			payload: []byte(`{}`),
			secret:  "secret",
		},
		{
			name:    "empty secret",
			payload: []byte(`{"test":true}`),
			secret:  "",
		},
		{
			name:    "unicode payload",
			payload: []byte(`{"product_title":"café","price":"€10"}`),
			secret:  "unicode-key-日本語",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := computeHMAC(tt.payload, tt.secret)

			decoded, err := hex.DecodeString(sig)
			if err != nil {
				t.Fatalf("signature is not valid hex: %v", err)
			}
			if len(decoded) != sha256.Size {
				t.Fatalf("expected %d bytes, got %d", sha256.Size, len(decoded))
			}

			mac := hmac.New(sha256.New, []byte(tt.secret))
			mac.Write(tt.payload)
			if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
				t.Errorf("signature mismatch:\n  got:  %s\n  want: %s", sig, want)
			}
		})
	}
}

func TestComputeHMAC_InputsMatter(t *testing.T) {
	payload := []byte(`{"status":"CREATED"}`)

	if computeHMAC(payload, "s1") != computeHMAC(payload, "s1") {
		t.Error("HMAC should be deterministic")
	}
	if computeHMAC(payload, "s1") == computeHMAC(payload, "s2") {
		t.Error("different secrets should produce different signatures")
	}
	if computeHMAC([]byte(`{"a":1}`), "s1") == computeHMAC([]byte(`{"a":2}`), "s1") {
		t.Error("different payloads should produce different signatures")
	}
}

func TestResultOK(t *testing.T) {
	code := func(c int) *int { return &c }

	tests := []struct {
		name string
		res  result
		want bool
	}{
		{"2xx", result{statusCode: code(200)}, true},
		{"3xx", result{statusCode: code(302)}, true},
		{"4xx", result{statusCode: code(404), errMsg: "status 404"}, false},
		{"transport error", result{errMsg: "request failed"}, false},
		{"no status", result{}, false},
	}

	for _, tt := range tests {
		if got := tt.res.ok(); got != tt.want {
			t.Errorf("%s: ok() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
