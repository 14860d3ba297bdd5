package worker

import (
	"net/http"
	"time"

	"github.com/ybbus/httpretry"
)

// NewHTTPClient builds the process-wide client used for every outbound
// delivery. With retries > 0 transient transport failures and 5xx/429
// answers are retried inside a single delivery attempt.
func NewHTTPClient(timeout time.Duration, retries int) *http.Client {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        200,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if retries <= 0 {
		return client
	}

	return httpretry.NewCustomClient(
		client,
		httpretry.WithMaxRetryCount(retries),
		httpretry.WithBackoffPolicy(
			httpretry.ExponentialBackoff(100*time.Millisecond, 2*time.Second, 100*time.Millisecond)),
	)
}
