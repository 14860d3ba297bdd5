package worker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/engine"
	"github.com/Priya8975/notification-hub/internal/metrics"
	"github.com/Priya8975/notification-hub/internal/store"
	ws "github.com/Priya8975/notification-hub/internal/websocket"
)

// Outcome is what happened to a job handed to the deliverer.
type Outcome string

const (
	OutcomeDelivered    Outcome = "delivered"
	OutcomeRetrying     Outcome = "retrying"
	OutcomeDeadLettered Outcome = "dead_lettered"
	// OutcomeDeferred means the job was put back without an HTTP call,
	// because of an open circuit or the rate limit.
	OutcomeDeferred Outcome = "deferred"
)

// Outbound delivery headers.
const (
	HeaderSignature      = "X-Hub-Signature"
	HeaderTopic          = "X-Hub-Topic"
	HeaderNotificationID = "X-Hub-Notification-ID"
	HeaderAttempt        = "X-Hub-Attempt"
)

const maxResponseBody = 1024

// Recorder persists delivery outcomes.
type Recorder interface {
	RecordDeliveryAttempt(ctx context.Context, rec store.DeliveryAttemptRecord) error
	InsertDeadLetter(ctx context.Context, rec store.DeadLetterRecord) error
}

// Requeuer puts a job back on the delivery queue.
type Requeuer interface {
	Requeue(ctx context.Context, job engine.DeliveryJob, readyAt time.Time) error
}

// DelivererOptions tunes delivery behaviour.
type DelivererOptions struct {
	// SigningSecret, when set, signs each payload with HMAC-SHA256.
	SigningSecret      string
	RateLimitPerSecond int
}

// Deliverer POSTs notification payloads to subscriber URLs.
type Deliverer struct {
	httpClient     *http.Client
	recorder       Recorder
	queue          Requeuer
	circuitBreaker *engine.CircuitBreaker
	rateLimiter    *engine.RateLimiter
	hub            *ws.Hub
	metrics        *metrics.Metrics
	opts           DelivererOptions
	logger         *slog.Logger
	now            func() time.Time
}

func NewDeliverer(
	httpClient *http.Client,
	recorder Recorder,
	queue Requeuer,
	cb *engine.CircuitBreaker,
	rl *engine.RateLimiter,
	hub *ws.Hub,
	m *metrics.Metrics,
	opts DelivererOptions,
	logger *slog.Logger,
) *Deliverer {
	return &Deliverer{
		httpClient:     httpClient,
		recorder:       recorder,
		queue:          queue,
		circuitBreaker: cb,
		rateLimiter:    rl,
		hub:            hub,
		metrics:        m,
		opts:           opts,
		logger:         logger,
		now:            time.Now,
	}
}

// Deliver makes one delivery attempt for job and schedules whatever
// follows: nothing on success, a retry with backoff on failure, or a dead
// letter once attempts are exhausted.
func (d *Deliverer) Deliver(ctx context.Context, job engine.DeliveryJob) Outcome {
	url := job.Subscriber.URL

	// The limiter goes first: a granted half-open probe must turn into a
	// request.
	if !d.rateLimiter.Allow(ctx, url, d.opts.RateLimitPerSecond) {
		d.requeue(ctx, job, d.now().Add(time.Second))
		return OutcomeDeferred
	}

	if state, allowed := d.circuitBreaker.Allow(ctx, url); !allowed {
		d.logger.Debug("circuit open, deferring delivery", "job_id", job.ID, "subscriber_url", url, "state", state)
		d.requeue(ctx, job, d.now().Add(d.circuitBreaker.Cooldown()))
		return OutcomeDeferred
	}

	res := d.post(ctx, job)
	d.metrics.DeliveryDuration.Observe(res.elapsed.Seconds())

	if res.ok() {
		d.circuitBreaker.RecordSuccess(ctx, url)
		d.record(ctx, job, res, domain.DeliverySuccess, nil)
		d.metrics.DeliveryAttempts.WithLabelValues(string(OutcomeDelivered)).Inc()
		d.broadcast(ws.EventDelivered, job, res)

		d.logger.Info("delivery successful",
			"job_id", job.ID,
			"notification_id", job.NotificationID,
			"subscriber_url", url,
			"attempt", job.Attempt,
			"status_code", res.statusCode,
			"response_time_ms", res.elapsed.Milliseconds(),
		)
		return OutcomeDelivered
	}

	d.circuitBreaker.RecordFailure(ctx, url)
	d.logger.Warn("delivery failed",
		"job_id", job.ID,
		"notification_id", job.NotificationID,
		"subscriber_url", url,
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
		"error", res.errMsg,
		"status_code", res.statusCode,
	)

	if job.LastAttempt() {
		d.record(ctx, job, res, domain.DeliveryFailed, nil)
		d.deadLetter(ctx, job, res)
		d.metrics.DeliveryAttempts.WithLabelValues(string(OutcomeDeadLettered)).Inc()
		d.metrics.DeadLetters.Inc()
		d.broadcast(ws.EventDeadLetter, job, res)
		return OutcomeDeadLettered
	}

	retryAt := d.now().Add(engine.Backoff(job.Attempt))
	d.record(ctx, job, res, domain.DeliveryFailed, &retryAt)
	d.requeue(ctx, job.Next(), retryAt)
	d.metrics.DeliveryAttempts.WithLabelValues(string(OutcomeRetrying)).Inc()
	d.broadcast(ws.EventRetrying, job, res)
	return OutcomeRetrying
}

type result struct {
	statusCode *int
	body       string
	errMsg     string
	elapsed    time.Duration
}

func (r result) ok() bool {
	return r.errMsg == "" && r.statusCode != nil && *r.statusCode < 400
}

func (d *Deliverer) post(ctx context.Context, job engine.DeliveryJob) result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.Subscriber.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return result{errMsg: fmt.Sprintf("failed to create request: %v", err), elapsed: time.Since(start)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTopic, job.Topic)
	req.Header.Set(HeaderNotificationID, job.NotificationID)
	req.Header.Set(HeaderAttempt, strconv.Itoa(job.Attempt))
	if d.opts.SigningSecret != "" {
		req.Header.Set(HeaderSignature, "sha256="+computeHMAC(job.Payload, d.opts.SigningSecret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return result{errMsg: fmt.Sprintf("request failed: %v", err), elapsed: time.Since(start)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	res := result{statusCode: &resp.StatusCode, body: string(body), elapsed: time.Since(start)}
	if resp.StatusCode >= 400 {
		res.errMsg = fmt.Sprintf("subscriber responded with status %d", resp.StatusCode)
	}
	return res
}

func (d *Deliverer) record(ctx context.Context, job engine.DeliveryJob, res result, status string, nextRetryAt *time.Time) {
	err := d.recorder.RecordDeliveryAttempt(ctx, store.DeliveryAttemptRecord{
		NotificationID: job.NotificationID,
		Topic:          job.Topic,
		SubscriberURL:  job.Subscriber.URL,
		SubscriberName: job.Subscriber.Name,
		AttemptNumber:  job.Attempt,
		Status:         status,
		HTTPStatusCode: res.statusCode,
		ResponseBody:   res.body,
		ResponseTimeMs: int(res.elapsed.Milliseconds()),
		ErrorMessage:   res.errMsg,
		NextRetryAt:    nextRetryAt,
	})
	if err != nil {
		d.logger.Error("failed to record delivery attempt", "error", err, "job_id", job.ID)
	}
}

func (d *Deliverer) deadLetter(ctx context.Context, job engine.DeliveryJob, res result) {
	err := d.recorder.InsertDeadLetter(ctx, store.DeadLetterRecord{
		NotificationID: job.NotificationID,
		Topic:          job.Topic,
		SubscriberURL:  job.Subscriber.URL,
		Payload:        job.Payload,
		TotalAttempts:  job.Attempt,
		LastHTTPStatus: res.statusCode,
		LastError:      res.errMsg,
	})
	if err != nil {
		d.logger.Error("failed to insert dead letter", "error", err, "job_id", job.ID)
	}
}

func (d *Deliverer) requeue(ctx context.Context, job engine.DeliveryJob, readyAt time.Time) {
	if err := d.queue.Requeue(ctx, job, readyAt); err != nil {
		d.logger.Error("failed to requeue job", "error", err, "job_id", job.ID)
	}
}

func (d *Deliverer) broadcast(kind string, job engine.DeliveryJob, res result) {
	d.hub.Broadcast(ws.FeedEvent{
		Type:           kind,
		NotificationID: job.NotificationID,
		Topic:          job.Topic,
		SubscriberURL:  job.Subscriber.URL,
		SubscriberName: job.Subscriber.Name,
		Attempt:        job.Attempt,
		StatusCode:     res.statusCode,
		ResponseMs:     res.elapsed.Milliseconds(),
		Error:          res.errMsg,
	})
}

// computeHMAC returns the hex HMAC-SHA256 of payload keyed by secret.
func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
