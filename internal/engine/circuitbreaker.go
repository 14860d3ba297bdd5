package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type BreakerState string

// Circuit breaker states
const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half-open"
)

// CircuitBreaker tracks delivery health per subscriber URL in a Redis hash.
//
// Closed counts consecutive failures and opens at the threshold. Open
// rejects deliveries until the cooldown has passed since the last failure,
// then turns half-open and hands out a single probe. The probe's outcome
// closes or re-opens the circuit.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
}

// BreakerStatus is the externally visible view of one subscriber's circuit.
type BreakerStatus struct {
	State        BreakerState `json:"state"`
	Failures     int          `json:"failures"`
	LastFailedAt string       `json:"last_failed_at,omitempty"`
}

func NewCircuitBreaker(redisClient *redis.Client, failureThreshold int, cooldown time.Duration, logger *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// Cooldown is how long an open circuit stays closed to traffic.
func (cb *CircuitBreaker) Cooldown() time.Duration {
	return cb.cooldown
}

func cbKey(subscriberURL string) string {
	return fmt.Sprintf("cb:%s", subscriberURL)
}

// Allow reports whether a delivery to subscriberURL may proceed. Redis
// errors leave the circuit closed.
func (cb *CircuitBreaker) Allow(ctx context.Context, subscriberURL string) (BreakerState, bool) {
	key := cbKey(subscriberURL)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return StateClosed, true
	}

	switch BreakerState(data["state"]) {
	case StateOpen:
		if !cb.cooledDown(data["last_failed_at"]) {
			return StateOpen, false
		}
		cb.redisClient.HSet(ctx, key, "state", string(StateHalfOpen))
		cb.logger.Info("circuit breaker half-open", "subscriber_url", subscriberURL)
		return StateHalfOpen, cb.acquireProbe(ctx, key, "")

	case StateHalfOpen:
		return StateHalfOpen, cb.acquireProbe(ctx, key, data["probe_at"])

	default:
		return StateClosed, true
	}
}

// acquireProbe hands out the single half-open probe. A probe that never
// reported back is considered lost after one cooldown.
func (cb *CircuitBreaker) acquireProbe(ctx context.Context, key, probeAt string) bool {
	now := cb.now().Unix()

	ok, err := cb.redisClient.HSetNX(ctx, key, "probe_at", now).Result()
	if err != nil {
		return false
	}
	if ok {
		return true
	}

	if probeAt != "" && cb.cooledDown(probeAt) {
		cb.redisClient.HSet(ctx, key, "probe_at", now)
		return true
	}
	return false
}

func (cb *CircuitBreaker) cooledDown(unixSeconds string) bool {
	ts, _ := strconv.ParseInt(unixSeconds, 10, 64)
	return cb.now().Unix()-ts >= int64(cb.cooldown.Seconds())
}

// RecordSuccess closes the circuit and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, subscriberURL string) {
	key := cbKey(subscriberURL)

	prev, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	_, err := cb.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "state", string(StateClosed), "failures", 0)
		pipe.HDel(ctx, key, "probe_at")
		return nil
	})
	if err != nil {
		cb.logger.Error("failed to record circuit breaker success", "error", err, "subscriber_url", subscriberURL)
		return
	}

	if BreakerState(prev) == StateHalfOpen {
		cb.logger.Info("circuit breaker closed (recovered)", "subscriber_url", subscriberURL)
	}
}

// RecordFailure counts a failed delivery, opening the circuit at the
// threshold or when a half-open probe fails.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, subscriberURL string) {
	key := cbKey(subscriberURL)

	prev, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	var failures *redis.IntCmd
	_, err := cb.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		failures = pipe.HIncrBy(ctx, key, "failures", 1)
		pipe.HSet(ctx, key, "last_failed_at", cb.now().Unix())
		pipe.HDel(ctx, key, "probe_at")
		return nil
	})
	if err != nil {
		cb.logger.Error("failed to record circuit breaker failure", "error", err, "subscriber_url", subscriberURL)
		return
	}

	switch {
	case BreakerState(prev) == StateHalfOpen:
		cb.redisClient.HSet(ctx, key, "state", string(StateOpen))
		cb.logger.Warn("circuit breaker re-opened (probe failed)", "subscriber_url", subscriberURL)

	case failures.Val() >= int64(cb.failureThreshold):
		if BreakerState(prev) != StateOpen {
			cb.logger.Warn("circuit breaker opened",
				"subscriber_url", subscriberURL,
				"failures", failures.Val(),
				"threshold", cb.failureThreshold,
			)
		}
		cb.redisClient.HSet(ctx, key, "state", string(StateOpen))

	case prev == "":
		cb.redisClient.HSet(ctx, key, "state", string(StateClosed))
	}
}

// Status returns the circuit for subscriberURL without changing it. An
// open circuit whose cooldown has elapsed is reported as half-open.
func (cb *CircuitBreaker) Status(ctx context.Context, subscriberURL string) BreakerStatus {
	data, err := cb.redisClient.HGetAll(ctx, cbKey(subscriberURL)).Result()
	if err != nil || len(data) == 0 {
		return BreakerStatus{State: StateClosed}
	}

	status := BreakerStatus{State: BreakerState(data["state"])}
	status.Failures, _ = strconv.Atoi(data["failures"])
	if status.State == "" {
		status.State = StateClosed
	}
	if status.State == StateOpen && cb.cooledDown(data["last_failed_at"]) {
		status.State = StateHalfOpen
	}

	if ts, _ := strconv.ParseInt(data["last_failed_at"], 10, 64); ts > 0 {
		status.LastFailedAt = time.Unix(ts, 0).UTC().Format(time.RFC3339)
	}

	return status
}
