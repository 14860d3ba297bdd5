package engine

import (
	"encoding/json"
	"time"

	"github.com/Priya8975/notification-hub/internal/domain"
)

// DeliveryQueueKey is the Redis sorted set holding pending jobs, scored by
// the time (unix µs) at which they become ready.
const DeliveryQueueKey = "delivery_queue"

// DeliveryJob is one notification addressed to one subscriber.
type DeliveryJob struct {
	ID             string            `json:"id"`
	NotificationID string            `json:"notification_id"`
	Topic          string            `json:"topic"`
	Subscriber     domain.Subscriber `json:"subscriber"`
	Payload        json.RawMessage   `json:"payload"`
	Attempt        int               `json:"attempt"`
	MaxAttempts    int               `json:"max_attempts"`
}

// LastAttempt reports whether a failure of this attempt is final.
func (j DeliveryJob) LastAttempt() bool {
	return j.Attempt >= j.MaxAttempts
}

// Next returns the job for the following attempt.
func (j DeliveryJob) Next() DeliveryJob {
	next := j
	next.Subscriber = j.Subscriber.Clone()
	next.Attempt = j.Attempt + 1
	return next
}

const (
	baseBackoff = time.Second
	maxBackoff  = 5 * time.Minute
)

// Backoff is the delay before retrying after the given failed attempt:
// 1s, 2s, 4s ... capped at five minutes.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}
