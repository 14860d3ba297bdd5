package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/metrics"
	"github.com/Priya8975/notification-hub/internal/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publish outcomes, used as the notifications_published_total label. Topics
// are client supplied and never become label values.
const (
	PublishQueued        = "queued"
	PublishNoSubscribers = "no_subscribers"
)

// FanOutEngine turns a published notification into one queued delivery job
// per subscriber of the topic.
type FanOutEngine struct {
	registry    store.Registry
	redisClient *redis.Client
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

func NewFanOutEngine(reg store.Registry, rc *redis.Client, m *metrics.Metrics, maxAttempts int, logger *slog.Logger) *FanOutEngine {
	return &FanOutEngine{
		registry:    reg,
		redisClient: rc,
		metrics:     m,
		logger:      logger,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// FanOut queues req for every subscriber of topic and returns the number
// of deliveries queued. A topic without subscribers queues nothing.
func (f *FanOutEngine) FanOut(ctx context.Context, topic string, req domain.PublishRequest) (domain.PublishResponse, error) {
	topic, err := domain.NormalizeTopic(topic)
	if err != nil {
		return domain.PublishResponse{}, err
	}

	resp := domain.PublishResponse{
		NotificationID: uuid.NewString(),
		Topic:          topic,
		PublishedAt:    f.now().UTC(),
	}

	subscribers, err := f.registry.Subscribers(ctx, topic)
	if err != nil {
		return resp, fmt.Errorf("loading subscribers: %w", err)
	}

	if len(subscribers) == 0 {
		f.metrics.NotificationsPublished.WithLabelValues(PublishNoSubscribers).Inc()
		f.logger.Info("no subscribers for topic", "notification_id", resp.NotificationID, "topic", topic)
		return resp, nil
	}

	pipe := f.redisClient.Pipeline()
	ready := score(f.now())
	queued := 0

	for _, sub := range subscribers {
		payload, err := json.Marshal(req.For(topic, sub))
		if err != nil {
			f.logger.Error("failed to encode notification", "error", err, "subscriber_url", sub.URL)
			continue
		}

		job := DeliveryJob{
			ID:             uuid.NewString(),
			NotificationID: resp.NotificationID,
			Topic:          topic,
			Subscriber:     sub,
			Payload:        payload,
			Attempt:        1,
			MaxAttempts:    f.maxAttempts,
		}

		member, err := json.Marshal(job)
		if err != nil {
			f.logger.Error("failed to encode job", "error", err, "subscriber_url", sub.URL)
			continue
		}

		pipe.ZAdd(ctx, DeliveryQueueKey, redis.Z{Score: ready, Member: string(member)})
		queued++
	}

	if queued > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return resp, fmt.Errorf("queuing deliveries to redis: %w", err)
		}
	}

	resp.DeliveriesQueued = queued
	f.metrics.NotificationsPublished.WithLabelValues(PublishQueued).Inc()
	f.metrics.DeliveriesQueued.Add(float64(queued))

	f.logger.Info("fan-out complete",
		"notification_id", resp.NotificationID,
		"topic", topic,
		"status", req.Status,
		"deliveries_queued", queued,
	)

	return resp, nil
}

// Requeue schedules job to become ready at readyAt.
func (f *FanOutEngine) Requeue(ctx context.Context, job DeliveryJob, readyAt time.Time) error {
	return Enqueue(ctx, f.redisClient, job, readyAt)
}

// QueueDepth returns the number of jobs waiting in the delivery queue.
func (f *FanOutEngine) QueueDepth(ctx context.Context) (int64, error) {
	return f.redisClient.ZCard(ctx, DeliveryQueueKey).Result()
}

// Enqueue adds a single job to the delivery queue.
func Enqueue(ctx context.Context, rc *redis.Client, job DeliveryJob, readyAt time.Time) error {
	member, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}

	if err := rc.ZAdd(ctx, DeliveryQueueKey, redis.Z{Score: score(readyAt), Member: string(member)}).Err(); err != nil {
		return fmt.Errorf("queuing job %s: %w", job.ID, err)
	}
	return nil
}
