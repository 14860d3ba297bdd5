package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/redis/go-redis/v9"
)

const topicsKey = "topics"

// maxTxRetries bounds optimistic transaction retries after a watched key
// changed underneath.
const maxTxRetries = 5

func subscribersKey(topic string) string {
	return fmt.Sprintf("subscribers:%s", topic)
}

// RedisRegistry stores each topic as a hash of url -> encoded subscriber
// and tracks non-empty topics in a set.
type RedisRegistry struct {
	client *redis.Client

	// beforeExec runs inside the watched transaction, before EXEC. Tests
	// use it to race a concurrent write.
	beforeExec func(attempt int)
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) Subscribe(ctx context.Context, topic string, sub domain.Subscriber) (domain.Subscriber, error) {
	data, err := domain.EncodeSubscriber(sub)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("encoding subscriber: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, subscribersKey(topic), sub.URL, data)
		pipe.SAdd(ctx, topicsKey, topic)
		return nil
	})
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("storing subscriber: %w", err)
	}

	return sub.Clone(), nil
}

func (r *RedisRegistry) Unsubscribe(ctx context.Context, topic, url string) (*domain.Subscriber, error) {
	key := subscribersKey(topic)

	var (
		removed *domain.Subscriber
		attempt int
	)
	txf := func(tx *redis.Tx) error {
		removed = nil

		data, err := tx.HGet(ctx, key, url).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		sub, err := domain.DecodeSubscriber(data)
		if err != nil {
			return err
		}

		remaining, err := tx.HLen(ctx, key).Result()
		if err != nil {
			return err
		}

		if r.beforeExec != nil {
			r.beforeExec(attempt)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, url)
			if remaining <= 1 {
				pipe.SRem(ctx, topicsKey, topic)
			}
			return nil
		})
		if err != nil {
			return err
		}

		removed = &sub
		return nil
	}

	for attempt = 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return removed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("removing subscriber: %w", err)
	}

	return nil, fmt.Errorf("removing subscriber: %w", redis.TxFailedErr)
}

func (r *RedisRegistry) Subscribers(ctx context.Context, topic string) ([]domain.Subscriber, error) {
	entries, err := r.client.HGetAll(ctx, subscribersKey(topic)).Result()
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}

	subs := make([]domain.Subscriber, 0, len(entries))
	for url, data := range entries {
		sub, err := domain.DecodeSubscriber([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decoding subscriber %s: %w", url, err)
		}
		subs = append(subs, sub)
	}
	sortSubscribers(subs)

	return subs, nil
}

func (r *RedisRegistry) Topics(ctx context.Context) ([]string, error) {
	topics, err := r.client.SMembers(ctx, topicsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	sort.Strings(topics)

	return topics, nil
}

func (r *RedisRegistry) Clear(ctx context.Context, topic string) (int, error) {
	var count *redis.IntCmd

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.HLen(ctx, subscribersKey(topic))
		pipe.Del(ctx, subscribersKey(topic))
		pipe.SRem(ctx, topicsKey, topic)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clearing topic: %w", err)
	}

	return int(count.Val()), nil
}
