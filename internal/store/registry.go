package store

import (
	"context"

	"github.com/Priya8975/notification-hub/internal/domain"
)

// Registry maps topics to their subscribers. Within a topic a subscriber
// is identified by its URL. Topics are expected to be normalized by the
// caller.
type Registry interface {
	// Subscribe adds sub to topic, replacing any subscriber with the same URL.
	Subscribe(ctx context.Context, topic string, sub domain.Subscriber) (domain.Subscriber, error)
	// Unsubscribe removes the subscriber with url from topic. It returns
	// nil when no such subscriber exists.
	Unsubscribe(ctx context.Context, topic, url string) (*domain.Subscriber, error)
	// Subscribers lists topic's subscribers ordered by URL.
	Subscribers(ctx context.Context, topic string) ([]domain.Subscriber, error)
	// Topics lists topics that have at least one subscriber.
	Topics(ctx context.Context) ([]string, error)
	// Clear removes every subscriber of topic and reports how many were removed.
	Clear(ctx context.Context, topic string) (int, error)
}
