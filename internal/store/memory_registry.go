package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Priya8975/notification-hub/internal/domain"
)

// MemoryRegistry keeps subscriptions in process memory: topic -> url -> subscriber.
type MemoryRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]domain.Subscriber
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{topics: make(map[string]map[string]domain.Subscriber)}
}

func (r *MemoryRegistry) Subscribe(_ context.Context, topic string, sub domain.Subscriber) (domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[topic]
	if !ok {
		subs = make(map[string]domain.Subscriber)
		r.topics[topic] = subs
	}
	subs[sub.URL] = sub.Clone()

	return sub.Clone(), nil
}

func (r *MemoryRegistry) Unsubscribe(_ context.Context, topic, url string) (*domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[topic]
	if !ok {
		return nil, nil
	}

	sub, ok := subs[url]
	if !ok {
		return nil, nil
	}

	delete(subs, url)
	if len(subs) == 0 {
		delete(r.topics, topic)
	}

	removed := sub.Clone()
	return &removed, nil
}

func (r *MemoryRegistry) Subscribers(_ context.Context, topic string) ([]domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]domain.Subscriber, 0, len(r.topics[topic]))
	for _, s := range r.topics[topic] {
		subs = append(subs, s.Clone())
	}
	sortSubscribers(subs)

	return subs, nil
}

func (r *MemoryRegistry) Topics(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.topics))
	for t := range r.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	return topics, nil
}

func (r *MemoryRegistry) Clear(_ context.Context, topic string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.topics[topic])
	delete(r.topics, topic)

	return n, nil
}

func sortSubscribers(subs []domain.Subscriber) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].URL < subs[j].URL })
}
