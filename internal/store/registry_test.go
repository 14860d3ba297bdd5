package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// registryFactories lets every behavioural test run against both backends.
func registryFactories(t *testing.T) map[string]func() Registry {
	t.Helper()

	return map[string]func() Registry{
		"memory": func() Registry { return NewMemoryRegistry() },
		"redis": func() Registry {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return NewRedisRegistry(client)
		},
	}
}

func TestRegistry_SubscribeAndList(t *testing.T) {
	for name, newRegistry := range registryFactories(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry()
			ctx := context.Background()

			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://b.example/cb", "bob"))
			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))
			reg.Subscribe(ctx, "TOY", domain.NewSubscriber("http://c.example/cb", "carol"))

			subs, err := reg.Subscribers(ctx, "BOOK")
			if err != nil {
				t.Fatalf("Subscribers: %v", err)
			}
			if len(subs) != 2 {
				t.Fatalf("expected 2 BOOK subscribers, got %d", len(subs))
			}
			if subs[0].Name != "alice" || subs[1].Name != "bob" {
				t.Errorf("subscribers should be ordered by URL, got %+v", subs)
			}
		})
	}
}

func TestRegistry_SubscribeReplacesSameURL(t *testing.T) {
	for name, newRegistry := range registryFactories(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry()
			ctx := context.Background()

			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))
			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice-renamed"))

			subs, _ := reg.Subscribers(ctx, "BOOK")
			if len(subs) != 1 {
				t.Fatalf("expected 1 subscriber after upsert, got %d", len(subs))
			}
			if subs[0].Name != "alice-renamed" {
				t.Errorf("expected the newer name, got %q", subs[0].Name)
			}
		})
	}
}

func TestRegistry_UnsubscribePrunesTopic(t *testing.T) {
	for name, newRegistry := range registryFactories(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry()
			ctx := context.Background()

			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))

			removed, err := reg.Unsubscribe(ctx, "BOOK", "http://a.example/cb")
			if err != nil {
				t.Fatalf("Unsubscribe: %v", err)
			}
			if removed == nil || removed.Name != "alice" {
				t.Fatalf("expected alice to be removed, got %+v", removed)
			}

			topics, _ := reg.Topics(ctx)
			if len(topics) != 0 {
				t.Errorf("empty topic should be pruned, got %v", topics)
			}

			subs, _ := reg.Subscribers(ctx, "BOOK")
			if subs == nil || len(subs) != 0 {
				t.Errorf("expected an empty non-nil slice, got %#v", subs)
			}
		})
	}
}

func TestRegistry_UnsubscribeUnknown(t *testing.T) {
	for name, newRegistry := range registryFactories(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry()
			ctx := context.Background()

			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))

			for _, tc := range []struct{ topic, url string }{
				{"BOOK", "http://nobody.example/cb"},
				{"TOY", "http://a.example/cb"},
			} {
				removed, err := reg.Unsubscribe(ctx, tc.topic, tc.url)
				if err != nil {
					t.Fatalf("Unsubscribe(%s, %s): %v", tc.topic, tc.url, err)
				}
				if removed != nil {
					t.Errorf("Unsubscribe(%s, %s) = %+v, want nil", tc.topic, tc.url, removed)
				}
			}

			topics, _ := reg.Topics(ctx)
			if len(topics) != 1 || topics[0] != "BOOK" {
				t.Errorf("BOOK should survive, got %v", topics)
			}
		})
	}
}

func TestRegistry_TopicsAndClear(t *testing.T) {
	for name, newRegistry := range registryFactories(t) {
		t.Run(name, func(t *testing.T) {
			reg := newRegistry()
			ctx := context.Background()

			reg.Subscribe(ctx, "TOY", domain.NewSubscriber("http://c.example/cb", "carol"))
			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))
			reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://b.example/cb", "bob"))

			topics, err := reg.Topics(ctx)
			if err != nil {
				t.Fatalf("Topics: %v", err)
			}
			if len(topics) != 2 || topics[0] != "BOOK" || topics[1] != "TOY" {
				t.Fatalf("unexpected topics %v", topics)
			}

			n, err := reg.Clear(ctx, "BOOK")
			if err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if n != 2 {
				t.Errorf("Clear removed %d, want 2", n)
			}

			topics, _ = reg.Topics(ctx)
			if len(topics) != 1 || topics[0] != "TOY" {
				t.Errorf("only TOY should remain, got %v", topics)
			}

			if n, _ := reg.Clear(ctx, "MISSING"); n != 0 {
				t.Errorf("clearing an unknown topic removed %d", n)
			}
		})
	}
}

func TestMemoryRegistry_ReturnsCopies(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))

	subs, _ := reg.Subscribers(ctx, "BOOK")
	subs[0].Name = "mallory"

	again, _ := reg.Subscribers(ctx, "BOOK")
	if again[0].Name != "alice" {
		t.Errorf("registry state leaked through returned slice: %+v", again[0])
	}
}

func TestRedisRegistry_StoresWireFormat(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	reg := NewRedisRegistry(client)
	reg.Subscribe(context.Background(), "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))

	got := mr.HGet(subscribersKey("BOOK"), "http://a.example/cb")
	want := `{"url":"http://a.example/cb","name":"alice"}`
	if got != want {
		t.Errorf("stored %s, want %s", got, want)
	}
}

func TestRedisRegistry_CorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mr.HSet(subscribersKey("BOOK"), "http://a.example/cb", `{"url":"http://a.example/cb"}`)

	_, err := NewRedisRegistry(client).Subscribers(context.Background(), "BOOK")
	if err == nil {
		t.Fatal("expected a decode error for an entry without a name")
	}
}

func TestRedisRegistry_UnsubscribeRetriesConcurrentWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	reg := NewRedisRegistry(client)
	reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))

	var attempts []int
	reg.beforeExec = func(attempt int) {
		attempts = append(attempts, attempt)
		if attempt == 0 {
			// another writer adds bob between WATCH and EXEC
			client.HSet(ctx, subscribersKey("BOOK"), "http://b.example/cb", `{"url":"http://b.example/cb","name":"bob"}`)
		}
	}

	removed, err := reg.Unsubscribe(ctx, "BOOK", "http://a.example/cb")
	if err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if removed == nil || removed.Name != "alice" {
		t.Fatalf("removed = %+v, want alice", removed)
	}
	if len(attempts) != 2 {
		t.Errorf("expected one retry, got attempts %v", attempts)
	}

	subs, _ := reg.Subscribers(ctx, "BOOK")
	if len(subs) != 1 || subs[0].Name != "bob" {
		t.Errorf("subscribers = %+v, want only bob", subs)
	}
	topics, _ := reg.Topics(ctx)
	if len(topics) != 1 || topics[0] != "BOOK" {
		t.Errorf("topic with bob left must stay listed, got %v", topics)
	}
}

func TestRedisRegistry_UnsubscribeGivesUpAfterRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	reg := NewRedisRegistry(client)
	reg.Subscribe(ctx, "BOOK", domain.NewSubscriber("http://a.example/cb", "alice"))

	calls := 0
	reg.beforeExec = func(int) {
		calls++
		client.HSet(ctx, subscribersKey("BOOK"), "http://b.example/cb", `{"url":"http://b.example/cb","name":"bob"}`)
	}

	_, err := reg.Unsubscribe(ctx, "BOOK", "http://a.example/cb")
	if !errors.Is(err, redis.TxFailedErr) {
		t.Fatalf("expected TxFailedErr, got %v", err)
	}
	if calls != maxTxRetries {
		t.Errorf("attempts = %d, want %d", calls, maxTxRetries)
	}
}
