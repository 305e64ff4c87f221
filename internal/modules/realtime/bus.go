// README: Change bus; stores publish a topic signal after every committed mutation.
package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	TopicDonations = "mealbridge:changed:donations"
	TopicPickups   = "mealbridge:changed:pickups"
)

// Notifier is the write side of the bus. Signals are fire-and-forget: a
// dropped signal is recovered by the polling fallback, never by retrying.
type Notifier interface {
	Notify(ctx context.Context, topic string)
}

// Bus adds the read side. Subscribe returns a signal channel and a release
// function; callers must release when the consuming view goes away.
type Bus interface {
	Notifier
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, func())
}

// RedisBus fans signals out over Redis pub/sub so every API instance sees
// mutations committed by any other instance.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Notify(ctx context.Context, topic string) {
	b.rdb.Publish(ctx, topic, "1")
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan struct{}, func()) {
	sub := b.rdb.Subscribe(ctx, topic)
	out := make(chan struct{}, 1)

	go func() {
		for range sub.Channel() {
			select {
			case out <- struct{}{}:
			default: // a signal is already pending; coalesce
			}
		}
		close(out)
	}()

	return out, func() { _ = sub.Close() }
}

// MemBus is the in-process bus used by tests and single-node deployments.
type MemBus struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan struct{}
}

func NewMemBus() *MemBus {
	return &MemBus{subs: make(map[string]map[int]chan struct{})}
}

func (b *MemBus) Notify(_ context.Context, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *MemBus) Subscribe(_ context.Context, topic string) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan struct{})
	}
	b.subs[topic][id] = ch

	release := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[topic]; ok {
			delete(subs, id)
		}
	}
	return ch, release
}
