// README: Snapshot subscription tests over the in-process bus.
package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeStore is a mutable result set that notifies the bus on change.
type fakeStore struct {
	mu    sync.Mutex
	items []string
}

func (f *fakeStore) set(ctx context.Context, bus Bus, items ...string) {
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
	bus.Notify(ctx, TopicDonations)
}

func (f *fakeStore) query(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.items...), nil
}

func recv(t *testing.T, sub *Subscription[string]) []string {
	t.Helper()
	select {
	case set, ok := <-sub.Updates():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return set
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return nil
	}
}

func TestWatchDeliversInitialSnapshot(t *testing.T) {
	bus := NewMemBus()
	store := &fakeStore{items: []string{"a", "b"}}

	sub := Watch(context.Background(), bus, zerolog.Nop(), TopicDonations, time.Hour, store.query)
	defer sub.Close()

	got := recv(t, sub)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected initial snapshot: %v", got)
	}
}

func TestWatchRefreshesOnSignal(t *testing.T) {
	ctx := context.Background()
	bus := NewMemBus()
	store := &fakeStore{}

	sub := Watch(ctx, bus, zerolog.Nop(), TopicDonations, time.Hour, store.query)
	defer sub.Close()

	if got := recv(t, sub); len(got) != 0 {
		t.Fatalf("expected an empty initial snapshot, got %v", got)
	}

	store.set(ctx, bus, "a")
	if got := recv(t, sub); len(got) != 1 || got[0] != "a" {
		t.Fatalf("unexpected snapshot after first mutation: %v", got)
	}

	// every update is the full set, not a delta
	store.set(ctx, bus, "a", "b", "c")
	if got := recv(t, sub); len(got) != 3 {
		t.Fatalf("expected the full replacement set, got %v", got)
	}
}

// A slow consumer sees the newest snapshot, never a backlog of stale ones.
func TestWatchCoalescesToLatest(t *testing.T) {
	ctx := context.Background()
	bus := NewMemBus()
	store := &fakeStore{}

	sub := Watch(ctx, bus, zerolog.Nop(), TopicDonations, time.Hour, store.query)
	defer sub.Close()

	recv(t, sub)

	store.set(ctx, bus, "a")
	store.set(ctx, bus, "a", "b")

	// allow the refresh goroutine to process both signals
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := recv(t, sub)
		if len(got) == 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("never converged on the latest snapshot, last saw %v", got)
		}
	}
}

func TestWatchPollFallback(t *testing.T) {
	ctx := context.Background()
	// a bus whose signals never arrive
	bus := NewMemBus()
	store := &fakeStore{}

	sub := Watch(ctx, bus, zerolog.Nop(), "some-other-topic", 20*time.Millisecond, store.query)
	defer sub.Close()

	recv(t, sub)

	// mutate without a matching topic signal; only the poll can see it
	store.set(ctx, bus, "a")

	deadline := time.Now().Add(2 * time.Second)
	for {
		got := recv(t, sub)
		if len(got) == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("poll fallback never refreshed the snapshot")
		}
	}
}

func TestWatchCloseEndsStream(t *testing.T) {
	bus := NewMemBus()
	store := &fakeStore{}

	sub := Watch(context.Background(), bus, zerolog.Nop(), TopicDonations, time.Hour, store.query)
	recv(t, sub)
	sub.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("updates channel never closed")
		}
	}
}

func TestWatchSurvivesQueryError(t *testing.T) {
	ctx := context.Background()
	bus := NewMemBus()

	calls := 0
	var mu sync.Mutex
	query := func(context.Context) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return []string{"recovered"}, nil
	}

	sub := Watch(ctx, bus, zerolog.Nop(), TopicDonations, time.Hour, query)
	defer sub.Close()

	// first refresh fails silently; a signal triggers the retry
	bus.Notify(ctx, TopicDonations)
	got := recv(t, sub)
	if len(got) != 1 || got[0] != "recovered" {
		t.Fatalf("expected the recovered snapshot, got %v", got)
	}
}

func TestMemBusFanout(t *testing.T) {
	ctx := context.Background()
	bus := NewMemBus()

	ch1, release1 := bus.Subscribe(ctx, TopicPickups)
	ch2, release2 := bus.Subscribe(ctx, TopicPickups)
	defer release1()

	bus.Notify(ctx, TopicPickups)

	for i, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never saw the signal", i)
		}
	}

	// a released subscriber stops receiving
	release2()
	bus.Notify(ctx, TopicPickups)
	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber never saw the signal")
	}
}
