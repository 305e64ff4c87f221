// README: Snapshot-replace subscriptions; every update carries the full matching set.
package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// QueryFunc produces the full current matching set for a subscription.
type QueryFunc[T any] func(ctx context.Context) ([]T, error)

// Subscription delivers full result-set snapshots until Close is called or
// the watch context ends. Consumers must treat every snapshot as a total
// replacement of their working set; no diffing is done here.
type Subscription[T any] struct {
	updates chan []T
	stop    context.CancelFunc
}

// Updates is the snapshot stream. It is closed when the subscription ends.
func (s *Subscription[T]) Updates() <-chan []T {
	return s.updates
}

// Close releases the underlying bus callback. Forgetting to close leaks the
// refresh goroutine for the life of the bus.
func (s *Subscription[T]) Close() {
	s.stop()
}

// Watch subscribes to a topic and re-runs query on every bus signal, plus on
// a poll tick as a fallback for missed signals. Snapshots are delivered
// latest-wins: a slow consumer sees the newest set, not a backlog.
func Watch[T any](ctx context.Context, bus Bus, log zerolog.Logger, topic string, pollEvery time.Duration, query QueryFunc[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		updates: make(chan []T, 1),
		stop:    cancel,
	}

	signals, release := bus.Subscribe(ctx, topic)

	go func() {
		defer release()
		defer close(sub.updates)

		ticker := time.NewTicker(pollEvery)
		defer ticker.Stop()

		refresh := func() {
			set, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Str("topic", topic).Msg("snapshot query failed")
				}
				return
			}
			// Drop the stale pending snapshot, if any, then deliver.
			select {
			case <-sub.updates:
			default:
			}
			select {
			case sub.updates <- set:
			case <-ctx.Done():
			}
		}

		refresh()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				refresh()
			case <-ticker.C:
				refresh()
			}
		}
	}()

	return sub
}
