// README: Append-only history recorder; a secondary write that never blocks the transition.
package pickup

import (
	"context"

	"github.com/rs/zerolog"
)

// Recorder appends StatusChangeEvents after a transition commits. Failures
// are logged and swallowed; they never roll back the primary write and never
// surface to the actor.
type Recorder struct {
	store Store
	log   zerolog.Logger
}

func NewRecorder(store Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

func (r *Recorder) Record(ctx context.Context, e *Event) {
	if err := r.store.AppendEvent(ctx, e); err != nil {
		r.log.Warn().Err(err).
			Str("pickup_id", string(e.PickupID)).
			Str("from", string(e.FromStatus)).
			Str("to", string(e.ToStatus)).
			Msg("history append failed")
	}
}
