// README: Best-effort volunteer position capture, bounded by its own timeout.
package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mealbridge/internal/types"
)

// Geolocator is the device collaborator: a single call that yields the
// volunteer's current position or fails. The tracker imposes its own
// deadline rather than trusting any platform default. In production the
// device reports through the location endpoint and the Store's last known
// fix serves as the reading.
type Geolocator interface {
	CurrentPosition(ctx context.Context, volunteerID types.ID) (types.Point, error)
}

// Fix is one successful position reading.
type Fix struct {
	Point      types.Point
	CapturedAt time.Time
}

type Tracker struct {
	geo     Geolocator
	store   *Store
	timeout time.Duration
	log     zerolog.Logger
}

// NewTracker wires the device collaborator and the optional GEO store.
// A zero timeout falls back to 5 seconds.
func NewTracker(geo Geolocator, store *Store, timeout time.Duration, log zerolog.Logger) *Tracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Tracker{geo: geo, store: store, timeout: timeout, log: log}
}

// Capture reads the device position within the tracker's deadline. Denied,
// timed-out or unavailable readings are abandoned silently: the caller gets
// nil and proceeds without enrichment. A successful fix is also mirrored
// into the volunteer GEO set, again best-effort.
func (t *Tracker) Capture(ctx context.Context, volunteerID types.ID) *Fix {
	if t == nil || t.geo == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	p, err := t.geo.CurrentPosition(ctx, volunteerID)
	if err != nil {
		t.log.Debug().Err(err).Str("volunteer_id", string(volunteerID)).Msg("position capture abandoned")
		return nil
	}

	if t.store != nil {
		if err := t.store.SetVolunteer(ctx, volunteerID, p); err != nil {
			t.log.Debug().Err(err).Str("volunteer_id", string(volunteerID)).Msg("geo set update failed")
		}
	}

	return &Fix{Point: p, CapturedAt: time.Now()}
}
