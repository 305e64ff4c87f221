// README: In-memory pickup store; same conditional-write and event-order contract as Postgres.
package pickup

import (
	"context"
	"sync"
	"time"

	"mealbridge/internal/modules/location"
	"mealbridge/internal/modules/realtime"
	"mealbridge/internal/types"
)

// MemStore mirrors the Postgres store's semantics behind a mutex: atomic
// status+version guard, store-assigned event ids and timestamps. Used by
// tests and single-node deployments.
type MemStore struct {
	mu      sync.Mutex
	bus     realtime.Notifier
	pickups map[types.ID]Pickup
	events  []Event
	nextSeq int64
}

func NewMemStore(bus realtime.Notifier) *MemStore {
	return &MemStore{bus: bus, pickups: make(map[types.ID]Pickup), nextSeq: 1}
}

func (s *MemStore) Create(ctx context.Context, p *Pickup) error {
	s.mu.Lock()
	s.pickups[p.ID] = *p
	s.mu.Unlock()
	s.bus.Notify(ctx, realtime.TopicPickups)
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pickups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemStore) GetByDonation(_ context.Context, donationID types.ID) (*Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pickups {
		if p.DonationID == donationID {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, fix *location.Fix) (bool, error) {
	s.mu.Lock()
	p, ok := s.pickups[id]
	if !ok || p.Status != from || p.StatusVersion != version {
		s.mu.Unlock()
		return false, nil
	}

	now := time.Now()
	p.Status = to
	p.StatusVersion++
	p.UpdatedAt = now
	if fix != nil {
		lat, lng, at := fix.Point.Lat, fix.Point.Lng, fix.CapturedAt
		p.CurrentLat, p.CurrentLng, p.LastLocationAt = &lat, &lng, &at
	}
	switch to {
	case StatusStartedForPickup:
		p.StartedPickupAt = &now
	case StatusAtPickupLocation:
		p.AtPickupAt = &now
	case StatusPickupComplete:
		p.PickedUpAt = &now
	case StatusInTransit:
		p.InTransitAt = &now
	case StatusAtDeliveryLocation:
		p.AtDeliveryAt = &now
	case StatusDelivered:
		p.DeliveredAt = &now
	case StatusCancelled:
		p.CancelledAt = &now
	}
	s.pickups[id] = p
	s.mu.Unlock()

	s.bus.Notify(ctx, realtime.TopicPickups)
	return true, nil
}

func (s *MemStore) ListByVolunteer(_ context.Context, volunteerID types.ID) ([]Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Pickup
	for _, p := range s.pickups {
		if p.VolunteerID == volunteerID {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		key := out[i]
		j := i - 1
		for j >= 0 && out[j].CreatedAt.After(key.CreatedAt) {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = key
	}
	return out, nil
}

// AppendEvent assigns the sequence and timestamp under the lock, which is
// what "server-assigned" means for this store.
func (s *MemStore) AppendEvent(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *e
	stored.ID = s.nextSeq
	stored.RecordedAt = time.Now()
	s.nextSeq++
	s.events = append(s.events, stored)
	return nil
}

func (s *MemStore) EventsByPickup(_ context.Context, pickupID types.ID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.PickupID == pickupID {
			out = append(out, e)
		}
	}
	return out, nil
}
