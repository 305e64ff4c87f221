// README: In-memory donation store; same conditional-write contract as Postgres.
package donation

import (
	"context"
	"sync"
	"time"

	"mealbridge/internal/modules/realtime"
	"mealbridge/internal/types"
)

// MemStore keeps donations in a mutex-guarded map. It honours the exact
// Store contract, including the atomic status+version guard, so the service
// race tests exercise the same semantics as the Postgres store.
type MemStore struct {
	mu        sync.Mutex
	bus       realtime.Notifier
	donations map[types.ID]Donation
}

func NewMemStore(bus realtime.Notifier) *MemStore {
	return &MemStore{bus: bus, donations: make(map[types.ID]Donation)}
}

func (s *MemStore) Create(ctx context.Context, d *Donation) error {
	s.mu.Lock()
	s.donations[d.ID] = *d
	s.mu.Unlock()
	s.bus.Notify(ctx, realtime.TopicDonations)
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, patch Patch) (bool, error) {
	s.mu.Lock()
	d, ok := s.donations[id]
	if !ok || d.Status != from || d.StatusVersion != version {
		s.mu.Unlock()
		return false, nil
	}

	now := time.Now()
	d.Status = to
	d.StatusVersion++
	d.UpdatedAt = now
	switch to {
	case StatusAccepted:
		if patch.Assignee != nil {
			id := patch.Assignee.ID
			name := patch.Assignee.Name
			d.RecipientID = &id
			d.RecipientName = &name
		}
		if patch.DeliveryAddress != nil {
			d.DeliveryAddress = patch.DeliveryAddress
		}
		if patch.DeliveryContact != nil {
			d.DeliveryContact = patch.DeliveryContact
		}
		d.AcceptedAt = &now
	case StatusInTransit:
		if patch.Assignee != nil {
			id := patch.Assignee.ID
			d.VolunteerID = &id
		}
		d.PickupAt = &now
	case StatusDelivered:
		at := now
		if patch.DeliveredAt != nil {
			at = *patch.DeliveredAt
		}
		d.DeliveredAt = &at
	}
	s.donations[id] = d
	s.mu.Unlock()

	s.bus.Notify(ctx, realtime.TopicDonations)
	return true, nil
}

func (s *MemStore) ListByStatus(_ context.Context, status Status, foodType string) ([]Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Donation
	for _, d := range s.donations {
		if d.Status == status && (foodType == "" || d.FoodType == foodType) {
			out = append(out, d)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *MemStore) ListByDonor(_ context.Context, donorID types.ID) ([]Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Donation
	for _, d := range s.donations {
		if d.DonorID == donorID {
			out = append(out, d)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// Insertion sort; result sets here are small.
func sortByCreatedAt(items []Donation) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && items[j].CreatedAt.After(key.CreatedAt) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
