// README: Pickup aggregate, the canonical step ordering and the audit event.
package pickup

import (
	"time"

	"mealbridge/internal/types"
)

type Status string

const (
	StatusNone               Status = ""
	StatusAssigned           Status = "assigned"
	StatusStartedForPickup   Status = "started_for_pickup"
	StatusAtPickupLocation   Status = "at_pickup_location"
	StatusPickupComplete     Status = "pickup_complete"
	StatusInTransit          Status = "in_transit"
	StatusAtDeliveryLocation Status = "at_delivery_location"
	StatusDelivered          Status = "delivered"
	StatusCancelled          Status = "cancelled"
)

// StepOrder is the canonical delivery walk. Every pickup advances through it
// one step at a time; cancelled is the only exit and is reachable from any
// non-terminal step.
var StepOrder = []Status{
	StatusAssigned,
	StatusStartedForPickup,
	StatusAtPickupLocation,
	StatusPickupComplete,
	StatusInTransit,
	StatusAtDeliveryLocation,
	StatusDelivered,
}

// NextStatus returns the step after current, or false when current is
// terminal or unknown.
func NextStatus(current Status) (Status, bool) {
	for i, s := range StepOrder {
		if s == current {
			if i+1 < len(StepOrder) {
				return StepOrder[i+1], true
			}
			return StatusNone, false
		}
	}
	return StatusNone, false
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether from→to is legal: the single next step, or a
// cancel from any non-terminal state. No regression, no skip.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !IsTerminal(from) && from != StatusNone
	}
	next, ok := NextStatus(from)
	return ok && next == to
}

type Pickup struct {
	ID          types.ID
	DonationID  types.ID
	DonorID     types.ID
	RecipientID types.ID
	VolunteerID types.ID
	Status      Status
	// StatusVersion guards the conditional write on every transition.
	StatusVersion int
	FoodType      string
	Quantity      float64
	Unit          string
	PickupAddress string
	PickupContact string
	// HandlingNotes travels with the task so the volunteer sees it offline.
	HandlingNotes   string
	DropoffAddress  string
	DropoffContact  string
	CurrentLat      *float64
	CurrentLng      *float64
	LastLocationAt  *time.Time
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedPickupAt *time.Time
	AtPickupAt      *time.Time
	PickedUpAt      *time.Time
	InTransitAt     *time.Time
	AtDeliveryAt    *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// Event is one committed status transition. Events are append-only, never
// mutated or deleted, and RecordedAt is assigned by the store so the walk
// reads back in true commit order regardless of client clocks.
type Event struct {
	ID         int64
	PickupID   types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    types.ID
	Lat        *float64
	Lng        *float64
	RecordedAt time.Time
}
