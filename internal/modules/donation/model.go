// README: Donation aggregate and status definitions.
package donation

import (
	"time"

	"mealbridge/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusAvailable Status = "available"
	StatusAccepted  Status = "accepted"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
)

type Donation struct {
	ID            types.ID
	DonorID       types.ID
	DonorName     string
	RecipientID   *types.ID
	RecipientName *string
	VolunteerID   *types.ID
	FoodType      string
	Quantity      float64
	Unit          string
	PickupAddress string
	PickupCity    string
	PickupLat     *float64
	PickupLng     *float64
	// Delivery destination, captured when the recipient accepts.
	DeliveryAddress *string
	DeliveryContact *string
	ExpiryDate      time.Time
	// HandlingNotes is best-effort AI enrichment; empty when the advisor is
	// absent or failed.
	HandlingNotes string
	Status        Status
	StatusVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AcceptedAt    *time.Time
	PickupAt      *time.Time
	DeliveredAt   *time.Time
}

// AllowedTransitions is the donation lifecycle as code: strictly forward,
// no regression, no skip. Delivered is terminal and permanent.
var AllowedTransitions = map[Status]Status{
	StatusAvailable: StatusAccepted,
	StatusAccepted:  StatusInTransit,
	StatusInTransit: StatusDelivered,
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	return ok && next == to
}

// Assignee identifies the party a status transition binds to the donation:
// the recipient on accept, the volunteer on claim.
type Assignee struct {
	ID   types.ID
	Name string
}
