// README: Pickup handlers for the volunteer's queue, advances and history.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mealbridge/internal/modules/pickup"
	"mealbridge/internal/types"
)

type PickupHandler struct {
	pickups *pickup.Service
}

func NewPickupHandler(pickups *pickup.Service) *PickupHandler {
	return &PickupHandler{pickups: pickups}
}

func (h *PickupHandler) Get(c *gin.Context) {
	p, err := h.pickups.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writePickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPickupView(*p))
}

func (h *PickupHandler) ListMine(c *gin.Context) {
	set, err := h.pickups.ListByVolunteer(c.Request.Context(), actorID(c))
	if err != nil {
		writePickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPickupViews(set))
}

type advanceReq struct {
	To string `json:"to"`
}

func (h *PickupHandler) Advance(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" {
		writeError(c, http.StatusBadRequest, "missing target status")
		return
	}
	err := h.pickups.Advance(c.Request.Context(), pickup.AdvanceCommand{
		PickupID: types.ID(c.Param("id")),
		To:       pickup.Status(req.To),
		ActorID:  actorID(c),
	})
	if err != nil {
		writePickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.To})
}

func (h *PickupHandler) History(c *gin.Context) {
	events, err := h.pickups.History(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writePickupError(c, err)
		return
	}
	out := make([]eventView, len(events))
	for i, e := range events {
		out[i] = eventView{
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			ActorID:    e.ActorID,
			Lat:        e.Lat,
			Lng:        e.Lng,
			RecordedAt: e.RecordedAt,
		}
	}
	c.JSON(http.StatusOK, out)
}

type eventView struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    types.ID  `json:"actor_id"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

type pickupView struct {
	ID             types.ID   `json:"id"`
	DonationID     types.ID   `json:"donation_id"`
	VolunteerID    types.ID   `json:"volunteer_id"`
	Status         string     `json:"status"`
	FoodType       string     `json:"food_type"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit"`
	PickupAddress  string     `json:"pickup_address"`
	PickupContact  string     `json:"pickup_contact"`
	HandlingNotes  string     `json:"handling_notes,omitempty"`
	DropoffAddress string     `json:"dropoff_address"`
	DropoffContact string     `json:"dropoff_contact"`
	CurrentLat     *float64   `json:"current_lat,omitempty"`
	CurrentLng     *float64   `json:"current_lng,omitempty"`
	LastLocationAt *time.Time `json:"last_location_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

func toPickupView(p pickup.Pickup) pickupView {
	return pickupView{
		ID:             p.ID,
		DonationID:     p.DonationID,
		VolunteerID:    p.VolunteerID,
		Status:         string(p.Status),
		FoodType:       p.FoodType,
		Quantity:       p.Quantity,
		Unit:           p.Unit,
		PickupAddress:  p.PickupAddress,
		PickupContact:  p.PickupContact,
		HandlingNotes:  p.HandlingNotes,
		DropoffAddress: p.DropoffAddress,
		DropoffContact: p.DropoffContact,
		CurrentLat:     p.CurrentLat,
		CurrentLng:     p.CurrentLng,
		LastLocationAt: p.LastLocationAt,
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt,
		DeliveredAt:    p.DeliveredAt,
		CancelledAt:    p.CancelledAt,
	}
}

func toPickupViews(set []pickup.Pickup) []pickupView {
	out := make([]pickupView, len(set))
	for i, p := range set {
		out[i] = toPickupView(p)
	}
	return out
}
