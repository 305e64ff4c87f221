// README: Donation handlers for listing, create, accept and claim.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mealbridge/internal/modules/donation"
	"mealbridge/internal/modules/pickup"
	"mealbridge/internal/types"
)

type DonationHandler struct {
	donations *donation.Service
	pickups   *pickup.Service
}

func NewDonationHandler(donations *donation.Service, pickups *pickup.Service) *DonationHandler {
	return &DonationHandler{donations: donations, pickups: pickups}
}

type createDonationReq struct {
	FoodType      string    `json:"food_type"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"`
	PickupAddress string    `json:"pickup_address"`
	PickupCity    string    `json:"pickup_city"`
	ExpiryDate    time.Time `json:"expiry_date"`
}

func (h *DonationHandler) Create(c *gin.Context) {
	var req createDonationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.donations.Create(c.Request.Context(), donation.CreateCommand{
		DonorID:       actorID(c),
		DonorName:     actorName(c),
		FoodType:      req.FoodType,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		PickupAddress: req.PickupAddress,
		PickupCity:    req.PickupCity,
		ExpiryDate:    req.ExpiryDate,
	})
	if err != nil {
		writeDonationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"donation_id": id, "status": donation.StatusAvailable})
}

func (h *DonationHandler) Get(c *gin.Context) {
	d, err := h.donations.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDonationError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDonationView(*d))
}

func (h *DonationHandler) ListAvailable(c *gin.Context) {
	set, err := h.donations.ListAvailable(c.Request.Context(), c.Query("food_type"))
	if err != nil {
		writeDonationError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDonationViews(set))
}

func (h *DonationHandler) ListMine(c *gin.Context) {
	set, err := h.donations.ListByDonor(c.Request.Context(), actorID(c))
	if err != nil {
		writeDonationError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDonationViews(set))
}

type acceptDonationReq struct {
	DeliveryAddress string `json:"delivery_address"`
	DeliveryContact string `json:"delivery_contact"`
}

func (h *DonationHandler) Accept(c *gin.Context) {
	var req acceptDonationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.donations.Accept(c.Request.Context(), donation.AcceptCommand{
		DonationID:      types.ID(c.Param("id")),
		RecipientID:     actorID(c),
		RecipientName:   actorName(c),
		DeliveryAddress: req.DeliveryAddress,
		DeliveryContact: req.DeliveryContact,
	})
	if err != nil {
		writeDonationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": donation.StatusAccepted})
}

type claimDonationReq struct {
	Notes string `json:"notes"`
}

// Claim creates the volunteer's delivery task for an accepted donation.
func (h *DonationHandler) Claim(c *gin.Context) {
	var req claimDonationReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	p, err := h.pickups.Claim(c.Request.Context(), pickup.ClaimCommand{
		DonationID:    types.ID(c.Param("id")),
		VolunteerID:   actorID(c),
		VolunteerName: actorName(c),
		Notes:         req.Notes,
	})
	if err != nil {
		writePickupError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPickupView(*p))
}

type donationView struct {
	ID            types.ID  `json:"id"`
	DonorID       types.ID  `json:"donor_id"`
	DonorName     string    `json:"donor_name"`
	RecipientID   *types.ID `json:"recipient_id,omitempty"`
	VolunteerID   *types.ID `json:"volunteer_id,omitempty"`
	FoodType      string    `json:"food_type"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"`
	PickupAddress string    `json:"pickup_address"`
	PickupCity    string    `json:"pickup_city"`
	PickupLat     *float64  `json:"pickup_lat,omitempty"`
	PickupLng     *float64  `json:"pickup_lng,omitempty"`
	ExpiryDate    time.Time `json:"expiry_date"`
	HandlingNotes string    `json:"handling_notes,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toDonationView(d donation.Donation) donationView {
	return donationView{
		ID:            d.ID,
		DonorID:       d.DonorID,
		DonorName:     d.DonorName,
		RecipientID:   d.RecipientID,
		VolunteerID:   d.VolunteerID,
		FoodType:      d.FoodType,
		Quantity:      d.Quantity,
		Unit:          d.Unit,
		PickupAddress: d.PickupAddress,
		PickupCity:    d.PickupCity,
		PickupLat:     d.PickupLat,
		PickupLng:     d.PickupLng,
		ExpiryDate:    d.ExpiryDate,
		HandlingNotes: d.HandlingNotes,
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt,
	}
}

func toDonationViews(set []donation.Donation) []donationView {
	out := make([]donationView, len(set))
	for i, d := range set {
		out[i] = toDonationView(d)
	}
	return out
}
