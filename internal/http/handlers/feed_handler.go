// README: Live feed handlers; SSE streams of full-set snapshots plus the nearby-volunteer view.
package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mealbridge/internal/modules/donation"
	"mealbridge/internal/modules/location"
	"mealbridge/internal/modules/pickup"
	"mealbridge/internal/modules/realtime"
	"mealbridge/internal/types"
)

type FeedHandler struct {
	donations *donation.Service
	pickups   *pickup.Service
	volunteers *location.Store
	bus       realtime.Bus
	poll      time.Duration
	log       zerolog.Logger
}

func NewFeedHandler(donations *donation.Service, pickups *pickup.Service, volunteers *location.Store, bus realtime.Bus, poll time.Duration, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		donations:  donations,
		pickups:    pickups,
		volunteers: volunteers,
		bus:        bus,
		poll:       poll,
		log:        log,
	}
}

// Deliveries streams the full set of accepted donations (the "available
// deliveries" board) as SSE. Every event replaces the previous set.
func (h *FeedHandler) Deliveries(c *gin.Context) {
	sub := realtime.Watch(c.Request.Context(), h.bus, h.log, realtime.TopicDonations, h.poll,
		func(ctx context.Context) ([]donation.Donation, error) {
			return h.donations.ListAccepted(ctx)
		})
	defer sub.Close()

	streamSnapshots(c, sub, toDonationViews)
}

// Queue streams the calling volunteer's pickup queue as SSE.
func (h *FeedHandler) Queue(c *gin.Context) {
	volunteer := actorID(c)
	sub := realtime.Watch(c.Request.Context(), h.bus, h.log, realtime.TopicPickups, h.poll,
		func(ctx context.Context) ([]pickup.Pickup, error) {
			return h.pickups.ListByVolunteer(ctx, volunteer)
		})
	defer sub.Close()

	streamSnapshots(c, sub, toPickupViews)
}

func streamSnapshots[T, V any](c *gin.Context, sub *realtime.Subscription[T], view func([]T) []V) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(_ io.Writer) bool {
		set, ok := <-sub.Updates()
		if !ok {
			return false
		}
		c.SSEvent("snapshot", view(set))
		return true
	})
}

// NearbyVolunteers lists volunteer ids around a point, closest first. Fed by
// the tracker's best-effort GEO writes, so it is advisory only.
func (h *FeedHandler) NearbyVolunteers(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radiusKm := 5.0
	if v := c.Query("radius_km"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			radiusKm = r
		}
	}

	hits, err := h.volunteers.NearbyVolunteers(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radiusKm)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]gin.H, len(hits))
	for i, v := range hits {
		out[i] = gin.H{
			"volunteer_id": v.ID,
			"lat":          v.Point.Lat,
			"lng":          v.Point.Lng,
			"distance_km":  v.DistanceKm,
		}
	}
	c.JSON(http.StatusOK, gin.H{"volunteers": out})
}
