// README: Location handler; volunteers report their device position here.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mealbridge/internal/modules/location"
	"mealbridge/internal/types"
)

type LocationHandler struct {
	store *location.Store
}

func NewLocationHandler(store *location.Store) *LocationHandler {
	return &LocationHandler{store: store}
}

type reportLocationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Report stores the caller's current position. The tracker reads this back
// as the device position during status advances.
func (h *LocationHandler) Report(c *gin.Context) {
	var req reportLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.store.SetVolunteer(c.Request.Context(), actorID(c), types.Point{Lat: req.Lat, Lng: req.Lng}); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.Status(http.StatusNoContent)
}
