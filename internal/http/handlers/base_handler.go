// README: Base handler utilities (JSON helpers, error mapping, actor lookup).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mealbridge/internal/modules/donation"
	"mealbridge/internal/modules/pickup"
	"mealbridge/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// actorID is the verified identity placed by the auth middleware. The core
// never reads it implicitly; handlers thread it through as a parameter.
func actorID(c *gin.Context) types.ID {
	return types.ID(c.GetString("actor_id"))
}

func actorName(c *gin.Context) string {
	return c.GetString("actor_name")
}

func writeDonationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, donation.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, donation.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, donation.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writePickupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pickup.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pickup.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, pickup.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, pickup.ErrInvalidTransition):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pickup.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
