// README: HTTP router registration.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mealbridge/internal/http/handlers"
	"mealbridge/internal/http/middleware"
	"mealbridge/internal/infra"
	"mealbridge/internal/modules/donation"
	"mealbridge/internal/modules/location"
	"mealbridge/internal/modules/pickup"
	"mealbridge/internal/modules/realtime"
)

type RouterDeps struct {
	Donations  *donation.Service
	Pickups    *pickup.Service
	Volunteers *location.Store
	Bus        realtime.Bus
	Verifier   infra.TokenVerifier
	PollEvery  time.Duration
	Log        zerolog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	donationHandler := handlers.NewDonationHandler(deps.Donations, deps.Pickups)
	api.POST("/donations", donationHandler.Create)
	api.GET("/donations", donationHandler.ListAvailable)
	api.GET("/donations/mine", donationHandler.ListMine)
	api.GET("/donations/:id", donationHandler.Get)
	api.POST("/donations/:id/accept", donationHandler.Accept)
	api.POST("/donations/:id/claim", donationHandler.Claim)

	pickupHandler := handlers.NewPickupHandler(deps.Pickups)
	api.GET("/pickups", pickupHandler.ListMine)
	api.GET("/pickups/:id", pickupHandler.Get)
	api.POST("/pickups/:id/advance", pickupHandler.Advance)
	api.GET("/pickups/:id/history", pickupHandler.History)

	locationHandler := handlers.NewLocationHandler(deps.Volunteers)
	api.PUT("/location", locationHandler.Report)

	feedHandler := handlers.NewFeedHandler(deps.Donations, deps.Pickups, deps.Volunteers, deps.Bus, deps.PollEvery, deps.Log)
	api.GET("/feeds/deliveries", feedHandler.Deliveries)
	api.GET("/feeds/queue", feedHandler.Queue)
	api.GET("/volunteers/nearby", feedHandler.NearbyVolunteers)

	return r
}
