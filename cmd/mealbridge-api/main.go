// README: Entry point; loads config, wires services, starts HTTP server and background workers.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mealbridge/internal/ai"
	"mealbridge/internal/config"
	httptransport "mealbridge/internal/http"
	"mealbridge/internal/infra"
	"mealbridge/internal/logging"
	"mealbridge/internal/maps"
	"mealbridge/internal/modules/donation"
	"mealbridge/internal/modules/location"
	"mealbridge/internal/modules/pickup"
	"mealbridge/internal/modules/realtime"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New("mealbridge-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("MB_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	bus := realtime.NewRedisBus(redisClient)

	var geocoder donation.Geocoder
	if cfg.Maps.APIKey != "" {
		gc, err := maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		geocoder = gc
	}

	var advisor donation.Advisor
	if cfg.AI.GeminiKey != "" {
		adv, err := ai.NewGeminiAdvisor(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini init: %v", err)
		}
		defer adv.Close()
		advisor = adv
	}

	donationStore := donation.NewPGStore(dbPool, bus)
	donationSvc := donation.NewService(donationStore, geocoder, advisor, logger)

	locationStore := location.NewStore(redisClient)
	// the GEO store doubles as the position source, so no mirror store
	tracker := location.NewTracker(locationStore, nil, cfg.Tracking.CaptureTimeout, logger)

	pickupStore := pickup.NewPGStore(dbPool, bus)
	pickupSvc := pickup.NewService(pickupStore, donationSvc, tracker, logger)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Donations:  donationSvc,
		Pickups:    pickupSvc,
		Volunteers: locationStore,
		Bus:        bus,
		Verifier:   verifier,
		PollEvery:  cfg.Realtime.PollInterval,
		Log:        logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go pickupSvc.RunDeliveryReconciler(ctx, time.Minute)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
