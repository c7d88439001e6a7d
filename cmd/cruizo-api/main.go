// README: Entry point; loads config, wires services, starts HTTP server and background jobs.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/config"
	httptransport "github.com/J-SURYA/cruizo-backend-sub000/internal/http"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/infra"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/jobs"
	geocode "github.com/J-SURYA/cruizo-backend-sub000/internal/maps"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/availability"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/booking"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/fleet"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/freeze"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/ledger"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/notify"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/payment"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/pricing"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/storage"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	blobs, err := storage.NewCloudinaryBlobs(cfg.Cloudinary.URL)
	if err != nil {
		log.Fatalf("cloudinary init: %v", err)
	}

	var geocoder booking.Geocoder
	if cfg.Maps.APIKey != "" {
		geocoder, err = geocode.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
	}

	hub := types.Point{Lat: cfg.Hub.Lat, Lng: cfg.Hub.Lng}

	fleetStore := fleet.NewPGStore(dbPool)
	ledgerStore := ledger.NewPGStore(dbPool)
	notifyStore := notify.NewPGStore(dbPool)

	pricingSvc := pricing.NewService(pricing.NewPGStore(dbPool))

	availabilitySvc := availability.NewService(availability.NewPGStore(dbPool),
		cfg.Booking.HorizonDays, cfg.Booking.TurnaroundHours, cfg.Booking.MinDurationHours)

	paymentStore := payment.NewPGStore(dbPool)
	paymentSvc := payment.NewService(paymentStore)

	bookingStore := booking.NewPGStore(dbPool)
	freezeStore := freeze.NewPGStore(dbPool)

	freezeSvc := freeze.NewService(freeze.Deps{
		Store:            freezeStore,
		Holds:            freeze.NewRedisHolds(redisClient),
		Cars:             fleetStore,
		Customers:        ledgerStore,
		Availability:     availabilitySvc,
		CustomerBookings: bookingStore,
		Eligibility:      ledger.NewVerificationGate(dbPool),
		Pricer:           pricingSvc,
		Hub:              hub,
		TTL:              cfg.Booking.FreezeTTL,
		Turnaround:       time.Duration(cfg.Booking.TurnaroundHours) * time.Hour,
		MinDuration:      time.Duration(cfg.Booking.MinDurationHours) * time.Hour,
		HorizonDays:      cfg.Booking.HorizonDays,
	})

	bookingSvc := booking.NewService(booking.Deps{
		Store:        bookingStore,
		Freezes:      freezeStore,
		Cars:         fleetStore,
		Ledger:       ledgerStore,
		Availability: availabilitySvc,
		Pricer:       pricingSvc,
		Payments:     paymentStore,
		Notifier:     notifyStore,
		Blobs:        blobs,
		Geocoder:     geocoder,
		Hub:          hub,
		Turnaround:   time.Duration(cfg.Booking.TurnaroundHours) * time.Hour,
	})

	cleanup, err := jobs.StartFreezeCleanup(cfg.Jobs.FreezeCleanupSpec, freezeSvc)
	if err != nil {
		log.Fatalf("freeze cleanup schedule: %v", err)
	}
	defer cleanup.Stop()

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Freeze:        freezeSvc,
		Booking:       bookingSvc,
		Payment:       paymentSvc,
		Availability:  availabilitySvc,
		Notifications: notifyStore,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
