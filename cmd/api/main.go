package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/reservapr/booking-api/internal/config"
	"github.com/reservapr/booking-api/internal/handler"
	appointmentHandler "github.com/reservapr/booking-api/internal/handler/appointment"
	availabilityHandler "github.com/reservapr/booking-api/internal/handler/availability"
	bookingHandler "github.com/reservapr/booking-api/internal/handler/booking"
	businessHandler "github.com/reservapr/booking-api/internal/handler/business"
	catalogHandler "github.com/reservapr/booking-api/internal/handler/catalog"
	recurringHandler "github.com/reservapr/booking-api/internal/handler/recurring"
	staffHandler "github.com/reservapr/booking-api/internal/handler/staff"
	"github.com/reservapr/booking-api/internal/middleware"
	"github.com/reservapr/booking-api/internal/repository/postgres"
	"github.com/reservapr/booking-api/internal/router"
	availabilityService "github.com/reservapr/booking-api/internal/service/availability"
	businessService "github.com/reservapr/booking-api/internal/service/business"
	catalogService "github.com/reservapr/booking-api/internal/service/catalog"
	eventService "github.com/reservapr/booking-api/internal/service/event"
	recurringService "github.com/reservapr/booking-api/internal/service/recurring"
	schedulingService "github.com/reservapr/booking-api/internal/service/scheduling"
	staffService "github.com/reservapr/booking-api/internal/service/staff"
	"github.com/reservapr/booking-api/pkg/logger"
	"github.com/reservapr/booking-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(cfg.Logging.Level)
	log.Logger = appLogger

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	businessRepo := postgres.NewBusinessRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	recurringRepo := postgres.NewRecurringRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	cache := gocache.New(5*time.Minute, 10*time.Minute)
	businessSvc := businessService.NewService(businessRepo, cache)
	staffSvc := staffService.NewService(staffRepo)
	catalogSvc := catalogService.NewService(serviceRepo)
	availabilitySvc := availabilityService.NewService(availabilityRepo, appLogger)
	schedulingSvc := schedulingService.NewService(
		appointmentRepo, availabilityRepo, serviceRepo, businessRepo, cache, appLogger)
	eventSvc := eventService.NewService(outboxRepo)
	recurringSvc := recurringService.NewService(
		recurringRepo, appointmentRepo, serviceRepo, businessRepo, eventSvc,
		schedulingSvc, appLogger)

	// Handlers
	m := metrics.New("booking_api")
	h := handler.NewHandler(db)
	r := router.NewRouter(h, m,
		router.RouterConfig{
			RateLimit:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:  cfg.RateLimit.Burst,
			Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
		businessHandler.NewHandler(businessSvc),
		staffHandler.NewHandler(staffSvc),
		catalogHandler.NewHandler(catalogSvc),
		availabilityHandler.NewHandler(availabilitySvc),
		bookingHandler.NewHandler(schedulingSvc, m),
		appointmentHandler.NewHandler(schedulingSvc),
		recurringHandler.NewHandler(recurringSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
