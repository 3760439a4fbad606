package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/reservapr/booking-api/internal/config"
	"github.com/reservapr/booking-api/internal/email"
	"github.com/reservapr/booking-api/internal/repository/postgres"
	eventService "github.com/reservapr/booking-api/internal/service/event"
	recurringService "github.com/reservapr/booking-api/internal/service/recurring"
	schedulingService "github.com/reservapr/booking-api/internal/service/scheduling"
	"github.com/reservapr/booking-api/pkg/logger"
	"github.com/reservapr/booking-api/pkg/messaging/redis"
	"github.com/reservapr/booking-api/pkg/metrics"
	"github.com/reservapr/booking-api/pkg/worker"
)

func setupHealthCheck(port int, appLogger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(cfg.Logging.Level)
	log.Logger = appLogger

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	// Repositories
	businessRepo := postgres.NewBusinessRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	recurringRepo := postgres.NewRecurringRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.New("booking_worker")

	// Outbox processor: drains pending events to the broker.
	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Worker.OutboxBatchSize,
			PollInterval:  cfg.Worker.OutboxPollInterval,
			RetryAttempts: cfg.Worker.OutboxRetryAttempts,
			RetryDelay:    cfg.Worker.OutboxRetryDelay,
		},
		appLogger,
		m,
	)

	// Recurring expander: materializes upcoming series occurrences through
	// the same guarded booking path the API uses.
	cache := gocache.New(5*time.Minute, 10*time.Minute)
	schedulingSvc := schedulingService.NewService(
		appointmentRepo, availabilityRepo, serviceRepo, businessRepo, cache, appLogger)
	eventSvc := eventService.NewService(outboxRepo)
	recurringSvc := recurringService.NewService(
		recurringRepo, appointmentRepo, serviceRepo, businessRepo, eventSvc,
		schedulingSvc, appLogger)
	expander := worker.NewRecurringExpander(
		recurringSvc,
		cfg.Worker.ExpandInterval,
		cfg.Worker.ExpandHorizonDays,
		appLogger,
		m,
	)

	setupHealthCheck(cfg.Worker.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info().Msg("shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		expander.Start(ctx)
	}()

	// Email notifier only runs when SMTP is configured.
	if cfg.Email.Enabled {
		sender := email.NewSMTPService(
			cfg.Email.Host, cfg.Email.Port, cfg.Email.Username, cfg.Email.Password, cfg.Email.From)
		notifier := worker.NewNotifier(broker, sender, businessRepo, appLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := notifier.Start(ctx); err != nil {
				appLogger.Error().Err(err).Msg("notifier stopped")
			}
		}()
	}

	wg.Wait()
}
