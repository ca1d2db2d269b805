package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/booking-engine/internal/config"
	appointmenthandler "github.com/jwalitptl/booking-engine/internal/handler/appointment"
	assignmenthandler "github.com/jwalitptl/booking-engine/internal/handler/assignment"
	calendarhandler "github.com/jwalitptl/booking-engine/internal/handler/calendar"
	cataloghandler "github.com/jwalitptl/booking-engine/internal/handler/catalog"
	"github.com/jwalitptl/booking-engine/internal/handler/health"
	paymenthandler "github.com/jwalitptl/booking-engine/internal/handler/payment"
	slothandler "github.com/jwalitptl/booking-engine/internal/handler/slot"
	workinghourhandler "github.com/jwalitptl/booking-engine/internal/handler/workinghour"
	"github.com/jwalitptl/booking-engine/internal/middleware"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/repository/memory"
	"github.com/jwalitptl/booking-engine/internal/repository/postgres"
	"github.com/jwalitptl/booking-engine/internal/router"
	appointmentService "github.com/jwalitptl/booking-engine/internal/service/appointment"
	assignmentService "github.com/jwalitptl/booking-engine/internal/service/assignment"
	catalogService "github.com/jwalitptl/booking-engine/internal/service/catalog"
	eventService "github.com/jwalitptl/booking-engine/internal/service/event"
	paymentService "github.com/jwalitptl/booking-engine/internal/service/payment"
	slotService "github.com/jwalitptl/booking-engine/internal/service/slot"
	workingHourService "github.com/jwalitptl/booking-engine/internal/service/workinghour"
	"github.com/jwalitptl/booking-engine/internal/tracing"
	"github.com/jwalitptl/booking-engine/pkg/clock"
	"github.com/jwalitptl/booking-engine/pkg/idempotency"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/messaging/redis"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/payment"
)

func main() {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(err, "API server failed")
	}
	log.Info("Server exited properly")
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Format == "console",
	})
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error(err, "Failed to flush traces")
		}
	}()

	m := metrics.NewMetrics(cfg.Monitoring.Namespace, prometheus.DefaultRegisterer)
	checks := map[string]health.Pinger{}

	// Storage
	var repos *repository.Repositories
	switch cfg.Storage.Driver {
	case "memory":
		repos, _ = memory.NewRepositories()
		log.Warn("Using in-memory storage; data is lost on restart")
	default:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			return err
		}
		log.Info("Database migrated", "applied", applied)
		repos = postgres.NewRepositories(db)
		checks["database"] = db
	}

	// Idempotency store for payment webhooks
	var store idempotency.Store
	switch cfg.Idempotency.Backend {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
		if err != nil {
			return err
		}
		defer client.Close()
		store = idempotency.NewRedisStore(client)
		checks["redis"] = health.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	default:
		store = idempotency.NewMemoryStore(cfg.Idempotency.TTL, 10*time.Minute)
	}

	var gateway payment.Gateway
	switch cfg.Payment.Gateway {
	case "http":
		gateway = payment.NewHTTPGateway(payment.HTTPConfig{
			BaseURL:       cfg.Payment.BaseURL,
			APIKey:        cfg.Payment.APIKey,
			Timeout:       cfg.Payment.Timeout,
			FailureLimit:  cfg.Payment.FailureLimit,
			BreakerWindow: cfg.Payment.BreakerWindow,
		}, nil)
	default:
		gateway = payment.NewStaticGateway(cfg.Payment.BaseURL)
	}

	// Services
	clk := clock.System()
	events := eventService.NewEventService(repos.Outbox, log)
	workingHourSvc := workingHourService.NewService(repos.Transactor, repos.WorkingHours, events, log)
	slotSvc := slotService.NewService(repos, events, clk, loc, log, m)
	catalogSvc := catalogService.NewService(repos.Services, log)
	assignmentSvc := assignmentService.NewService(repos, events, loc, log, m)
	appointmentSvc := appointmentService.NewService(repos, events, clk, loc, log, m)
	paymentSvc := paymentService.NewService(repos, gateway, store, events, paymentService.Config{
		ReturnURL:      cfg.Payment.ReturnURL,
		IdempotencyTTL: cfg.Idempotency.TTL,
	}, log, m)

	// Router
	r := router.NewRouter(router.RouterConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.RateLimit.Enabled,
		RateRPS:        cfg.RateLimit.RequestsPerSecond,
		RateBurst:      cfg.RateLimit.Burst,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.Security.AllowedOrigins,
			AllowMethods: cfg.Security.AllowedMethods,
			AllowHeaders: cfg.Security.AllowedHeaders,
		},
		SizeLimit:   middleware.DefaultSizeLimitConfig(),
		ReleaseMode: !cfg.IsDevelopment(),
	}, log, m,
		health.NewHandler(checks, prometheus.DefaultGatherer),
		workinghourhandler.NewHandler(workingHourSvc),
		calendarhandler.NewHandler(clk, loc),
		slothandler.NewHandler(slotSvc, clk, loc),
		cataloghandler.NewHandler(catalogSvc),
		assignmenthandler.NewHandler(assignmentSvc),
		appointmenthandler.NewHandler(appointmentSvc),
		paymenthandler.NewHandler(paymentSvc),
	)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting API server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
