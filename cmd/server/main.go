package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/notification-hub/internal/api"
	"github.com/Priya8975/notification-hub/internal/config"
	"github.com/Priya8975/notification-hub/internal/engine"
	"github.com/Priya8975/notification-hub/internal/metrics"
	"github.com/Priya8975/notification-hub/internal/store"
	ws "github.com/Priya8975/notification-hub/internal/websocket"
	"github.com/Priya8975/notification-hub/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Initialize Redis
	redisClient, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	var registry store.Registry
	switch cfg.RegistryBackend {
	case config.RegistryMemory:
		registry = store.NewMemoryRegistry()
	default:
		registry = store.NewRedisRegistry(redisClient)
	}
	logger.Info("subscriber registry ready", "backend", cfg.RegistryBackend)

	// Initialize the delivery log when a database is configured
	var (
		recorder    worker.Recorder = store.DiscardLog{}
		deliveryLog api.DeliveryLog
	)
	if cfg.DeliveryLogEnabled() {
		pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		logger.Info("connected to PostgreSQL")

		if err := pgStore.RunMigrations(ctx); err != nil {
			return err
		}
		logger.Info("database migrations applied")

		recorder = pgStore
		deliveryLog = pgStore
	} else {
		logger.Warn("DATABASE_URL not set, delivery log disabled")
	}

	promRegistry := metrics.NewRegistry()
	m := metrics.New(promRegistry)

	// Background components share workCtx; it is cancelled only after the
	// pool has drained so in-flight deliveries can finish.
	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	hub := ws.NewHub(logger)
	go hub.Run(workCtx)

	fanout := engine.NewFanOutEngine(registry, redisClient, m, cfg.MaxAttempts, logger)
	circuitBreaker := engine.NewCircuitBreaker(redisClient, cfg.CBFailureThreshold, cfg.CBCooldown, logger)
	rateLimiter := engine.NewRateLimiter(redisClient, logger)

	deliverer := worker.NewDeliverer(
		worker.NewHTTPClient(cfg.HTTPClientTimeout, cfg.HTTPRetryCount),
		recorder,
		fanout,
		circuitBreaker,
		rateLimiter,
		hub,
		m,
		worker.DelivererOptions{
			SigningSecret:      cfg.SigningSecret,
			RateLimitPerSecond: cfg.RateLimitPerSecond,
		},
		logger,
	)

	pool := worker.NewPool(cfg.NumWorkers, deliverer, logger)
	pool.Start(workCtx)

	dispatchCtx, stopDispatch := context.WithCancel(workCtx)
	defer stopDispatch()

	dispatcher := worker.NewDispatcher(redisClient, pool, cfg.PollInterval, logger)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Start(dispatchCtx)
	}()

	router := api.NewRouter(api.Dependencies{
		Registry:    registry,
		FanOut:      fanout,
		Breaker:     circuitBreaker,
		Hub:         hub,
		Metrics:     m,
		Gatherer:    promRegistry,
		DeliveryLog: deliveryLog,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var listenErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down server...", "signal", sig.String())
	case listenErr = <-serverErr:
		logger.Error("server error", "error", listenErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	stopDispatch()
	<-dispatchDone
	pool.Stop()
	cancelWork()

	logger.Info("server stopped")
	return listenErr
}
