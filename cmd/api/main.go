package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/rudzz/marketplace/internal/adapters/cache"
	"github.com/rudzz/marketplace/internal/adapters/database"
	"github.com/rudzz/marketplace/internal/adapters/events"
	"github.com/rudzz/marketplace/internal/api/handlers"
	"github.com/rudzz/marketplace/internal/api/middleware"
	"github.com/rudzz/marketplace/internal/api/routes"
	"github.com/rudzz/marketplace/internal/bootstrap"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	"github.com/rudzz/marketplace/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment(), cfg.Log.Level)
	if cfg.Secrets.Enabled {
		log.Info().Str("path", cfg.Secrets.Path).Int("loaded", cfg.Secrets.Loaded).Int("skipped", cfg.Secrets.Skipped).Msg("secrets loaded from Vault")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	otelMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := observability.NewHTTPMetrics(cfg.OTEL.ServiceName, registry)
	domainMetrics := observability.NewDomainMetrics(registry)

	// Storage
	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	if store.DB != nil && cfg.Database.AutoMigrate {
		if err := database.ApplySchema(ctx, store.DB.DB()); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	readiness := map[string]handlers.ReadinessCheck{
		"store": store.Ping,
	}

	// Redis backs realtime fan-out and rate limit counters; without it the
	// process runs on the local event bus and in-process windows.
	var (
		eventBus providers.EventBus
		cacheP   providers.CacheProvider
	)
	redisClient, err := bootstrap.OpenRedis(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, using local event bus")
	}
	if redisClient != nil {
		defer redisClient.Close()
		eventBus = events.NewRedisEventBus(redisClient)
		cacheP = cache.NewRedisAdapter(redisClient)
		readiness["redis"] = redisClient.Ping
	} else {
		eventBus = events.NewLocalEventBus()
	}

	opts := bootstrap.Options{
		EventBus:  eventBus,
		UserCache: cacheP,
		Metrics:   domainMetrics,
	}
	index, _, err := bootstrap.OpenListingIndex(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable, searching the database only")
	}
	if index != nil {
		opts.ListingIndex = index
	}

	svc := bootstrap.NewServices(store, bootstrap.NewTokenIssuer(&cfg.Auth), opts)

	mw := routes.Middlewares{
		Auth:          middleware.NewAuthenticator(svc.Auth),
		Prometheus:    middleware.PrometheusMiddleware(httpMetrics),
		Observability: middleware.ObservabilityMiddleware(otelMetrics),
		CORS:          middleware.CORSMiddleware(cfg.CORS.AllowedOrigins),
	}
	if cfg.RateLimit.Enabled {
		mw.RateLimit = middleware.NewRateLimiter(cacheP, cfg.RateLimit.Requests, cfg.RateLimit.Window,
			"/health", "/ready", "/metrics")
	}

	router := routes.NewRouter(routes.Handlers{
		Auth:      handlers.NewAuthHandler(svc.Auth),
		Users:     handlers.NewUserHandler(svc.Users),
		Providers: handlers.NewProviderHandler(svc.Directory),
		Reviews:   handlers.NewReviewHandler(svc.Reviews),
		Messages:  handlers.NewMessageHandler(svc.Messages),
		Blog:      handlers.NewBlogHandler(svc.Blog),
		Health:    handlers.NewHealthHandler(readiness),
		SSE:       handlers.NewSSEHandler(eventBus),
		WebSocket: handlers.NewWebSocketHandler(eventBus, cfg.CORS.AllowedOrigins),
		Metrics:   observability.PrometheusHandler(registry),
	}, mw)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// no WriteTimeout: SSE and WebSocket responses are long-lived
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("storage", cfg.Storage.Driver).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Closing the bus ends open streams before Shutdown waits on them
	if err := eventBus.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing event bus")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
