package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rudzz/marketplace/internal/adapters/cache"
	"github.com/rudzz/marketplace/internal/adapters/events"
	"github.com/rudzz/marketplace/internal/api/handlers"
	"github.com/rudzz/marketplace/internal/api/middleware"
	"github.com/rudzz/marketplace/internal/bootstrap"
	"github.com/rudzz/marketplace/internal/infrastructure/clients/redis"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	"github.com/rudzz/marketplace/pkg/config"
)

// The stream gateway serves only the realtime endpoints. API instances
// publish through Redis and any gateway instance delivers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger("marketplace-stream", cfg.Environment(), cfg.Log.Level)
	log.Info().Msg("starting stream gateway")
	if cfg.Secrets.Enabled {
		log.Info().Str("path", cfg.Secrets.Path).Int("loaded", cfg.Secrets.Loaded).Int("skipped", cfg.Secrets.Skipped).Msg("secrets loaded from Vault")
	}

	// Redis is required: the gateway has no local publishers
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)

	// Tokens are resolved against the account store so disabled users are cut off
	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	svc := bootstrap.NewServices(store, bootstrap.NewTokenIssuer(&cfg.Auth), bootstrap.Options{
		UserCache: cache.NewRedisAdapter(redisClient),
	})
	auth := middleware.NewAuthenticator(svc.Auth)

	sseHandler := handlers.NewSSEHandler(eventBus)
	wsHandler := handlers.NewWebSocketHandler(eventBus, cfg.CORS.AllowedOrigins)
	health := handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
		"redis": redisClient.Ping,
		"store": store.Ping,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.Handle("GET /api/stream/messages", auth.RequireStreamAuth(http.HandlerFunc(sseHandler.StreamMessages)))
	mux.Handle("GET /api/ws", auth.RequireStreamAuth(http.HandlerFunc(wsHandler.Serve)))

	mux.HandleFunc("GET /api/stream/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"sse_clients": %d, "websocket_clients": %d}`, sseHandler.ConnectionCount(), wsHandler.ConnectionCount())
	})

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.RouteLabel(mux)(handler)
	handler = middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("stream gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("stream gateway shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := eventBus.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing event bus")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("stream gateway stopped")
}
