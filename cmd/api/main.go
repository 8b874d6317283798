package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	server "realestate/internal/adapters/http_server"
	"realestate/internal/adapters/observability"
	redisad "realestate/internal/adapters/redis"
	"realestate/internal/app"
	"realestate/internal/domain"
	"realestate/internal/shared"
	"realestate/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "listings-api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store init failed")
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("store close failed")
		}
	}()

	// cache is optional; REDIS_ADDR unset disables it
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, cache disabled")
			_ = rc.Close()
		} else {
			cache = rc
			defer rc.Close()
		}
	}

	// deps
	alloc := app.NewAllocator(backend.Listings, backend.Sequences, app.AllocatorConfig{
		Strategy:   cfg.IDStrategy,
		MaxRetries: cfg.IDMaxRetries,
		Fallback:   cfg.IDFallback,
	})
	cmd := app.NewListingService(backend.Listings, alloc, backend.Sequences, cache, cfg.IDMaxRetries)
	q := app.NewQueryService(backend.Listings, cache, cfg.CacheTTL)

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Cmd: cmd, Q: q, MaxBodyBytes: cfg.MaxBodyBytes})

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-User-ID", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "X-Request-Id"},
	}).Handler(srv.Mux())

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("store", cfg.StoreDriver).
			Str("id_strategy", alloc.Strategy()).
			Bool("cache", cache != nil).
			Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
