package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitalbook/scheduling/internal/api"
	"github.com/vitalbook/scheduling/internal/availability"
	"github.com/vitalbook/scheduling/internal/booking"
	"github.com/vitalbook/scheduling/internal/cache"
	"github.com/vitalbook/scheduling/internal/config"
	"github.com/vitalbook/scheduling/internal/db"
	"github.com/vitalbook/scheduling/internal/logging"
	redisclient "github.com/vitalbook/scheduling/internal/redis"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "api-server")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "api-server")
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	availRepo := availability.NewPgRepository(pgPool)
	engine := availability.NewEngine(availRepo, log)

	availCache := cache.NewAvailabilityCache(rdb, cfg.CacheTTL, log)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	bookings := booking.NewService(availRepo, engine, booking.NewPgRepository(pgPool), locker, availCache, cfg, log)

	router := api.NewRouter(api.RouterConfig{
		Engine:                    engine,
		Bookings:                  bookings,
		Cache:                     availCache,
		PgPool:                    pgPool,
		Redis:                     rdb,
		Logger:                    log,
		Env:                       cfg.Env,
		Version:                   version,
		DefaultGranularityMinutes: cfg.DefaultGranularityMinutes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}

	log.Info().Msg("api-server stopped")
}
