package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Engine   AvailabilityQueries
	Bookings BookingService
	Cache    AvailabilityCache
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   zerolog.Logger
	Env      string
	Version  string
	// DefaultGranularityMinutes applies when a request carries no
	// granularity parameter. Zero means service-duration slots.
	DefaultGranularityMinutes int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/practitioners/{id}/services/{serviceID}", func(r chi.Router) {
		r.Get("/availability", availabilityHandler(cfg.Engine, cfg.Cache, cfg.DefaultGranularityMinutes))
		r.Get("/next-available", nextAvailableHandler(cfg.Engine))
	})

	r.Post("/bookings", createBookingHandler(cfg.Bookings))
	r.Post("/bookings/{id}/confirm", confirmBookingHandler(cfg.Bookings))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Bookings))

	return r
}
