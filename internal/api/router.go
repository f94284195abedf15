package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agroconnect/farm-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *zap.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service

	// Soil-test requests
	r.Route("/requests", func(r chi.Router) {
		r.Post("/", createRequestHandler(svc))
		r.Get("/", searchRequestsHandler(svc))
		r.Get("/pending", listPendingRequestsHandler(svc))
		r.Get("/{id}", getRequestHandler(svc))
		r.Post("/{id}/approve", approveRequestHandler(svc))
		r.Post("/{id}/reject", rejectRequestHandler(svc))
		r.Post("/{id}/cancel", cancelRequestHandler(svc))
	})

	// Confirmed schedules
	r.Route("/schedules", func(r chi.Router) {
		r.Post("/", createScheduleHandler(svc))
		r.Get("/", searchSchedulesHandler(svc))
		r.Get("/today", listTodaySchedulesHandler(svc))
		r.Get("/{id}", getScheduleHandler(svc))
		r.Patch("/{id}", updateScheduleHandler(svc))
		r.Post("/{id}/complete", completeScheduleHandler(svc))
	})

	// Per-farmer views
	r.Get("/farmers/{farmerID}/requests", listRequestsByFarmerHandler(svc))
	r.Get("/farmers/{farmerID}/schedules", listSchedulesByFarmerHandler(svc))

	// Slot inventory and date availability administration
	r.Route("/time-slots", func(r chi.Router) {
		r.Post("/", createSlotHandler(svc))
		r.Get("/available", listAvailableSlotsHandler(svc))
		r.Patch("/{id}", updateSlotHandler(svc))
		r.Delete("/{id}", deleteSlotHandler(svc))
	})

	r.Route("/availability", func(r chi.Router) {
		r.Post("/dates", setDateAvailabilityHandler(svc))
		r.Post("/dates/bulk", bulkDateAvailabilityHandler(svc))
		r.Get("/dates/check", dateHasAppointmentsHandler(svc))
	})

	return r
}
