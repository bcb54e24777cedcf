package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/barangay-bonliw/appointments/internal/appointments"
	"github.com/barangay-bonliw/appointments/internal/feed"
	httpmiddleware "github.com/barangay-bonliw/appointments/internal/http/middleware"
	"github.com/barangay-bonliw/appointments/internal/slots"
	"github.com/barangay-bonliw/appointments/internal/stats"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	SlotsHandler        *slots.Handler
	FeedHandler         *feed.Handler
	StatsHandler        *stats.Handler
	MetricsHandler      http.Handler
	JWTSecret           string
	CORSAllowedOrigins  []string
	RateLimitPerSec     float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSec > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.Auth(cfg.JWTSecret))

		api.Route("/appointments", func(ar chi.Router) {
			ar.Post("/", cfg.AppointmentsHandler.Book)
			ar.Get("/mine", cfg.AppointmentsHandler.ListMine)
			if cfg.SlotsHandler != nil {
				ar.Get("/time-slots", cfg.SlotsHandler.List)
			}
			ar.Get("/{id}", cfg.AppointmentsHandler.Get)
			ar.Delete("/{id}", cfg.AppointmentsHandler.Delete)

			// Admin-only appointment management
			ar.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireAdmin)
				admin.Get("/all", cfg.AppointmentsHandler.ListAll)
				admin.Put("/{id}/status", cfg.AppointmentsHandler.SetStatus)
				admin.Put("/{id}/schedule", cfg.AppointmentsHandler.Reschedule)
			})
		})

		if cfg.FeedHandler != nil {
			api.Get("/notifications", cfg.FeedHandler.List)
		}

		if cfg.StatsHandler != nil {
			api.Route("/stats", func(sr chi.Router) {
				sr.Use(httpmiddleware.RequireAdmin)
				sr.Get("/monthly", cfg.StatsHandler.Monthly)
				sr.Get("/daily", cfg.StatsHandler.Daily)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
