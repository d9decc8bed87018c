package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the HTTP router
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter wires every route. The event streams sit outside the request
// timeout.
func NewRouter(h *APIHandlers, opts RouterOptions) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)
	r.Get("/api/events", h.EventsSSE)
	r.Get("/api/ws", h.EventsWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))

		r.Get("/", h.Index)
		r.Get("/players/{slug}/chart", h.PlayerChart)

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", h.Health)
			r.Get("/summary", h.GetSummary)
			r.Get("/seal-data", h.SealData)
			r.Get("/seal-data/schema", h.SealDataSchema)
			r.Post("/refresh", h.Refresh)

			r.Route("/players", func(r chi.Router) {
				r.Get("/", h.ListPlayers)
				r.Get("/{slug}", h.GetPlayer)
				r.Get("/{slug}/history", h.GetPlayerHistory)
			})
		})
	})

	return r
}
