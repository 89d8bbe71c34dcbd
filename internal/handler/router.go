package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter builds the full route table with the global middleware stack.
func NewRouter(h *EventHandler, log *zap.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS(corsOrigins))

	r.Get("/health", HealthCheck)

	// Page surfaces
	r.Get("/", h.Feed)
	r.Get("/event/{event_id}", h.EventPage)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvent)
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
		})
		r.Post("/joins", h.Join)
		r.Delete("/joins", h.Leave)
		r.Post("/replies", h.AddReply)
	})

	return r
}
