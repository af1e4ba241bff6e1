package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// requestTimeout caps a request end to end; the agent timeout inside the
// planner is the tighter bound for graph invocations.
const requestTimeout = 5 * time.Minute

func NewRouter(deps *Deps, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(NewLoggerMiddleware(log).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	ph := NewPlannerHandlers(deps)

	r.Get("/healthz", ph.Health)
	r.Post("/query", ph.Query)
	r.Route("/replan", func(r chi.Router) {
		r.Post("/", ph.Replan)
		r.Get("/{userId}/{tripId}", ph.GetReplan)
	})
	r.Post("/alerts/assess", ph.AssessAlert)
	return r
}
