package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/jobsuitex/autoapply/internal/api/middleware"
	"github.com/jobsuitex/autoapply/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler         http.HandlerFunc
	ListSchedulesHandler  http.HandlerFunc
	PutScheduleHandler    http.HandlerFunc
	DeleteScheduleHandler http.HandlerFunc
	ListOutcomesHandler   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)
		r.Use(deps.Auth.Authenticate)

		r.Get("/api/v1/schedules", orNotImplemented(deps.ListSchedulesHandler))
		r.Put("/api/v1/jobs/{jobID}/schedule", orNotImplemented(deps.PutScheduleHandler))
		r.Delete("/api/v1/jobs/{jobID}/schedule", orNotImplemented(deps.DeleteScheduleHandler))
		r.Get("/api/v1/jobs/{jobID}/outcomes", orNotImplemented(deps.ListOutcomesHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
