package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ukydev/fleet-dispatch/internal/middleware"
	"github.com/ukydev/fleet-dispatch/internal/models"
)

// Dependencies are the collaborators the API routes need.
type Dependencies struct {
	Auth        *AuthHandler
	Trips       *TripHandler
	AuthMW      *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
}

// NewRouter builds the API routes.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Handler)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/auth/login", deps.Auth.Login)
	r.Post("/api/auth/register", deps.Auth.Register)

	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMW.Authenticate)
		allow := deps.AuthMW.RequirePermission

		r.Get("/api/auth/profile", deps.Auth.GetProfile)
		r.Post("/api/auth/password", deps.Auth.ChangePassword)

		r.With(allow(models.ActionViewTrips)).Get("/api/vehicles/active", deps.Trips.ActiveVehicles)
		r.With(allow(models.ActionViewTrips)).Get("/api/drivers/active", deps.Trips.ActiveDrivers)
		r.With(allow(models.ActionViewTrips)).Get("/api/periods/locked", deps.Trips.PeriodLocked)

		r.Route("/api/trips", func(r chi.Router) {
			r.With(allow(models.ActionViewTrips)).Get("/", deps.Trips.ListTrips)
			r.With(allow(models.ActionCreateTrip)).Post("/", deps.Trips.CreateTrip)
			r.With(allow(models.ActionViewTrips)).Post("/conflicts", deps.Trips.CheckConflict)
			r.With(allow(models.ActionViewTrips)).Get("/{id}", deps.Trips.GetTrip)
			r.With(allow(models.ActionUpdateTrip)).Put("/{id}", deps.Trips.UpdateTrip)
			r.With(allow(models.ActionUpdateTrip)).Post("/{id}/status", deps.Trips.TransitionTrip)
			r.With(allow(models.ActionUpdateTrip)).Post("/{id}/apply-route-price", deps.Trips.ApplyRoutePrice)
		})

		r.With(allow(models.ActionCreateTrip)).Post("/api/pricing/preview", deps.Trips.PreviewPricing)

		r.Route("/api/reports/trips", func(r chi.Router) {
			r.With(allow(models.ActionViewReports)).Get("/", deps.Trips.Report)
			r.With(allow(models.ActionViewReports)).Get("/drilldown", deps.Trips.DrillDown)
			r.With(allow(models.ActionExportReport)).Get("/export", deps.Trips.ExportReport)
		})
	})
	return r
}
