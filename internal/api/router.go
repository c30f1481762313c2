package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// The health endpoint is unauthenticated. Dashboard routes require bearer
// auth when token is non-empty.
// Rate limiting is applied globally: 120 requests per minute per IP.
func NewRouter(handlers *Handlers, token string, store Pinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(120, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(store, log))

	r.Group(func(r chi.Router) {
		if token != "" {
			r.Use(BearerAuth(token))
		}
		r.Get("/api/v1/state", handlers.GetState)
		r.Delete("/api/v1/error", handlers.ClearError)

		r.Post("/api/v1/weather/current", handlers.LoadCurrent)
		r.Post("/api/v1/weather/forecast", handlers.LoadForecast)
		r.Post("/api/v1/weather/startup", handlers.Startup)
		r.Post("/api/v1/weather/locate", handlers.Locate)
		r.Post("/api/v1/weather/retry", handlers.Retry)
		r.Post("/api/v1/weather/forecast/locate", handlers.LocateForecast)
		r.Post("/api/v1/weather/forecast/retry", handlers.RetryForecast)
		r.Post("/api/v1/unit/toggle", handlers.ToggleUnit)

		r.Put("/api/v1/search", handlers.SetSearchQuery)
		r.Get("/api/v1/search/results", handlers.SearchResults)
		r.Get("/api/v1/search/cities", handlers.SearchCities)

		r.Route("/api/v1/favorites", func(r chi.Router) {
			r.Get("/", handlers.ListFavorites)
			r.Post("/", handlers.AddFavorite)
			r.Delete("/", handlers.ClearFavorites)
			r.Post("/refresh", handlers.RefreshFavorites)
			r.Delete("/{id}", handlers.RemoveFavorite)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
