package api

import (
	"context"

	"github.com/neexbeast/weatherdash/internal/dashboard"
	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/state"
)

// Dashboard defines the dashboard operations the handlers trigger.
type Dashboard interface {
	State() state.State
	LoadCurrent(ctx context.Context, ref dashboard.CityRef) (state.State, error)
	LoadForecast(ctx context.Context, ref dashboard.CityRef) (state.State, error)
	LoadLocal(ctx context.Context) (state.State, error)
	Startup(ctx context.Context) (state.State, error)
	StartupForecast(ctx context.Context) (state.State, error)
	Retry(ctx context.Context) (state.State, error)
	RetryForecast(ctx context.Context) (state.State, error)
	ToggleUnit(ctx context.Context) (state.State, error)
	ClearError(ctx context.Context) state.State
	SetSearchQuery(ctx context.Context, query string) state.State
	SearchResults() dashboard.SearchResults
	SearchCities(ctx context.Context, query string) (dashboard.SearchResults, error)

	AddFavorite(ctx context.Context, ref dashboard.CityRef) (favorites.City, error)
	RemoveFavorite(ctx context.Context, id int64) (state.State, error)
	ClearFavorites(ctx context.Context) (state.State, error)
	IsFavorite(name string) bool
	QuickAddSuggestions() []string
	RefreshFavorites(ctx context.Context) dashboard.FavoritesWeather
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
