package state

import (
	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/weather"
)

// Intent is the closed set of transitions AppState accepts.
type Intent interface {
	isIntent()
}

type SetLoading struct{ Loading bool }

type SetCurrentWeather struct{ Snapshot weather.Snapshot }

type SetForecast struct{ Days []weather.DailyForecast }

type SetError struct{ Err ErrorInfo }

type ClearError struct{}

// AddFavorite appends City under a freshly assigned id; City.ID is ignored.
type AddFavorite struct{ City favorites.City }

type RemoveFavorite struct{ ID int64 }

type SetSearchQuery struct{ Query string }

type ToggleTemperatureUnit struct{}

func (SetLoading) isIntent()            {}
func (SetCurrentWeather) isIntent()     {}
func (SetForecast) isIntent()           {}
func (SetError) isIntent()              {}
func (ClearError) isIntent()            {}
func (AddFavorite) isIntent()           {}
func (RemoveFavorite) isIntent()        {}
func (SetSearchQuery) isIntent()        {}
func (ToggleTemperatureUnit) isIntent() {}

// ErrorFrom builds SetError's payload from a classified error.
func ErrorFrom(err error) ErrorInfo {
	return ErrorInfo{Kind: weather.KindOf(err), Message: weather.Message(err)}
}
