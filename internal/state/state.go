// Package state holds the dashboard's single authoritative AppState and the
// transition function that is the only way to change it.
package state

import (
	"slices"

	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/weather"
)

// ErrorInfo is a failure as shown to the user.
type ErrorInfo struct {
	Kind    weather.Kind `json:"kind"`
	Message string       `json:"message"`
}

// State is the application state. Values handed out by Container are copies.
type State struct {
	CurrentWeather  *weather.Snapshot       `json:"current_weather"`
	Forecast        []weather.DailyForecast `json:"forecast"`
	Favorites       []favorites.City        `json:"favorites"`
	Loading         bool                    `json:"loading"`
	Error           *ErrorInfo              `json:"error"`
	SearchQuery     string                  `json:"search_query"`
	TemperatureUnit weather.Unit            `json:"temperature_unit"`

	nextFavoriteID int64
}

// Initial returns the state a session starts in, hydrated with favs.
func Initial(favs []favorites.City, unit weather.Unit) State {
	if unit != weather.UnitImperial {
		unit = weather.UnitMetric
	}
	favs = slices.Clone(favs)
	if favs == nil {
		favs = []favorites.City{}
	}
	return State{
		Forecast:        []weather.DailyForecast{},
		Favorites:       favs,
		TemperatureUnit: unit,
		nextFavoriteID:  favorites.NextID(favs),
	}
}

// Reduce applies in to s and returns the next state. It never mutates s and
// never fails; unknown intents leave the state unchanged.
func Reduce(s State, in Intent) State {
	switch in := in.(type) {
	case SetLoading:
		s.Loading = in.Loading

	case SetCurrentWeather:
		snap := in.Snapshot
		s.CurrentWeather = &snap
		s.Loading = false
		s.Error = nil

	case SetForecast:
		s.Forecast = slices.Clone(in.Days)
		if s.Forecast == nil {
			s.Forecast = []weather.DailyForecast{}
		}
		s.Loading = false
		s.Error = nil

	case SetError:
		e := in.Err
		s.Error = &e
		s.Loading = false

	case ClearError:
		s.Error = nil

	case AddFavorite:
		city := in.City
		city.ID = s.nextFavoriteID
		if city.ID <= 0 {
			city.ID = favorites.NextID(s.Favorites)
		}
		s.nextFavoriteID = city.ID + 1
		s.Favorites = append(slices.Clone(s.Favorites), city)

	case RemoveFavorite:
		s.Favorites = slices.DeleteFunc(slices.Clone(s.Favorites), func(c favorites.City) bool {
			return c.ID == in.ID
		})

	case SetSearchQuery:
		s.SearchQuery = in.Query

	case ToggleTemperatureUnit:
		s.TemperatureUnit = s.TemperatureUnit.Toggle()
	}
	return s
}

// clone deep-copies the slices and pointers a reader could mutate.
func (s State) clone() State {
	out := s
	if s.CurrentWeather != nil {
		snap := *s.CurrentWeather
		out.CurrentWeather = &snap
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	out.Forecast = slices.Clone(s.Forecast)
	out.Favorites = slices.Clone(s.Favorites)
	return out
}

func favoritesChanged(in Intent) bool {
	switch in.(type) {
	case AddFavorite, RemoveFavorite:
		return true
	}
	return false
}
