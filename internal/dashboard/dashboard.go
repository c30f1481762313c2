// Package dashboard orchestrates weather requests and feeds their outcomes
// into the application state.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neexbeast/weatherdash/internal/location"
	"github.com/neexbeast/weatherdash/internal/state"
	"github.com/neexbeast/weatherdash/internal/weather"
)

// DefaultCity is loaded when no location can be resolved at startup.
const DefaultCity = "London"

var (
	// ErrSuperseded is returned when a newer request was issued before this
	// one settled; its outcome was dropped.
	ErrSuperseded = errors.New("request superseded by a newer one")

	// ErrDuplicateFavorite is returned when the city is already a favorite.
	ErrDuplicateFavorite = errors.New("city is already a favorite")
)

// Source is the weather data capability the dashboard consumes.
// *weather.Client satisfies it.
type Source interface {
	CurrentByName(ctx context.Context, name string, unit weather.Unit) (weather.Snapshot, error)
	CurrentByCoords(ctx context.Context, lat, lon float64, unit weather.Unit) (weather.Snapshot, error)
	ForecastByName(ctx context.Context, name string, unit weather.Unit) (*weather.RawForecast, error)
	ForecastByCoords(ctx context.Context, lat, lon float64, unit weather.Unit) (*weather.RawForecast, error)
	SearchCities(ctx context.Context, query string) ([]weather.CitySuggestion, error)
}

// CityRef names a city either by name or by coordinates. Coordinates win
// when both are present.
type CityRef struct {
	Name string   `json:"name,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// ByName returns a name-only reference.
func ByName(name string) CityRef { return CityRef{Name: name} }

// ByCoords returns a coordinate reference.
func ByCoords(lat, lon float64) CityRef { return CityRef{Lat: &lat, Lon: &lon} }

func (r CityRef) coords() (float64, float64, bool) {
	if r.Lat == nil || r.Lon == nil {
		return 0, 0, false
	}
	return *r.Lat, *r.Lon, true
}

func (r CityRef) label() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	if lat, lon, ok := r.coords(); ok {
		return weather.Coord{Lat: lat, Lon: lon}.String()
	}
	return "city"
}

// Options tunes a Dashboard. Zero values select the defaults.
type Options struct {
	DefaultCity    string
	Location       *time.Location
	SearchDebounce time.Duration
}

// Dashboard runs the fetch flows of the current-weather, forecast and
// favorites views against one state container.
type Dashboard struct {
	src         Source
	locator     location.Provider
	state       *state.Container
	log         *slog.Logger
	defaultCity string
	tz          *time.Location
	search      *Searcher

	// applyMu serializes generation checks with the dispatches they guard.
	applyMu sync.Mutex
	gen     uint64

	favMu sync.Mutex
}

// New constructs a Dashboard. A nil locator means no location capability.
func New(src Source, locator location.Provider, st *state.Container, log *slog.Logger, opts Options) *Dashboard {
	if locator == nil {
		locator = location.Unavailable{}
	}
	if opts.DefaultCity == "" {
		opts.DefaultCity = DefaultCity
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Dashboard{
		src:         src,
		locator:     locator,
		state:       st,
		log:         log,
		defaultCity: opts.DefaultCity,
		tz:          opts.Location,
		search:      NewSearcher(src, opts.SearchDebounce, log),
	}
}

// State returns a copy of the current application state.
func (d *Dashboard) State() state.State { return d.state.State() }

// Searcher returns the city autocomplete searcher.
func (d *Dashboard) Searcher() *Searcher { return d.search }

// SearchResults returns the latest settled city search.
func (d *Dashboard) SearchResults() SearchResults { return d.search.Results() }

// SearchCities looks query up immediately, bypassing the debounce.
func (d *Dashboard) SearchCities(ctx context.Context, query string) (SearchResults, error) {
	return d.search.Search(ctx, query)
}

// Close stops pending debounced work.
func (d *Dashboard) Close() { d.search.Stop() }

// ClearError drops the global error without touching data.
func (d *Dashboard) ClearError(ctx context.Context) state.State {
	s, _ := d.state.Dispatch(ctx, state.ClearError{})
	return s
}

// SetSearchQuery records the query and schedules a debounced city search.
func (d *Dashboard) SetSearchQuery(ctx context.Context, query string) state.State {
	s, _ := d.state.Dispatch(ctx, state.SetSearchQuery{Query: query})
	d.search.Submit(query)
	return s
}

// begin starts a tracked request: it marks the state loading, clears the
// previous error and returns the request's generation.
func (d *Dashboard) begin(ctx context.Context) uint64 {
	d.applyMu.Lock()
	defer d.applyMu.Unlock()

	d.gen++
	_, _ = d.state.Dispatch(ctx, state.SetLoading{Loading: true})
	_, _ = d.state.Dispatch(ctx, state.ClearError{})
	return d.gen
}

// settle applies intents only if gen is still the latest request.
func (d *Dashboard) settle(ctx context.Context, gen uint64, intents ...state.Intent) error {
	d.applyMu.Lock()
	defer d.applyMu.Unlock()

	if gen != d.gen {
		d.log.Debug("dropping superseded response", "gen", gen, "latest", d.gen)
		return ErrSuperseded
	}
	for _, in := range intents {
		_, _ = d.state.Dispatch(ctx, in)
	}
	return nil
}

// fail records err as the global error for request gen and returns it.
func (d *Dashboard) fail(ctx context.Context, gen uint64, err error) error {
	if settleErr := d.settle(ctx, gen, state.SetError{Err: state.ErrorFrom(err)}); settleErr != nil {
		return settleErr
	}
	return err
}
