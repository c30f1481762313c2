package dashboard

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/state"
	"github.com/neexbeast/weatherdash/internal/weather"
)

// FavoritesWeather is the outcome of refreshing every favorite. Each city
// appears in exactly one of Results or Errors.
type FavoritesWeather struct {
	// Results holds the successful snapshots in favorites order.
	Results []weather.Snapshot `json:"results"`
	// Errors is keyed by favorite id.
	Errors map[int64]state.ErrorInfo `json:"errors"`
}

// RefreshAll fetches current weather for every favorite concurrently and
// waits for all of them to settle. One city failing never affects another.
func (d *Dashboard) RefreshAll(ctx context.Context, favs []favorites.City, unit weather.Unit) FavoritesWeather {
	out := FavoritesWeather{
		Results: []weather.Snapshot{},
		Errors:  map[int64]state.ErrorInfo{},
	}
	if len(favs) == 0 {
		return out
	}

	snaps := make([]*weather.Snapshot, len(favs))
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	fail := func(id int64, err error) {
		mu.Lock()
		out.Errors[id] = state.ErrorFrom(err)
		mu.Unlock()
	}

	for i, city := range favs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("favorite fetch panicked", "city", city.Name, "recover", r)
					fail(city.ID, weather.NewError(weather.KindUnknown, "Unexpected error", fmt.Errorf("panic: %v", r)))
				}
			}()
			snap, err := d.src.CurrentByCoords(ctx, city.Lat, city.Lon, unit)
			if err != nil {
				d.log.Warn("favorite fetch failed", "city", city.Name, "id", city.ID, "err", err)
				fail(city.ID, err)
				return nil
			}
			snaps[i] = &snap
			return nil
		})
	}
	_ = g.Wait()

	for _, snap := range snaps {
		if snap != nil {
			out.Results = append(out.Results, *snap)
		}
	}
	return out
}

// RefreshFavorites refreshes the current favorites in the current unit.
func (d *Dashboard) RefreshFavorites(ctx context.Context) FavoritesWeather {
	s := d.state.State()
	return d.RefreshAll(ctx, s.Favorites, s.TemperatureUnit)
}

// AddFavorite resolves ref to a city through the weather source and saves
// it as a favorite. A city already saved under the same canonical name is
// rejected with ErrDuplicateFavorite.
func (d *Dashboard) AddFavorite(ctx context.Context, ref CityRef) (favorites.City, error) {
	s := d.state.State()
	if _, _, hasCoords := ref.coords(); !hasCoords && favorites.Contains(s.Favorites, ref.Name) {
		return favorites.City{}, ErrDuplicateFavorite
	}

	snap, err := d.fetchCurrent(ctx, ref, s.TemperatureUnit)
	if err != nil {
		return favorites.City{}, d.failAdd(ctx, ref, err)
	}

	city := favorites.City{
		Name:    snap.Name,
		Country: snap.Country,
		Lat:     snap.Coord.Lat,
		Lon:     snap.Coord.Lon,
	}
	if err := favorites.Validate(city); err != nil {
		return favorites.City{}, d.failAdd(ctx, ref, err)
	}

	d.favMu.Lock()
	defer d.favMu.Unlock()

	if favorites.Contains(d.state.State().Favorites, city.Name) {
		return favorites.City{}, ErrDuplicateFavorite
	}
	next, err := d.state.Dispatch(ctx, state.AddFavorite{City: city})
	added := next.Favorites[len(next.Favorites)-1]
	d.log.Info("favorite added", "city", added.Name, "id", added.ID)
	return added, err
}

// failAdd records a failed favorite addition as the global error.
func (d *Dashboard) failAdd(ctx context.Context, ref CityRef, err error) error {
	d.log.Warn("adding favorite failed", "city", ref.label(), "err", err)
	info := state.ErrorFrom(err)
	info.Message = fmt.Sprintf("Failed to add %s to favorites: %s", ref.label(), info.Message)
	_, _ = d.state.Dispatch(ctx, state.SetError{Err: info})
	return err
}

// RemoveFavorite drops the favorite with id. Unknown ids are a no-op.
func (d *Dashboard) RemoveFavorite(ctx context.Context, id int64) (state.State, error) {
	d.favMu.Lock()
	defer d.favMu.Unlock()
	return d.state.Dispatch(ctx, state.RemoveFavorite{ID: id})
}

// ClearFavorites removes every favorite, persisting after each removal.
func (d *Dashboard) ClearFavorites(ctx context.Context) (state.State, error) {
	d.favMu.Lock()
	defer d.favMu.Unlock()

	s := d.state.State()
	for _, c := range s.Favorites {
		var err error
		if s, err = d.state.Dispatch(ctx, state.RemoveFavorite{ID: c.ID}); err != nil {
			return s, err
		}
	}
	return s, nil
}

// IsFavorite reports whether a city with name's canonical form is saved.
func (d *Dashboard) IsFavorite(name string) bool {
	return favorites.Contains(d.state.State().Favorites, name)
}

// QuickAddSuggestions returns the quick-add cities to offer.
func (d *Dashboard) QuickAddSuggestions() []string {
	return favorites.Suggestions(d.state.State().Favorites)
}
