package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/weatherdash/internal/dashboard"
	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/weather"
)

func threeFavorites() []favorites.City {
	return []favorites.City{
		{ID: 1, Name: "A", Lat: 1, Lon: 1},
		{ID: 2, Name: "B", Lat: 2, Lon: 2},
		{ID: 3, Name: "C", Lat: 3, Lon: 3},
	}
}

func TestRefreshAll_PartialFailure(t *testing.T) {
	src := &fakeSource{current: func(_ string, lat, lon float64) (weather.Snapshot, error) {
		if lat == 2 {
			return weather.Snapshot{}, &weather.Error{Kind: weather.KindNetworkFailure, Message: "Failed to fetch current weather"}
		}
		return snapshot(map[float64]string{1: "A", 3: "C"}[lat], lat, lon), nil
	}}
	f := newFixture(t, src, nil)

	got := f.d.RefreshAll(context.Background(), threeFavorites(), weather.UnitMetric)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "A", got.Results[0].Name)
	assert.Equal(t, "C", got.Results[1].Name)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, weather.KindNetworkFailure, got.Errors[2].Kind)
	assert.Equal(t, 3, f.src.callCount())
}

func TestRefreshAll_EmptyMakesNoCalls(t *testing.T) {
	f := newFixture(t, &fakeSource{}, nil)

	got := f.d.RefreshAll(context.Background(), nil, weather.UnitMetric)
	assert.Empty(t, got.Results)
	assert.Empty(t, got.Errors)
	assert.NotNil(t, got.Results)
	assert.NotNil(t, got.Errors)
	assert.Zero(t, f.src.callCount())
}

func TestRefreshAll_RecoversPanic(t *testing.T) {
	src := &fakeSource{current: func(_ string, lat, lon float64) (weather.Snapshot, error) {
		if lat == 3 {
			panic("boom")
		}
		return snapshot("ok", lat, lon), nil
	}}
	f := newFixture(t, src, nil)

	got := f.d.RefreshAll(context.Background(), threeFavorites(), weather.UnitMetric)
	assert.Len(t, got.Results, 2)
	require.Contains(t, got.Errors, int64(3))
	assert.Equal(t, weather.KindUnknown, got.Errors[3].Kind)
}

func TestRefreshFavorites_UsesStateUnit(t *testing.T) {
	f := newFixture(t, &fakeSource{}, nil, threeFavorites()...)

	_, err := f.d.ToggleUnit(context.Background())
	require.NoError(t, err)

	got := f.d.RefreshFavorites(context.Background())
	assert.Len(t, got.Results, 3)
	for _, u := range f.src.units {
		assert.Equal(t, weather.UnitImperial, u)
	}
}

func TestAddFavorite_Success(t *testing.T) {
	f := newFixture(t, &fakeSource{}, nil, threeFavorites()...)

	city, err := f.d.AddFavorite(context.Background(), dashboard.ByName("Tokyo"))
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", city.Name)
	assert.Equal(t, int64(4), city.ID)
	assert.Equal(t, 10.0, city.Lat)

	persisted, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 4)
	assert.Equal(t, city, persisted[3])
	assert.True(t, f.d.IsFavorite("  tokyo "))
}

func TestAddFavorite_DuplicateNameSkipsFetch(t *testing.T) {
	f := newFixture(t, &fakeSource{}, nil, favorites.City{ID: 1, Name: "London", Lat: 51.5, Lon: -0.12})

	_, err := f.d.AddFavorite(context.Background(), dashboard.ByName("LONDON"))
	require.ErrorIs(t, err, dashboard.ErrDuplicateFavorite)
	assert.Zero(t, f.src.callCount())
	assert.Len(t, f.d.State().Favorites, 1)
}

func TestAddFavorite_DuplicateResolvedName(t *testing.T) {
	src := &fakeSource{current: func(string, float64, float64) (weather.Snapshot, error) {
		return snapshot("London", 51.5, -0.12), nil
	}}
	f := newFixture(t, src, nil, favorites.City{ID: 1, Name: "London", Lat: 51.5, Lon: -0.12})

	_, err := f.d.AddFavorite(context.Background(), dashboard.ByCoords(51.5, -0.12))
	require.ErrorIs(t, err, dashboard.ErrDuplicateFavorite)
	assert.Len(t, f.d.State().Favorites, 1)
}

func TestAddFavorite_FetchFailureSetsError(t *testing.T) {
	src := &fakeSource{current: func(string, float64, float64) (weather.Snapshot, error) {
		return weather.Snapshot{}, errNotFound
	}}
	f := newFixture(t, src, nil)

	_, err := f.d.AddFavorite(context.Background(), dashboard.ByName("Atlantis"))
	require.ErrorIs(t, err, weather.ErrAPIError)

	s := f.d.State()
	assert.Empty(t, s.Favorites)
	require.NotNil(t, s.Error)
	assert.Equal(t, "Failed to add Atlantis to favorites: city not found", s.Error.Message)
}

func TestAddFavorite_InvalidCoordinatesRejected(t *testing.T) {
	src := &fakeSource{current: func(string, float64, float64) (weather.Snapshot, error) {
		return snapshot("Nowhere", 123, 0), nil
	}}
	f := newFixture(t, src, nil)

	_, err := f.d.AddFavorite(context.Background(), dashboard.ByName("Nowhere"))
	require.ErrorIs(t, err, weather.ErrInvalidInput)
	assert.Empty(t, f.d.State().Favorites)
}

func TestAddFavorite_UnnamedCitySetsError(t *testing.T) {
	src := &fakeSource{current: func(_ string, lat, lon float64) (weather.Snapshot, error) {
		return weather.Snapshot{Coord: weather.Coord{Lat: lat, Lon: lon}}, nil
	}}
	f := newFixture(t, src, nil)

	_, err := f.d.AddFavorite(context.Background(), dashboard.ByName("Middle of the Sea"))
	require.ErrorIs(t, err, weather.ErrInvalidInput)

	s := f.d.State()
	assert.Empty(t, s.Favorites)
	require.NotNil(t, s.Error)
	assert.Equal(t, weather.KindInvalidInput, s.Error.Kind)
	assert.Equal(t, "Failed to add Middle of the Sea to favorites: invalid favorite city", s.Error.Message)
}

func TestAddFavorite_LookupDoesNotBlockRemoval(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{current: func(name string, lat, lon float64) (weather.Snapshot, error) {
		if name == "Slow" {
			close(started)
			<-release
		}
		return byName(name, lat, lon)
	}}
	f := newFixture(t, src, nil, threeFavorites()...)

	added := make(chan error, 1)
	go func() {
		_, err := f.d.AddFavorite(context.Background(), dashboard.ByName("Slow"))
		added <- err
	}()
	<-started

	removed := make(chan error, 1)
	go func() {
		_, err := f.d.RemoveFavorite(context.Background(), 1)
		removed <- err
	}()
	select {
	case err := <-removed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RemoveFavorite blocked behind a pending favorite lookup")
	}

	close(release)
	require.NoError(t, <-added)
	assert.True(t, f.d.IsFavorite("Slow"))
	assert.False(t, f.d.IsFavorite("A"))
}

func TestRemoveAndClearFavorites(t *testing.T) {
	f := newFixture(t, &fakeSource{}, nil, threeFavorites()...)

	s, err := f.d.RemoveFavorite(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, s.Favorites, 2)
	assert.False(t, f.d.IsFavorite("B"))

	s, err = f.d.RemoveFavorite(context.Background(), 99)
	require.NoError(t, err)
	assert.Len(t, s.Favorites, 2)

	s, err = f.d.ClearFavorites(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Favorites)

	persisted, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestQuickAddSuggestions(t *testing.T) {
	f := newFixture(t, &fakeSource{}, nil, favorites.City{ID: 1, Name: "new york"})
	assert.Equal(t, []string{"London", "Tokyo", "Paris", "Sydney"}, f.d.QuickAddSuggestions())

	_, err := f.d.RemoveFavorite(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, f.d.QuickAddSuggestions())
}

// ---- Search ----

func TestSearch_ShortQueryMakesNoCall(t *testing.T) {
	f := newFixture(t, &fakeSource{}, nil)

	res, err := f.d.Searcher().Search(context.Background(), " L ")
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions)
	assert.Zero(t, f.src.callCount())
}

func TestSearch_ErrorClearsSuggestions(t *testing.T) {
	fail := false
	src := &fakeSource{search: func(q string) ([]weather.CitySuggestion, error) {
		if fail {
			return nil, &weather.Error{Kind: weather.KindNetworkFailure, Message: "Failed to search cities"}
		}
		return []weather.CitySuggestion{{Name: "Lon"}}, nil
	}}
	f := newFixture(t, src, nil)
	searcher := f.d.Searcher()

	res, err := searcher.Search(context.Background(), "Lon")
	require.NoError(t, err)
	assert.Len(t, res.Suggestions, 1)

	fail = true
	res, err = searcher.Search(context.Background(), "Lond")
	require.ErrorIs(t, err, weather.ErrNetworkFailure)
	assert.Empty(t, res.Suggestions)
	require.NotNil(t, res.Error)
	assert.Nil(t, f.d.State().Error)
}

func TestSearch_SupersededResultDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{search: func(q string) ([]weather.CitySuggestion, error) {
		if q == "Lo" {
			close(started)
			<-release
		}
		return []weather.CitySuggestion{{Name: q}}, nil
	}}
	f := newFixture(t, src, nil)
	searcher := f.d.Searcher()

	var oldErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, oldErr = searcher.Search(context.Background(), "Lo")
	}()
	<-started

	_, err := searcher.Search(context.Background(), "London")
	require.NoError(t, err)
	close(release)
	<-done

	assert.True(t, errors.Is(oldErr, dashboard.ErrSuperseded))
	assert.Equal(t, "London", searcher.Results().Query)
	assert.Equal(t, "London", searcher.Results().Suggestions[0].Name)
}

func TestSearchCities_Immediate(t *testing.T) {
	src := &fakeSource{search: func(q string) ([]weather.CitySuggestion, error) {
		return []weather.CitySuggestion{{Name: "Paris", Country: "FR"}}, nil
	}}
	f := newFixture(t, src, nil)

	res, err := f.d.SearchCities(context.Background(), "  Par ")
	require.NoError(t, err)
	assert.Equal(t, "Par", res.Query)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, res, f.d.SearchResults())
}

func TestSetSearchQuery_DebouncesKeystrokes(t *testing.T) {
	src := &fakeSource{search: func(q string) ([]weather.CitySuggestion, error) {
		return []weather.CitySuggestion{{Name: q}}, nil
	}}
	f := newFixture(t, src, nil)

	for _, q := range []string{"P", "Pa", "Par", "Pari", "Paris"} {
		f.d.SetSearchQuery(context.Background(), q)
	}
	assert.Equal(t, "Paris", f.d.State().SearchQuery)

	assert.Eventually(t, func() bool {
		return f.d.Searcher().Results().Query == "Paris"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.src.callCount())
}
