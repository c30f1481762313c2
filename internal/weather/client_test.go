package weather_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/weatherdash/internal/weather"
)

func currentHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":  "London",
			"dt":    1760000000,
			"coord": map[string]any{"lat": 51.51, "lon": -0.13},
			"main": map[string]any{
				"temp":       14.2,
				"feels_like": 13.1,
				"temp_min":   12.0,
				"temp_max":   16.0,
				"pressure":   1012,
				"humidity":   77,
			},
			"weather":    []map[string]any{{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}},
			"wind":       map[string]any{"speed": 4.1, "deg": 240},
			"visibility": 10000,
			"sys":        map[string]any{"country": "GB", "sunrise": 1759990000, "sunset": 1760030000},
		})
	}
}

func forecastHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"list": []map[string]any{
				{
					"dt":      1760000000,
					"main":    map[string]any{"temp": 10, "temp_min": 9, "temp_max": 11, "humidity": 80},
					"weather": []map[string]any{{"main": "Rain", "description": "light rain"}},
					"wind":    map[string]any{"speed": 3.0},
				},
			},
			"city": map[string]any{"name": "London", "country": "GB", "coord": map[string]any{"lat": 51.51, "lon": -0.13}},
		})
	}
}

func newMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", currentHandler(t))
	mux.HandleFunc("/forecast", forecastHandler(t))
	mux.HandleFunc("/geo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "nowhere" {
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "Paris", "country": "FR", "lat": 48.85, "lon": 2.35},
			{"name": "Paris", "country": "US", "state": "Texas", "lat": 33.66, "lon": -95.55},
		})
	})
	return mux
}

func TestClient_CurrentByName(t *testing.T) {
	var gotQuery string
	mux := newMux(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL+"/geo", "test-key")
	snap, err := c.CurrentByName(context.Background(), "London", weather.UnitImperial)
	require.NoError(t, err)
	assert.Equal(t, "London", snap.Name)
	assert.Equal(t, "GB", snap.Country)
	assert.Equal(t, 14.2, snap.Temperature)
	assert.Equal(t, 77, snap.Humidity)
	assert.Equal(t, "Clouds", snap.Condition.Main)
	assert.Equal(t, 51.51, snap.Coord.Lat)
	assert.Contains(t, gotQuery, "units=imperial")
	assert.Contains(t, gotQuery, "q=London")
}

func TestClient_CurrentByCoords(t *testing.T) {
	var gotQuery string
	mux := newMux(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL+"/geo", "test-key")
	_, err := c.CurrentByCoords(context.Background(), 51.51, -0.13, weather.UnitMetric)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "lat=51.51")
	assert.Contains(t, gotQuery, "lon=-0.13")
	assert.Contains(t, gotQuery, "units=metric")
}

func TestClient_Forecast(t *testing.T) {
	srv := httptest.NewServer(newMux(t))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL+"/geo", "test-key")
	raw, err := c.ForecastByCoords(context.Background(), 51.51, -0.13, weather.UnitMetric)
	require.NoError(t, err)
	require.Len(t, raw.List, 1)
	assert.Equal(t, 9.0, raw.List[0].TempMin)
	assert.Equal(t, "Rain", raw.List[0].Condition.Main)
	assert.Equal(t, "London", raw.City)

	raw, err = c.ForecastByName(context.Background(), "London", weather.UnitMetric)
	require.NoError(t, err)
	assert.Len(t, raw.List, 1)
}

func TestClient_ForecastWithoutList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"city":{"name":"London"}}`))
	}))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL, "test-key")
	raw, err := c.ForecastByName(context.Background(), "London", weather.UnitMetric)
	require.NoError(t, err)
	assert.Nil(t, raw.List)
}

func TestClient_APIErrorKeepsProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL, "test-key")
	_, err := c.CurrentByName(context.Background(), "Atlantis", weather.UnitMetric)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrAPIError)
	assert.Equal(t, "city not found", weather.Message(err))

	var werr *weather.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, http.StatusNotFound, werr.Status)
}

func TestClient_APIErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL, "test-key")
	_, err := c.ForecastByName(context.Background(), "London", weather.UnitMetric)
	require.Error(t, err)
	assert.Equal(t, weather.KindAPIError, weather.KindOf(err))
	assert.Equal(t, "Failed to fetch weather forecast", weather.Message(err))
}

func TestClient_HTMLBodyIsInvalidShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Not found</body></html>"))
	}))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL, "test-key")
	_, err := c.CurrentByName(context.Background(), "London", weather.UnitMetric)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrInvalidResponseShape)
	assert.Equal(t, "Unexpected response format from weather API", weather.Message(err))
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := weather.NewClientWithURLs(url, url, "test-key")
	_, err := c.CurrentByName(context.Background(), "London", weather.UnitMetric)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrNetworkFailure)
	assert.Equal(t, "Failed to fetch current weather", weather.Message(err))
}

func TestClient_MissingKey(t *testing.T) {
	c := weather.NewClientWithURLs("http://unused", "http://unused", "")

	_, err := c.CurrentByName(context.Background(), "London", weather.UnitMetric)
	assert.ErrorIs(t, err, weather.ErrConfiguration)

	_, err = c.SearchCities(context.Background(), "Lon")
	assert.ErrorIs(t, err, weather.ErrConfiguration)
}

func TestClient_SearchCities(t *testing.T) {
	srv := httptest.NewServer(newMux(t))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL+"/geo", "test-key")
	got, err := c.SearchCities(context.Background(), "Paris")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Texas", got[1].State)

	got, err = c.SearchCities(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_SearchHidesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	c := weather.NewClientWithURLs(srv.URL, srv.URL, "bad-key")
	_, err := c.SearchCities(context.Background(), "Paris")
	require.Error(t, err)
	assert.Equal(t, "Failed to search cities", weather.Message(err))
}
