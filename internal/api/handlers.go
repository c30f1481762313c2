package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/weatherdash/internal/dashboard"
	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/state"
	"github.com/neexbeast/weatherdash/internal/weather"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	dash Dashboard
	log  *slog.Logger
	now  func() time.Time
}

// NewHandlers constructs Handlers over dash.
func NewHandlers(dash Dashboard, log *slog.Logger) *Handlers {
	return &Handlers{dash: dash, log: log, now: time.Now}
}

type errorBody struct {
	Error string       `json:"error"`
	Kind  weather.Kind `json:"kind,omitempty"`
}

// stateView is the state as served, with the displayed weather rendered
// for presentation.
type stateView struct {
	state.State
	Display    *weather.Display `json:"display,omitempty"`
	IsFavorite bool             `json:"is_favorite"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type favoritesResponse struct {
	Favorites   []favorites.City `json:"favorites"`
	Suggestions []string         `json:"suggestions"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a dashboard error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dashboard.ErrSuperseded), errors.Is(err, dashboard.ErrDuplicateFavorite):
		return http.StatusConflict
	}
	switch weather.KindOf(err) {
	case weather.KindInvalidInput:
		return http.StatusBadRequest
	case weather.KindAPIError, weather.KindNetworkFailure, weather.KindInvalidResponseShape:
		return http.StatusBadGateway
	case weather.KindLocationUnavailable, weather.KindLocationTimeout, weather.KindLocationDenied:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeRef reads an optional {name, lat, lon} body.
func decodeRef(r *http.Request) (dashboard.CityRef, error) {
	var ref dashboard.CityRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil && !errors.Is(err, io.EOF) {
		return ref, err
	}
	return ref, nil
}

func (h *Handlers) view(s state.State) stateView {
	v := stateView{State: s}
	if s.CurrentWeather != nil {
		d := weather.Present(*s.CurrentWeather, s.TemperatureUnit, h.now())
		v.Display = &d
		v.IsFavorite = h.dash.IsFavorite(s.CurrentWeather.Name)
	}
	return v
}

// writeState writes the state after a weather operation. A failed
// operation still returns the state, which carries the error.
func (h *Handlers) writeState(w http.ResponseWriter, op string, s state.State, err error) {
	if err != nil && !errors.Is(err, dashboard.ErrSuperseded) {
		h.log.Warn("dashboard operation failed", "op", op, "err", err)
	}
	writeJSON(w, statusFor(err), h.view(s))
}

// GetState handles GET /api/v1/state.
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.dash.State()))
}

// LoadCurrent handles POST /api/v1/weather/current.
func (h *Handlers) LoadCurrent(w http.ResponseWriter, r *http.Request) {
	ref, err := decodeRef(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	s, err := h.dash.LoadCurrent(r.Context(), ref)
	h.writeState(w, "current", s, err)
}

// LoadForecast handles POST /api/v1/weather/forecast.
func (h *Handlers) LoadForecast(w http.ResponseWriter, r *http.Request) {
	ref, err := decodeRef(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	s, err := h.dash.LoadForecast(r.Context(), ref)
	h.writeState(w, "forecast", s, err)
}

// Startup handles POST /api/v1/weather/startup: the device location's
// weather, or the default city's when the location is unknown.
func (h *Handlers) Startup(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.Startup(r.Context())
	h.writeState(w, "startup", s, err)
}

// Locate handles POST /api/v1/weather/locate. Location failures are
// reported as is.
func (h *Handlers) Locate(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.LoadLocal(r.Context())
	h.writeState(w, "locate", s, err)
}

// LocateForecast handles POST /api/v1/weather/forecast/locate.
func (h *Handlers) LocateForecast(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.StartupForecast(r.Context())
	h.writeState(w, "locate forecast", s, err)
}

// Retry handles POST /api/v1/weather/retry.
func (h *Handlers) Retry(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.Retry(r.Context())
	h.writeState(w, "retry", s, err)
}

// RetryForecast handles POST /api/v1/weather/forecast/retry.
func (h *Handlers) RetryForecast(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.RetryForecast(r.Context())
	h.writeState(w, "retry forecast", s, err)
}

// ToggleUnit handles POST /api/v1/unit/toggle.
func (h *Handlers) ToggleUnit(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.ToggleUnit(r.Context())
	h.writeState(w, "toggle unit", s, err)
}

// ClearError handles DELETE /api/v1/error.
func (h *Handlers) ClearError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.dash.ClearError(r.Context())))
}

// SetSearchQuery handles PUT /api/v1/search.
func (h *Handlers) SetSearchQuery(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	writeJSON(w, http.StatusAccepted, h.view(h.dash.SetSearchQuery(r.Context(), req.Query)))
}

// SearchCities handles GET /api/v1/search/cities?q=, an immediate lookup.
func (h *Handlers) SearchCities(w http.ResponseWriter, r *http.Request) {
	res, err := h.dash.SearchCities(r.Context(), r.URL.Query().Get("q"))
	if err != nil && !errors.Is(err, dashboard.ErrSuperseded) {
		h.log.Warn("city search failed", "query", res.Query, "err", err)
	}
	writeJSON(w, statusFor(err), res)
}

// SearchResults handles GET /api/v1/search/results.
func (h *Handlers) SearchResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.SearchResults())
}

// ListFavorites handles GET /api/v1/favorites.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, favoritesResponse{
		Favorites:   h.dash.State().Favorites,
		Suggestions: h.dash.QuickAddSuggestions(),
	})
}

// AddFavorite handles POST /api/v1/favorites.
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	ref, err := decodeRef(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	city, err := h.dash.AddFavorite(r.Context(), ref)
	switch {
	case errors.Is(err, dashboard.ErrDuplicateFavorite):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	case err != nil && city.ID == 0:
		h.log.Warn("add favorite failed", "city", ref.Name, "err", err)
		writeJSON(w, statusFor(err), errorBody{Error: weather.Message(err), Kind: weather.KindOf(err)})
		return
	case err != nil:
		// Added in memory but not persisted.
		h.log.Error("favorite not persisted", "city", city.Name, "err", err)
	}
	writeJSON(w, http.StatusCreated, city)
}

// RemoveFavorite handles DELETE /api/v1/favorites/{id}.
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid favorite id"})
		return
	}
	s, err := h.dash.RemoveFavorite(r.Context(), id)
	if err != nil {
		h.log.Error("favorite removal not persisted", "id", id, "err", err)
	}
	writeJSON(w, http.StatusOK, s.Favorites)
}

// ClearFavorites handles DELETE /api/v1/favorites.
func (h *Handlers) ClearFavorites(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.ClearFavorites(r.Context())
	if err != nil {
		h.log.Error("clearing favorites not persisted", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to persist favorites"})
		return
	}
	writeJSON(w, http.StatusOK, s.Favorites)
}

// RefreshFavorites handles POST /api/v1/favorites/refresh.
func (h *Handlers) RefreshFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.RefreshFavorites(r.Context()))
}

// HealthHandlerFunc returns an http.HandlerFunc that checks the favorites
// store is reachable.
func HealthHandlerFunc(store Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Error("health check: store ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "ok"})
	}
}
