package dashboard

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/weatherdash/internal/state"
	"github.com/neexbeast/weatherdash/internal/weather"
)

// LoadCurrent fetches current conditions for ref and stores them as the
// displayed weather. On failure the previous weather stays displayed and the
// error is recorded.
func (d *Dashboard) LoadCurrent(ctx context.Context, ref CityRef) (state.State, error) {
	gen := d.begin(ctx)
	unit := d.state.State().TemperatureUnit

	snap, err := d.fetchCurrent(ctx, ref, unit)
	if err != nil {
		d.log.Warn("current weather fetch failed", "city", ref.label(), "err", err)
		return d.state.State(), d.fail(ctx, gen, err)
	}
	err = d.settle(ctx, gen, state.SetCurrentWeather{Snapshot: snap})
	return d.state.State(), err
}

// LoadForecast fetches current conditions and the 5-day forecast for ref
// concurrently. Both must succeed for either to be applied.
func (d *Dashboard) LoadForecast(ctx context.Context, ref CityRef) (state.State, error) {
	return d.loadForecast(ctx, d.begin(ctx), ref)
}

func (d *Dashboard) loadForecast(ctx context.Context, gen uint64, ref CityRef) (state.State, error) {
	unit := d.state.State().TemperatureUnit

	snap, days, err := d.fetchForecast(ctx, ref, unit)
	if err != nil {
		d.log.Warn("forecast fetch failed", "city", ref.label(), "err", err)
		return d.state.State(), d.fail(ctx, gen, err)
	}
	err = d.settle(ctx, gen,
		state.SetForecast{Days: days},
		state.SetCurrentWeather{Snapshot: snap},
	)
	return d.state.State(), err
}

// locate resolves the device location for request gen. A failure is
// recorded as the global error.
func (d *Dashboard) locate(ctx context.Context, gen uint64) (weather.Coord, error) {
	coord, err := d.locator.CurrentCoordinates(ctx)
	if err != nil {
		d.log.Warn("location lookup failed", "err", err)
		return weather.Coord{}, d.fail(ctx, gen, err)
	}
	return coord, nil
}

// LoadLocal resolves the device location and loads its current weather.
// A location failure is reported, never replaced by another city.
func (d *Dashboard) LoadLocal(ctx context.Context) (state.State, error) {
	gen := d.begin(ctx)
	coord, err := d.locate(ctx, gen)
	if err != nil {
		return d.state.State(), err
	}

	snap, err := d.src.CurrentByCoords(ctx, coord.Lat, coord.Lon, d.state.State().TemperatureUnit)
	if err != nil {
		d.log.Warn("current weather fetch failed", "coord", coord.String(), "err", err)
		return d.state.State(), d.fail(ctx, gen, err)
	}
	err = d.settle(ctx, gen, state.SetCurrentWeather{Snapshot: snap})
	return d.state.State(), err
}

// LoadLocalForecast resolves the device location and loads its forecast.
func (d *Dashboard) LoadLocalForecast(ctx context.Context) (state.State, error) {
	gen := d.begin(ctx)
	coord, err := d.locate(ctx, gen)
	if err != nil {
		return d.state.State(), err
	}
	return d.loadForecast(ctx, gen, ByCoords(coord.Lat, coord.Lon))
}

// Startup loads the weather for the device location, falling back to the
// default city when the location cannot be determined.
func (d *Dashboard) Startup(ctx context.Context) (state.State, error) {
	s, err := d.LoadLocal(ctx)
	if err == nil || !weather.IsLocationError(err) {
		return s, err
	}
	d.log.Info("falling back to default city", "city", d.defaultCity, "reason", weather.KindOf(err))
	return d.LoadCurrent(ctx, ByName(d.defaultCity))
}

// StartupForecast is Startup for the forecast view: the device location's
// forecast, or the default city's when the location cannot be determined.
func (d *Dashboard) StartupForecast(ctx context.Context) (state.State, error) {
	s, err := d.LoadLocalForecast(ctx)
	if err == nil || !weather.IsLocationError(err) {
		return s, err
	}
	d.log.Info("falling back to default city forecast", "city", d.defaultCity, "reason", weather.KindOf(err))
	return d.LoadForecast(ctx, ByName(d.defaultCity))
}

// Retry reloads the displayed city, or starts over when nothing is shown.
func (d *Dashboard) Retry(ctx context.Context) (state.State, error) {
	s := d.state.State()
	if s.CurrentWeather == nil {
		return d.Startup(ctx)
	}
	ref := refFor(s.CurrentWeather)
	if len(s.Forecast) > 0 {
		return d.LoadForecast(ctx, ref)
	}
	return d.LoadCurrent(ctx, ref)
}

// RetryForecast reloads the forecast of the displayed city, or starts the
// forecast view over when nothing is shown.
func (d *Dashboard) RetryForecast(ctx context.Context) (state.State, error) {
	s := d.state.State()
	if s.CurrentWeather == nil {
		return d.StartupForecast(ctx)
	}
	return d.LoadForecast(ctx, refFor(s.CurrentWeather))
}

// ToggleUnit flips the temperature unit and refetches what is displayed in
// the new unit.
func (d *Dashboard) ToggleUnit(ctx context.Context) (state.State, error) {
	s, _ := d.state.Dispatch(ctx, state.ToggleTemperatureUnit{})
	if s.CurrentWeather == nil {
		return s, nil
	}
	ref := refFor(s.CurrentWeather)
	if len(s.Forecast) > 0 {
		return d.LoadForecast(ctx, ref)
	}
	return d.LoadCurrent(ctx, ref)
}

func refFor(snap *weather.Snapshot) CityRef {
	ref := ByCoords(snap.Coord.Lat, snap.Coord.Lon)
	ref.Name = snap.Name
	return ref
}

func (d *Dashboard) fetchCurrent(ctx context.Context, ref CityRef, unit weather.Unit) (weather.Snapshot, error) {
	if lat, lon, ok := ref.coords(); ok {
		return d.src.CurrentByCoords(ctx, lat, lon, unit)
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return weather.Snapshot{}, weather.NewError(weather.KindInvalidInput, "City name is required", nil)
	}
	return d.src.CurrentByName(ctx, name, unit)
}

func (d *Dashboard) fetchRawForecast(ctx context.Context, ref CityRef, unit weather.Unit) (*weather.RawForecast, error) {
	if lat, lon, ok := ref.coords(); ok {
		return d.src.ForecastByCoords(ctx, lat, lon, unit)
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return nil, weather.NewError(weather.KindInvalidInput, "City name is required", nil)
	}
	return d.src.ForecastByName(ctx, name, unit)
}

func (d *Dashboard) fetchForecast(ctx context.Context, ref CityRef, unit weather.Unit) (weather.Snapshot, []weather.DailyForecast, error) {
	var (
		snap weather.Snapshot
		raw  *weather.RawForecast
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err, "current weather")
		snap, err = d.fetchCurrent(gctx, ref, unit)
		return err
	})
	g.Go(func() (err error) {
		defer recoverInto(&err, "forecast")
		raw, err = d.fetchRawForecast(gctx, ref, unit)
		return err
	})
	if err := g.Wait(); err != nil {
		return weather.Snapshot{}, nil, err
	}

	days, err := weather.Aggregate(raw, d.tz)
	if err != nil {
		return weather.Snapshot{}, nil, err
	}
	return snap, days, nil
}

func recoverInto(err *error, what string) {
	if r := recover(); r != nil {
		*err = weather.NewError(weather.KindUnknown, "Unexpected error", fmt.Errorf("panic fetching %s: %v", what, r))
	}
}
