// Package location resolves the user's current coordinates.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/neexbeast/weatherdash/internal/weather"
)

// DefaultTimeout bounds a single coordinates lookup.
const DefaultTimeout = 10 * time.Second

// DefaultIPGeoURL is the IP geolocation endpoint used when none is configured.
const DefaultIPGeoURL = "http://ip-api.com/json"

// Provider returns the current coordinates of the host.
type Provider interface {
	CurrentCoordinates(ctx context.Context) (weather.Coord, error)
}

// Unavailable is the provider used when no location capability exists.
type Unavailable struct{}

func (Unavailable) CurrentCoordinates(_ context.Context) (weather.Coord, error) {
	return weather.Coord{}, &weather.Error{
		Kind:    weather.KindLocationUnavailable,
		Message: "Geolocation is not supported on this host",
	}
}

// StaticProvider always reports the configured coordinates.
type StaticProvider struct {
	Coord weather.Coord
}

func (s StaticProvider) CurrentCoordinates(_ context.Context) (weather.Coord, error) {
	return s.Coord, nil
}

// IPProvider resolves coordinates from the host's public IP address.
type IPProvider struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewIPProvider constructs an IPProvider against the default lookup service.
func NewIPProvider() *IPProvider {
	return NewIPProviderWithURL(DefaultIPGeoURL, DefaultTimeout)
}

// NewIPProviderWithURL constructs an IPProvider with a custom URL and timeout (for tests).
func NewIPProviderWithURL(url string, timeout time.Duration) *IPProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &IPProvider{url: url, timeout: timeout, client: &http.Client{}}
}

type ipGeoResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentCoordinates looks up the host's coordinates, failing with
// KindLocationTimeout once the provider's timeout elapses.
func (p *IPProvider) CurrentCoordinates(ctx context.Context) (weather.Coord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return weather.Coord{}, fmt.Errorf("creating location request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return weather.Coord{}, &weather.Error{Kind: weather.KindLocationTimeout, Message: "Timed out getting your location", Err: err}
		}
		return weather.Coord{}, &weather.Error{Kind: weather.KindLocationUnavailable, Message: "Failed to get your location", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return weather.Coord{}, &weather.Error{Kind: weather.KindLocationDenied, Message: "Location access denied"}
	case resp.StatusCode != http.StatusOK:
		return weather.Coord{}, &weather.Error{
			Kind:    weather.KindLocationUnavailable,
			Message: "Failed to get your location",
			Err:     fmt.Errorf("location lookup returned status %d", resp.StatusCode),
		}
	}

	var body ipGeoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return weather.Coord{}, &weather.Error{Kind: weather.KindLocationTimeout, Message: "Timed out getting your location", Err: err}
		}
		return weather.Coord{}, &weather.Error{Kind: weather.KindLocationUnavailable, Message: "Failed to get your location", Err: err}
	}
	if body.Status != "" && body.Status != "success" {
		return weather.Coord{}, &weather.Error{
			Kind:    weather.KindLocationUnavailable,
			Message: "Failed to get your location",
			Err:     fmt.Errorf("location lookup failed: %s", body.Message),
		}
	}

	return weather.Coord{Lat: body.Lat, Lon: body.Lon}, nil
}
