package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Production OpenWeatherMap endpoints.
const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	DefaultGeoURL  = "https://api.openweathermap.org/geo/1.0/direct"
)

const (
	httpTimeout = 10 * time.Second
	searchLimit = 5
)

// Fallback messages used when the provider does not supply one.
const (
	msgCurrentFailed  = "Failed to fetch current weather"
	msgForecastFailed = "Failed to fetch weather forecast"
	msgSearchFailed   = "Failed to search cities"
	msgMissingKey     = "Missing API key. Configure OPENWEATHER_API_KEY"
	msgUnexpectedBody = "Unexpected response format from weather API"
)

var errServerStatus = errors.New("server error status")

// Client talks to the OpenWeatherMap current, forecast and geocoding APIs.
type Client struct {
	apiKey  string
	baseURL string
	geoURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient constructs a Client against the production OpenWeatherMap URLs.
func NewClient(apiKey string) *Client {
	return NewClientWithURLs(DefaultBaseURL, DefaultGeoURL, apiKey)
}

// NewClientWithURLs constructs a Client pointing at custom base URLs (for tests).
func NewClientWithURLs(baseURL, geoURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		geoURL:  geoURL,
		client:  &http.Client{Timeout: httpTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweathermap",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
	}
}

type owmCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmCurrent struct {
	Name  string `json:"name"`
	Dt    int64  `json:"dt"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []owmCondition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

type owmForecast struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
		Wind    struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Coord   struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
}

type owmGeoEntry struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type owmErrorBody struct {
	Message string `json:"message"`
}

type rawResponse struct {
	status int
	body   []byte
}

// CurrentByName fetches current weather for a city name.
func (c *Client) CurrentByName(ctx context.Context, name string, unit Unit) (Snapshot, error) {
	q := url.Values{}
	q.Set("q", name)
	return c.current(ctx, q, unit)
}

// CurrentByCoords fetches current weather for a coordinate pair.
func (c *Client) CurrentByCoords(ctx context.Context, lat, lon float64, unit Unit) (Snapshot, error) {
	return c.current(ctx, coordQuery(lat, lon), unit)
}

// ForecastByName fetches the 5-day/3-hour forecast for a city name.
func (c *Client) ForecastByName(ctx context.Context, name string, unit Unit) (*RawForecast, error) {
	q := url.Values{}
	q.Set("q", name)
	return c.forecast(ctx, q, unit)
}

// ForecastByCoords fetches the 5-day/3-hour forecast for a coordinate pair.
func (c *Client) ForecastByCoords(ctx context.Context, lat, lon float64, unit Unit) (*RawForecast, error) {
	return c.forecast(ctx, coordQuery(lat, lon), unit)
}

// SearchCities returns up to five geocoding matches for query. An empty
// result is not an error.
func (c *Client) SearchCities(ctx context.Context, query string) ([]CitySuggestion, error) {
	if c.apiKey == "" {
		return nil, &Error{Kind: KindConfiguration, Message: msgMissingKey}
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(searchLimit))
	q.Set("appid", c.apiKey)

	var raw []owmGeoEntry
	if err := c.doGet(ctx, c.geoURL+"?"+q.Encode(), &raw); err != nil {
		// Provider messages are not surfaced for search.
		return nil, withMessage(err, msgSearchFailed, false)
	}

	out := make([]CitySuggestion, 0, len(raw))
	for _, r := range raw {
		out = append(out, CitySuggestion{Name: r.Name, Country: r.Country, State: r.State, Lat: r.Lat, Lon: r.Lon})
	}
	return out, nil
}

func (c *Client) current(ctx context.Context, q url.Values, unit Unit) (Snapshot, error) {
	if c.apiKey == "" {
		return Snapshot{}, &Error{Kind: KindConfiguration, Message: msgMissingKey}
	}
	q.Set("units", string(unit))
	q.Set("appid", c.apiKey)

	var raw owmCurrent
	if err := c.doGet(ctx, c.baseURL+"/weather?"+q.Encode(), &raw); err != nil {
		return Snapshot{}, withMessage(err, msgCurrentFailed, true)
	}

	snap := Snapshot{
		Name:        raw.Name,
		Country:     raw.Sys.Country,
		Timestamp:   time.Unix(raw.Dt, 0).UTC(),
		Temperature: raw.Main.Temp,
		FeelsLike:   raw.Main.FeelsLike,
		TempMin:     raw.Main.TempMin,
		TempMax:     raw.Main.TempMax,
		Humidity:    raw.Main.Humidity,
		WindSpeed:   raw.Wind.Speed,
		WindDeg:     raw.Wind.Deg,
		Pressure:    raw.Main.Pressure,
		Visibility:  raw.Visibility,
		Coord:       Coord{Lat: raw.Coord.Lat, Lon: raw.Coord.Lon},
		Sunrise:     time.Unix(raw.Sys.Sunrise, 0).UTC(),
		Sunset:      time.Unix(raw.Sys.Sunset, 0).UTC(),
	}
	if len(raw.Weather) > 0 {
		snap.Condition = toCondition(raw.Weather[0])
	}
	return snap, nil
}

func (c *Client) forecast(ctx context.Context, q url.Values, unit Unit) (*RawForecast, error) {
	if c.apiKey == "" {
		return nil, &Error{Kind: KindConfiguration, Message: msgMissingKey}
	}
	q.Set("units", string(unit))
	q.Set("appid", c.apiKey)

	var raw owmForecast
	if err := c.doGet(ctx, c.baseURL+"/forecast?"+q.Encode(), &raw); err != nil {
		return nil, withMessage(err, msgForecastFailed, true)
	}

	out := &RawForecast{
		City:    raw.City.Name,
		Country: raw.City.Country,
		Coord:   Coord{Lat: raw.City.Coord.Lat, Lon: raw.City.Coord.Lon},
	}
	if raw.List == nil {
		return out, nil
	}

	out.List = make([]ForecastInterval, 0, len(raw.List))
	for _, item := range raw.List {
		iv := ForecastInterval{
			Time:      time.Unix(item.Dt, 0).UTC(),
			Temp:      item.Main.Temp,
			TempMin:   item.Main.TempMin,
			TempMax:   item.Main.TempMax,
			Humidity:  item.Main.Humidity,
			WindSpeed: item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			iv.Condition = toCondition(item.Weather[0])
		}
		out.List = append(out.List, iv)
	}
	return out, nil
}

// doGet performs a GET through the circuit breaker and decodes the JSON
// response into dst. Only transport failures and 5xx responses count
// against the breaker.
func (c *Client) doGet(ctx context.Context, rawURL string, dst any) error {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		raw := rawResponse{status: resp.StatusCode, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, errServerStatus
		}
		return raw, nil
	})

	raw, _ := result.(rawResponse)
	switch {
	case errors.Is(err, errServerStatus):
		// handled below as a status error
	case err != nil:
		return &Error{Kind: KindNetworkFailure, Err: err}
	}

	if raw.status < 200 || raw.status >= 300 {
		var body owmErrorBody
		_ = json.Unmarshal(raw.body, &body)
		return &Error{
			Kind:    KindAPIError,
			Message: body.Message,
			Status:  raw.status,
			Err:     fmt.Errorf("GET returned status %d", raw.status),
		}
	}

	if err := json.Unmarshal(raw.body, dst); err != nil {
		return &Error{Kind: KindInvalidResponseShape, Message: msgUnexpectedBody, Err: err}
	}
	return nil
}

// withMessage fills in the user-facing fallback message. Provider messages on
// API errors are kept when keepProvider is set.
func withMessage(err error, fallback string, keepProvider bool) error {
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: KindUnknown, Message: fallback, Err: err}
	}
	out := *e
	switch {
	case out.Kind == KindInvalidResponseShape:
	case out.Kind == KindAPIError && keepProvider && out.Message != "":
	default:
		out.Message = fallback
	}
	return &out
}

func coordQuery(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return q
}

func toCondition(c owmCondition) Condition {
	return Condition{ID: c.ID, Main: c.Main, Description: c.Description, Icon: c.Icon}
}
