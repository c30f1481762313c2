// Package config loads the dashboard's settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/neexbeast/weatherdash/internal/weather"
)

// Favorites backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the process configuration.
type Config struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"omitempty,url"`
	OpenWeatherGeoURL  string `validate:"omitempty,url"`
	IPGeoURL           string `validate:"omitempty,url"`

	// DefaultCoord, when set, replaces IP geolocation with fixed coordinates.
	DefaultCoord *weather.Coord
	DefaultCity  string `validate:"required"`

	FavoritesBackend string `validate:"oneof=file redis postgres memory"`
	FavoritesFile    string `validate:"required_if=FavoritesBackend file"`
	RedisURL         string `validate:"required_if=FavoritesBackend redis"`
	DatabaseURL      string `validate:"required_if=FavoritesBackend postgres"`
	MigrationsDir    string

	TemperatureUnit weather.Unit
	SearchDebounce  time.Duration `validate:"gt=0"`
	LocationTimeout time.Duration `validate:"gt=0"`

	Port  string `validate:"required,numeric"`
	Token string
}

var validate = validator.New()

// Load reads configuration from the environment, after loading a .env file
// if one exists.
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		OpenWeatherAPIKey:  get("OPENWEATHER_API_KEY", ""),
		OpenWeatherBaseURL: get("OPENWEATHER_BASE_URL", ""),
		OpenWeatherGeoURL:  get("OPENWEATHER_GEO_URL", ""),
		IPGeoURL:           get("IPGEO_URL", ""),
		DefaultCity:        get("DEFAULT_CITY", "London"),
		FavoritesBackend:   strings.ToLower(get("FAVORITES_BACKEND", BackendFile)),
		FavoritesFile:      get("FAVORITES_FILE", "favorites.json"),
		RedisURL:           get("REDIS_URL", ""),
		DatabaseURL:        get("DATABASE_URL", ""),
		MigrationsDir:      get("MIGRATIONS_DIR", "migrations"),
		TemperatureUnit:    weather.ParseUnit(get("TEMPERATURE_UNIT", string(weather.UnitMetric))),
		Port:               get("PORT", "8080"),
		Token:              get("DASHBOARD_TOKEN", ""),
	}

	var err error
	if cfg.SearchDebounce, err = time.ParseDuration(get("SEARCH_DEBOUNCE", "300ms")); err != nil {
		return nil, fmt.Errorf("invalid SEARCH_DEBOUNCE: %w", err)
	}
	if cfg.LocationTimeout, err = time.ParseDuration(get("LOCATION_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid LOCATION_TIMEOUT: %w", err)
	}

	if cfg.DefaultCoord, err = parseCoord(get("DEFAULT_LAT", ""), get("DEFAULT_LON", "")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseCoord(latStr, lonStr string) (*weather.Coord, error) {
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, fmt.Errorf("DEFAULT_LAT and DEFAULT_LON must be set together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid DEFAULT_LAT %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid DEFAULT_LON %q", lonStr)
	}
	return &weather.Coord{Lat: lat, Lon: lon}, nil
}
