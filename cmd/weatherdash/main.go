package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neexbeast/weatherdash/internal/api"
	"github.com/neexbeast/weatherdash/internal/config"
	"github.com/neexbeast/weatherdash/internal/dashboard"
	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/kvstore"
	"github.com/neexbeast/weatherdash/internal/location"
	"github.com/neexbeast/weatherdash/internal/state"
	"github.com/neexbeast/weatherdash/internal/weather"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("weatherdash exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(log)
	if err != nil {
		return err
	}
	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY not set, weather requests will fail")
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Wire dependencies.
	source := newWeatherClient(cfg)
	container := state.NewContainer(ctx, favorites.NewRepository(store), cfg.TemperatureUnit, log)
	dash := dashboard.New(source, newLocator(cfg), container, log, dashboard.Options{
		DefaultCity:    cfg.DefaultCity,
		SearchDebounce: cfg.SearchDebounce,
	})
	defer dash.Close()

	// Initial load runs in the background; its outcome lands in the state.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("startup load panicked", "recover", r)
			}
		}()
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := dash.Startup(loadCtx); err != nil {
			log.Warn("startup load failed", "err", err)
		}
	}()

	router := api.NewRouter(api.NewHandlers(dash, log), cfg.Token, store, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port, "favorites_backend", cfg.FavoritesBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// openStore connects the configured favorites backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (kvstore.Store, func(), error) {
	switch cfg.FavoritesBackend {
	case config.BackendRedis:
		client, err := kvstore.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return kvstore.NewRedisStore(client), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		pool, err := kvstore.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := kvstore.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")
		return kvstore.NewPostgresStore(pool), pool.Close, nil

	case config.BackendMemory:
		log.Warn("favorites are kept in memory only")
		return kvstore.NewMemoryStore(), func() {}, nil
	}

	store, err := kvstore.NewFileStore(cfg.FavoritesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("opening favorites file: %w", err)
	}
	return store, func() {}, nil
}

func newWeatherClient(cfg *config.Config) *weather.Client {
	if cfg.OpenWeatherBaseURL == "" && cfg.OpenWeatherGeoURL == "" {
		return weather.NewClient(cfg.OpenWeatherAPIKey)
	}
	return weather.NewClientWithURLs(
		getOr(cfg.OpenWeatherBaseURL, weather.DefaultBaseURL),
		getOr(cfg.OpenWeatherGeoURL, weather.DefaultGeoURL),
		cfg.OpenWeatherAPIKey,
	)
}

func newLocator(cfg *config.Config) location.Provider {
	if cfg.DefaultCoord != nil {
		return location.StaticProvider{Coord: *cfg.DefaultCoord}
	}
	return location.NewIPProviderWithURL(getOr(cfg.IPGeoURL, location.DefaultIPGeoURL), cfg.LocationTimeout)
}

func getOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
