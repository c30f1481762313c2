package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neexbeast/weatherdash/internal/favorites"
	"github.com/neexbeast/weatherdash/internal/weather"
)

// FavoritesRepository is the persistent mirror of the favorites list.
type FavoritesRepository interface {
	Load(ctx context.Context) ([]favorites.City, error)
	Save(ctx context.Context, cities []favorites.City) error
}

// Container owns the State. Dispatches are serialized: each intent is
// reduced and, for favorites changes, written through before the next one
// is applied.
type Container struct {
	mu    sync.Mutex
	state State
	repo  FavoritesRepository
	log   *slog.Logger
}

// NewContainer hydrates favorites from repo once. Unreadable or malformed
// persisted data starts the session with no favorites.
func NewContainer(ctx context.Context, repo FavoritesRepository, unit weather.Unit, log *slog.Logger) *Container {
	favs, err := repo.Load(ctx)
	if err != nil {
		log.Warn("favorites hydration failed, starting empty", "err", err)
		favs = nil
	}
	return &Container{
		state: Initial(favs, unit),
		repo:  repo,
		log:   log,
	}
}

// State returns a copy of the current state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Dispatch applies in and returns a copy of the resulting state. The
// transition itself always succeeds; a non-nil error reports that the
// favorites write-through failed, in which case the in-memory state still
// holds the change.
func (c *Container) Dispatch(ctx context.Context, in Intent) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Reduce(c.state, in)

	var err error
	if favoritesChanged(in) {
		if saveErr := c.repo.Save(ctx, c.state.Favorites); saveErr != nil {
			c.log.Error("favorites write-through failed", "err", saveErr)
			err = fmt.Errorf("persisting favorites: %w", saveErr)
		}
	}
	return c.state.clone(), err
}
