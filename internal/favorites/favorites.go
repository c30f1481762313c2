// Package favorites persists the user's favorite cities and owns the rules
// for naming, identifying and validating them.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/neexbeast/weatherdash/internal/weather"
)

// StorageKey is the fixed key the favorites list is stored under.
const StorageKey = "weatherFavorites"

// ErrCorrupt is returned by Load when the persisted value cannot be decoded.
var ErrCorrupt = errors.New("persisted favorites are malformed")

// City is one saved favorite.
type City struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name" validate:"required"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// KeyValueStore is the persistence capability favorites are mirrored to.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repository reads and writes the favorites list under StorageKey.
type Repository struct {
	kv KeyValueStore
}

// NewRepository constructs a Repository over kv.
func NewRepository(kv KeyValueStore) *Repository {
	return &Repository{kv: kv}
}

// Load returns the persisted favorites. An absent key yields an empty list.
// On a read failure or malformed content Load still returns an empty list,
// together with the error so callers can log it.
func (r *Repository) Load(ctx context.Context) ([]City, error) {
	b, err := r.kv.Get(ctx, StorageKey)
	if err != nil {
		return []City{}, fmt.Errorf("reading favorites: %w", err)
	}
	if len(b) == 0 {
		return []City{}, nil
	}

	var cities []City
	if err := json.Unmarshal(b, &cities); err != nil {
		return []City{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if cities == nil {
		cities = []City{}
	}
	return cities, nil
}

// Save replaces the persisted favorites with cities.
func (r *Repository) Save(ctx context.Context, cities []City) error {
	if cities == nil {
		cities = []City{}
	}
	b, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("marshaling favorites: %w", err)
	}
	if err := r.kv.Set(ctx, StorageKey, b); err != nil {
		return fmt.Errorf("writing favorites: %w", err)
	}
	return nil
}

var folder = cases.Fold()

// Normalize is the canonical form two favorite names are compared in:
// whitespace collapsed and Unicode case-folded.
func Normalize(name string) string {
	return folder.String(strings.Join(strings.Fields(name), " "))
}

// Contains reports whether list holds a city whose canonical name equals name's.
func Contains(list []City, name string) bool {
	key := Normalize(name)
	if key == "" {
		return false
	}
	for _, c := range list {
		if Normalize(c.Name) == key {
			return true
		}
	}
	return false
}

// NextID returns the id following the largest id in list, starting at 1.
func NextID(list []City) int64 {
	var highest int64
	for _, c := range list {
		if c.ID > highest {
			highest = c.ID
		}
	}
	return highest + 1
}

var validate = validator.New()

// Validate checks that c carries a name and in-range coordinates.
func Validate(c City) error {
	if err := validate.Struct(c); err != nil {
		return &weather.Error{Kind: weather.KindInvalidInput, Message: "invalid favorite city", Err: err}
	}
	return nil
}

// QuickAddCities are offered as one-click favorites.
var QuickAddCities = []string{"New York", "London", "Tokyo", "Paris", "Sydney", "Dubai", "Mumbai", "Moscow"}

const (
	quickAddLimit    = 4
	quickAddMaxSaved = 5
)

// Suggestions returns up to four quick-add cities not already in list. None
// are offered while list is empty or already holds five or more cities.
func Suggestions(list []City) []string {
	if len(list) == 0 || len(list) >= quickAddMaxSaved {
		return []string{}
	}
	out := make([]string, 0, quickAddLimit)
	for _, name := range QuickAddCities {
		if Contains(list, name) {
			continue
		}
		out = append(out, name)
		if len(out) == quickAddLimit {
			break
		}
	}
	return out
}
