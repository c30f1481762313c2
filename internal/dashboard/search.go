package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/neexbeast/weatherdash/internal/state"
	"github.com/neexbeast/weatherdash/internal/weather"
)

const (
	// DefaultSearchDebounce is the quiet period before a typed query is sent.
	DefaultSearchDebounce = 300 * time.Millisecond

	minSearchLen  = 2
	searchTimeout = 10 * time.Second
)

// CitySearcher looks up city suggestions for a partial name.
type CitySearcher interface {
	SearchCities(ctx context.Context, query string) ([]weather.CitySuggestion, error)
}

// SearchResults is the latest settled autocomplete outcome.
type SearchResults struct {
	Query       string                   `json:"query"`
	Suggestions []weather.CitySuggestion `json:"suggestions"`
	Error       *state.ErrorInfo         `json:"error,omitempty"`
}

// Searcher runs debounced city lookups. Only the most recently issued query
// may update the results; responses to older queries are discarded.
type Searcher struct {
	src   CitySearcher
	delay time.Duration
	log   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	issued  uint64
	latest  SearchResults
	stopped bool
}

// NewSearcher constructs a Searcher. A non-positive delay selects
// DefaultSearchDebounce.
func NewSearcher(src CitySearcher, delay time.Duration, log *slog.Logger) *Searcher {
	if delay <= 0 {
		delay = DefaultSearchDebounce
	}
	return &Searcher{
		src:    src,
		delay:  delay,
		log:    log,
		latest: SearchResults{Suggestions: []weather.CitySuggestion{}},
	}
}

// Submit schedules a lookup for query after the debounce delay, cancelling
// any lookup still waiting.
func (s *Searcher) Submit(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.issued++
	gen := s.issued
	s.timer = time.AfterFunc(s.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		_, _ = s.run(ctx, gen, query)
	})
}

// Search looks query up immediately.
func (s *Searcher) Search(ctx context.Context, query string) (SearchResults, error) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.issued++
	gen := s.issued
	s.mu.Unlock()
	return s.run(ctx, gen, query)
}

// Results returns the latest settled outcome.
func (s *Searcher) Results() SearchResults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyResults(s.latest)
}

// Stop cancels any pending lookup. Submit is a no-op afterwards.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Searcher) run(ctx context.Context, gen uint64, query string) (SearchResults, error) {
	query = strings.TrimSpace(query)
	res := SearchResults{Query: query, Suggestions: []weather.CitySuggestion{}}

	var err error
	if utf8.RuneCountInString(query) >= minSearchLen {
		var found []weather.CitySuggestion
		found, err = s.src.SearchCities(ctx, query)
		if err != nil {
			s.log.Warn("city search failed", "query", query, "err", err)
			info := state.ErrorFrom(err)
			res.Error = &info
		} else if found != nil {
			res.Suggestions = found
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.issued {
		return copyResults(s.latest), ErrSuperseded
	}
	s.latest = res
	return copyResults(res), err
}

func copyResults(r SearchResults) SearchResults {
	out := r
	out.Suggestions = append([]weather.CitySuggestion{}, r.Suggestions...)
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}
	return out
}
