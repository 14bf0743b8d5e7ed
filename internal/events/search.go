package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dimitarkovachev/planner/internal/api"
)

// Role tags attached to combined search results.
const (
	RoleTagOrganizer = "organizer"
	RoleTagAttendee  = "attendee"
)

// Sourced is a combined-search result tagged with which listing it came
// from.
type Sourced struct {
	api.Event
	Role string
}

// DefaultQuiet is the debounce quiet period for search-as-you-type.
const DefaultQuiet = 300 * time.Millisecond

// Searcher is the search-as-you-type box over the merged organized and
// invited listings. Keystrokes reset a debounce timer; each fired search
// carries a sequence number and late completions that are no longer the
// latest are discarded.
type Searcher struct {
	api       ListAPI
	quiet     time.Duration
	minLen    int
	onResults func([]Sourced)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	results []Sourced
}

// NewSearcher builds a combined searcher. onResults runs after every
// completed (non-stale) search and after every cleared query; it may be
// nil.
func NewSearcher(a ListAPI, minLen int, quiet time.Duration, onResults func([]Sourced)) *Searcher {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if minLen < 1 {
		minLen = 1
	}
	return &Searcher{api: a, quiet: quiet, minLen: minLen, onResults: onResults}
}

// SetQuery registers a keystroke. Queries below the minimum length clear
// the results immediately; otherwise the search fires after the quiet
// period, unless another keystroke arrives first.
func (s *Searcher) SetQuery(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	if len(query) < s.minLen {
		s.results = nil
		cb := s.onResults
		s.mu.Unlock()
		if cb != nil {
			cb(nil)
		}
		return
	}
	seq := s.seq
	s.timer = time.AfterFunc(s.quiet, func() { s.run(seq, query) })
	s.mu.Unlock()
}

func (s *Searcher) run(seq uint64, query string) {
	results := SearchCombined(context.Background(), s.api, query)

	s.mu.Lock()
	if seq != s.seq {
		// a newer keystroke superseded this search
		s.mu.Unlock()
		return
	}
	s.results = results
	cb := s.onResults
	s.mu.Unlock()

	if cb != nil {
		cb(results)
	}
}

// Results returns the latest completed search results.
func (s *Searcher) Results() []Sourced {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sourced, len(s.results))
	copy(out, s.results)
	return out
}

// SearchCombined fetches the organized and invited listings concurrently,
// merges them de-duplicated by event id with the organizer-sourced copy
// winning, and filters by keyword. Either listing failing degrades to an
// empty contribution.
func SearchCombined(ctx context.Context, a ListAPI, query string) []Sourced {
	var organized, invited []api.Event

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		organized, _ = a.OrganizedEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		invited, _ = a.InvitedEvents(ctx)
	}()
	wg.Wait()

	seen := make(map[int64]bool, len(organized))
	merged := make([]Sourced, 0, len(organized)+len(invited))
	for _, e := range organized {
		seen[e.ID] = true
		merged = append(merged, Sourced{Event: e, Role: RoleTagOrganizer})
	}
	for _, e := range invited {
		if seen[e.ID] {
			continue
		}
		merged = append(merged, Sourced{Event: e, Role: RoleTagAttendee})
	}

	var filtered []Sourced
	for _, se := range merged {
		if matchesKeyword(&se.Event, query, se.Role) {
			filtered = append(filtered, se)
		}
	}
	return filtered
}
