package events

import (
	"context"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dimitarkovachev/planner/internal/api"
)

// Mode selects which event listing backs the view.
type Mode string

const (
	ModeOrganized Mode = "organized"
	ModeInvited   Mode = "invited"
)

// ListAPI is the slice of the API client the list view needs.
type ListAPI interface {
	OrganizedEvents(ctx context.Context) ([]api.Event, error)
	InvitedEvents(ctx context.Context) ([]api.Event, error)
}

// List is the per-tab event listing with its explicit-submit keyword
// filter. Loading a mode replaces the collection wholesale; a failed load
// degrades to an empty listing rather than surfacing the error.
type List struct {
	api ListAPI

	mu     sync.Mutex
	mode   Mode
	events []api.Event
}

func NewList(a ListAPI) *List {
	return &List{api: a, mode: ModeOrganized}
}

func fetchMode(ctx context.Context, a ListAPI, mode Mode) ([]api.Event, error) {
	if mode == ModeInvited {
		return a.InvitedEvents(ctx)
	}
	return a.OrganizedEvents(ctx)
}

// Load replaces the collection with the given mode's events.
func (l *List) Load(ctx context.Context, mode Mode) {
	events, err := fetchMode(ctx, l.api, mode)
	if err != nil {
		log.WithError(err).WithField("mode", mode).Error("failed to load events")
		events = nil
	}

	l.mu.Lock()
	l.mode = mode
	l.events = events
	l.mu.Unlock()
}

// Search re-fetches the active mode and keeps only events matching the
// keyword. An empty query reloads the full listing.
func (l *List) Search(ctx context.Context, query string) {
	l.mu.Lock()
	mode := l.mode
	l.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		l.Load(ctx, mode)
		return
	}

	events, err := fetchMode(ctx, l.api, mode)
	if err != nil {
		log.WithError(err).WithField("mode", mode).Error("event search failed")
		events = nil
	}

	var filtered []api.Event
	for _, e := range events {
		if matchesKeyword(&e, query, "") {
			filtered = append(filtered, e)
		}
	}

	l.mu.Lock()
	l.events = filtered
	l.mu.Unlock()
}

// Mode returns the active listing mode.
func (l *List) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Events returns a copy of the current collection.
func (l *List) Events() []api.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.Event, len(l.events))
	copy(out, l.events)
	return out
}
