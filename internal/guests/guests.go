// Package guests drives the guest-list view: the attendee roster with its
// organizer stats, and the debounced invite search with its single
// transient selection.
package guests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dimitarkovachev/planner/internal/api"
)

var (
	// ErrNoSelection means send was asked for without a chosen candidate.
	ErrNoSelection = errors.New("no invitee selected")
	// ErrInviteInFlight means the previous invite has not resolved yet.
	ErrInviteInFlight = errors.New("an invite is already being sent")
)

// API is the slice of the API client the guest view needs.
type API interface {
	Attendees(ctx context.Context, eventID int64) (*api.AttendeeReport, error)
	SearchUsers(ctx context.Context, query string) ([]api.UserMatch, error)
	Invite(ctx context.Context, eventID int64, userIDs []int64) error
}

// Stats are the per-status attendee counts shown to organizers.
type Stats struct {
	Going      int
	Maybe      int
	NotGoing   int
	NoResponse int
	Total      int
}

// Search tuning for the invite box.
const (
	DefaultQuiet  = 300 * time.Millisecond
	DefaultMinLen = 2
)

// Controller owns one event's guest list. The roster and the invite
// search are independent async subsystems sharing this view.
type Controller struct {
	api       API
	eventID   int64
	quiet     time.Duration
	minLen    int
	onResults func([]api.UserMatch)

	mu        sync.Mutex
	attendees []api.Attendee
	stats     *Stats
	selected  *api.UserMatch
	inviting  bool

	timer   *time.Timer
	seq     uint64
	results []api.UserMatch
}

// New builds the controller for one event. onResults runs after every
// completed invite search; it may be nil.
func New(a API, eventID int64, onResults func([]api.UserMatch)) *Controller {
	return &Controller{
		api:       a,
		eventID:   eventID,
		quiet:     DefaultQuiet,
		minLen:    DefaultMinLen,
		onResults: onResults,
	}
}

// LoadRoster fetches the attendee list. A failed fetch or a malformed
// attendee array degrades to an empty roster; stats are kept only when the
// server included aggregate counts.
func (c *Controller) LoadRoster(ctx context.Context) {
	report, err := c.api.Attendees(ctx, c.eventID)
	if err != nil {
		log.WithError(err).WithField("event_id", c.eventID).Error("failed to load attendees")
		report = nil
	}

	var attendees []api.Attendee
	var stats *Stats
	if report != nil {
		attendees = report.Attendees
		if report.HasStats() {
			stats = &Stats{
				Going:      report.Going,
				Maybe:      report.Maybe,
				NotGoing:   report.NotGoing,
				NoResponse: report.NoResponse,
				Total:      *report.Total,
			}
		}
	}

	c.mu.Lock()
	c.attendees = attendees
	c.stats = stats
	c.mu.Unlock()
}

// Attendees returns a copy of the roster.
func (c *Controller) Attendees() []api.Attendee {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Attendee, len(c.attendees))
	copy(out, c.attendees)
	return out
}

// Stats returns the organizer counts, or nil when the server sent none.
func (c *Controller) Stats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil {
		return nil
	}
	cp := *c.stats
	return &cp
}

// SetQuery registers an invite-search keystroke. Queries below the
// two-character minimum clear the results; otherwise the search fires
// after the quiet period unless another keystroke resets it. Stale
// completions are fenced off by sequence number.
func (c *Controller) SetQuery(query string) {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.seq++
	if len(query) < c.minLen {
		c.results = nil
		cb := c.onResults
		c.mu.Unlock()
		if cb != nil {
			cb(nil)
		}
		return
	}
	seq := c.seq
	c.timer = time.AfterFunc(c.quiet, func() { c.run(seq, query) })
	c.mu.Unlock()
}

func (c *Controller) run(seq uint64, query string) {
	results, err := c.api.SearchUsers(context.Background(), query)
	if err != nil {
		log.WithError(err).Debug("invite search failed")
		results = nil
	}

	c.mu.Lock()
	if seq != c.seq {
		// a newer keystroke superseded this search
		c.mu.Unlock()
		return
	}
	c.results = results
	cb := c.onResults
	c.mu.Unlock()

	if cb != nil {
		cb(results)
	}
}

// SearchNow performs a synchronous invite search, bypassing the debounce
// but honoring the minimum length.
func (c *Controller) SearchNow(ctx context.Context, query string) ([]api.UserMatch, error) {
	query = strings.TrimSpace(query)
	if len(query) < c.minLen {
		return nil, nil
	}
	return c.api.SearchUsers(ctx, query)
}

// Results returns the latest completed search results.
func (c *Controller) Results() []api.UserMatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.UserMatch, len(c.results))
	copy(out, c.results)
	return out
}

// Select picks an invite candidate, clearing the search results. Picking
// a second candidate replaces the first.
func (c *Controller) Select(u api.UserMatch) {
	c.mu.Lock()
	c.selected = &u
	c.results = nil
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}

// ClearSelection drops the chosen candidate.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()
}

// Selected returns the chosen candidate, or nil.
func (c *Controller) Selected() *api.UserMatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	cp := *c.selected
	return &cp
}

// SendInvite posts the selected candidate as a single-element recipient
// list. Success clears the selection and re-fetches the roster; failure
// keeps the selection so the user can retry.
func (c *Controller) SendInvite(ctx context.Context) error {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return ErrNoSelection
	}
	if c.inviting {
		c.mu.Unlock()
		return ErrInviteInFlight
	}
	c.inviting = true
	userID := c.selected.ID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inviting = false
		c.mu.Unlock()
	}()

	if err := c.api.Invite(ctx, c.eventID, []int64{userID}); err != nil {
		return err
	}

	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()

	c.LoadRoster(ctx)
	return nil
}
