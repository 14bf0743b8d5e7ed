package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dimitarkovachev/planner/internal/api"
)

var (
	// ErrPastEvent rejects RSVP changes once the event has started.
	ErrPastEvent = errors.New("event has ended")
	// ErrNotOrganizer guards edit and delete.
	ErrNotOrganizer = errors.New("only the organizer can do that")
	// ErrOrganizerRSVP rejects the organizer answering their own invite.
	ErrOrganizerRSVP = errors.New("organizers do not RSVP to their own event")
	// ErrInvalidStatus rejects statuses outside going/maybe/not_going.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrConfirmRequired guards the destructive delete.
	ErrConfirmRequired = errors.New("deletion requires confirmation")
	// ErrBusy means a mutation for this view is already in flight.
	ErrBusy = errors.New("another update is still in progress")
	// ErrNotLoaded means the view has no event yet.
	ErrNotLoaded = errors.New("event not loaded")
)

// DetailAPI is the slice of the API client the detail view needs.
type DetailAPI interface {
	Event(ctx context.Context, id int64) (*api.Event, error)
	EventStatus(ctx context.Context, id int64) (string, error)
	SetEventStatus(ctx context.Context, id int64, status string) error
	UpdateEvent(ctx context.Context, id int64, in api.EventInput) (*api.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Detail drives the single-event view: the event itself, the viewer's RSVP
// status and the organizer/past derived flags. Mutations are serialized by
// an in-flight flag so a control cannot be double-submitted.
type Detail struct {
	api    DetailAPI
	viewer api.User
	now    func() time.Time

	mu     sync.Mutex
	event  *api.Event
	status string
	busy   bool
}

func NewDetail(a DetailAPI, viewer api.User) *Detail {
	return &Detail{api: a, viewer: viewer, now: time.Now}
}

// Load fetches the event and the viewer's RSVP status concurrently. A
// failed status lookup means "no response yet" and is not an error; a
// failed event fetch is.
func (d *Detail) Load(ctx context.Context, id int64) error {
	var (
		ev     *api.Event
		evErr  error
		status string
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ev, evErr = d.api.Event(ctx, id)
	}()
	go func() {
		defer wg.Done()
		st, err := d.api.EventStatus(ctx, id)
		if err != nil {
			log.WithError(err).WithField("event_id", id).Debug("no RSVP status yet")
			return
		}
		status = st
	}()
	wg.Wait()

	if evErr != nil {
		return fmt.Errorf("loading event %d: %w", id, evErr)
	}

	d.mu.Lock()
	d.event = ev
	d.status = status
	d.mu.Unlock()
	return nil
}

// Event returns the loaded event, or nil.
func (d *Detail) Event() *api.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.event == nil {
		return nil
	}
	cp := *d.event
	return &cp
}

// Status returns the viewer's RSVP status; empty means no response yet.
func (d *Detail) Status() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// IsOrganizer reports whether the viewer organizes the loaded event.
func (d *Detail) IsOrganizer() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return IsOrganizer(d.event, d.viewer.ID)
}

// IsPast reports whether the loaded event has already started.
func (d *Detail) IsPast() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.event == nil {
		return false
	}
	return IsPast(d.event, d.now())
}

// begin marks a mutation in flight; end is deferred so the control always
// re-enables, success or failure.
func (d *Detail) begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.event == nil {
		return ErrNotLoaded
	}
	if d.busy {
		return ErrBusy
	}
	d.busy = true
	return nil
}

func (d *Detail) end() {
	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
}

// SetStatus records the viewer's RSVP answer. Rejected locally for past
// events, for organizers and for unknown statuses; on success the
// displayed status is patched immediately.
func (d *Detail) SetStatus(ctx context.Context, status string) error {
	switch status {
	case api.StatusGoing, api.StatusMaybe, api.StatusNotGoing:
	default:
		return ErrInvalidStatus
	}
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	if d.IsOrganizer() {
		return ErrOrganizerRSVP
	}
	if d.IsPast() {
		return ErrPastEvent
	}

	d.mu.Lock()
	id := d.event.ID
	d.mu.Unlock()

	if err := d.api.SetEventStatus(ctx, id, status); err != nil {
		return err
	}

	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
	return nil
}

// Update saves organizer edits and replaces the loaded event with the
// server's copy.
func (d *Detail) Update(ctx context.Context, in api.EventInput) error {
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	if !d.IsOrganizer() {
		return ErrNotOrganizer
	}

	d.mu.Lock()
	id := d.event.ID
	d.mu.Unlock()

	updated, err := d.api.UpdateEvent(ctx, id, in)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if updated != nil && updated.ID != 0 {
		d.event = updated
	}
	d.mu.Unlock()
	return nil
}

// Delete destroys the event. It is organizer-only and demands an explicit
// confirmation; on success the view is cleared and the caller must
// navigate away. On failure the event stays visible.
func (d *Detail) Delete(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmRequired
	}
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	if !d.IsOrganizer() {
		return ErrNotOrganizer
	}

	d.mu.Lock()
	id := d.event.ID
	d.mu.Unlock()

	if err := d.api.DeleteEvent(ctx, id); err != nil {
		return err
	}

	d.mu.Lock()
	d.event = nil
	d.status = ""
	d.mu.Unlock()
	return nil
}
