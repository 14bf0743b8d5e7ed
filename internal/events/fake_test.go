package events

import (
	"context"
	"sync"

	"github.com/dimitarkovachev/planner/internal/api"
)

// fakeAPI implements ListAPI and DetailAPI against in-memory fixtures.
type fakeAPI struct {
	mu sync.Mutex

	organized []api.Event
	invited   []api.Event
	event     *api.Event
	status    string

	organizedErr error
	invitedErr   error
	eventErr     error
	statusErr    error
	setStatusErr error
	updateErr    error
	deleteErr    error

	setStatusCalls []string
	deleteCalls    int

	// when non-nil, OrganizedEvents blocks until released
	organizedGate chan struct{}
}

func (f *fakeAPI) OrganizedEvents(ctx context.Context) ([]api.Event, error) {
	f.mu.Lock()
	gate := f.organizedGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.organizedErr != nil {
		return nil, f.organizedErr
	}
	return f.organized, nil
}

func (f *fakeAPI) InvitedEvents(ctx context.Context) ([]api.Event, error) {
	if f.invitedErr != nil {
		return nil, f.invitedErr
	}
	return f.invited, nil
}

func (f *fakeAPI) Event(ctx context.Context, id int64) (*api.Event, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	cp := *f.event
	return &cp, nil
}

func (f *fakeAPI) EventStatus(ctx context.Context, id int64) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeAPI) SetEventStatus(ctx context.Context, id int64, status string) error {
	f.mu.Lock()
	f.setStatusCalls = append(f.setStatusCalls, status)
	f.mu.Unlock()
	return f.setStatusErr
}

func (f *fakeAPI) UpdateEvent(ctx context.Context, id int64, in api.EventInput) (*api.Event, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	updated := *f.event
	updated.Title = in.Title
	updated.Description = in.Description
	updated.Date = in.Date
	updated.Time = in.Time
	updated.Location = in.Location
	return &updated, nil
}

func (f *fakeAPI) DeleteEvent(ctx context.Context, id int64) error {
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	return f.deleteErr
}
