// Package stubserver is a local, in-memory implementation of the Event
// Planner API surface the client consumes. It exists for development and
// end-to-end tests; the real server stays an external collaborator.
package stubserver

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/dimitarkovachev/planner/internal/api"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNotOrganizer   = errors.New("only the organizer can do that")
	ErrNotInvited     = errors.New("user is not invited to this event")
	ErrOrganizerRSVP  = errors.New("organizers do not RSVP")
)

type userRecord struct {
	api.User
	PasswordHash string
}

type eventRecord struct {
	ID          int64
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	// participant user id -> role
	Roles map[int64]string
	// RSVP answers, keyed by user id; absent means no response yet
	Statuses map[int64]string
}

// Store is the in-memory backing state.
type Store struct {
	mu          sync.Mutex
	users       map[int64]*userRecord
	usersByMail map[string]*userRecord
	events      map[int64]*eventRecord
	nextUserID  int64
	nextEventID int64
}

func NewStore() *Store {
	return &Store{
		users:       make(map[int64]*userRecord),
		usersByMail: make(map[string]*userRecord),
		events:      make(map[int64]*eventRecord),
	}
}

func (s *Store) CreateUser(name, email, passwordHash string) (api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.usersByMail[key]; exists {
		return api.User{}, ErrDuplicateEmail
	}

	s.nextUserID++
	rec := &userRecord{
		User:         api.User{ID: s.nextUserID, Name: name, Email: email},
		PasswordHash: passwordHash,
	}
	s.users[rec.ID] = rec
	s.usersByMail[key] = rec
	return rec.User, nil
}

// UserByEmail returns the user and password hash for a login attempt.
func (s *Store) UserByEmail(email string) (api.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.usersByMail[strings.ToLower(email)]
	if !ok {
		return api.User{}, "", ErrNotFound
	}
	return rec.User, rec.PasswordHash, nil
}

func (s *Store) UserByID(id int64) (api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return api.User{}, ErrNotFound
	}
	return rec.User, nil
}

// SearchUsers matches name or email case-insensitively by substring.
func (s *Store) SearchUsers(query string) []api.UserMatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var matches []api.UserMatch
	for _, rec := range s.users {
		if strings.Contains(strings.ToLower(rec.Name), q) ||
			strings.Contains(strings.ToLower(rec.Email), q) {
			matches = append(matches, api.UserMatch{ID: rec.ID, Name: rec.Name, Email: rec.Email})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}

func (s *Store) CreateEvent(organizerID int64, in api.EventInput) api.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	rec := &eventRecord{
		ID:          s.nextEventID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Location:    in.Location,
		Roles:       map[int64]string{organizerID: api.RoleOrganizer},
		Statuses:    make(map[int64]string),
	}
	s.events[rec.ID] = rec
	return s.toEvent(rec, 0)
}

func (s *Store) Event(id, viewerID int64) (api.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[id]
	if !ok {
		return api.Event{}, ErrNotFound
	}
	return s.toEvent(rec, viewerID), nil
}

func (s *Store) UpdateEvent(id, userID int64, in api.EventInput) (api.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[id]
	if !ok {
		return api.Event{}, ErrNotFound
	}
	if rec.Roles[userID] != api.RoleOrganizer {
		return api.Event{}, ErrNotOrganizer
	}
	rec.Title = in.Title
	rec.Description = in.Description
	rec.Date = in.Date
	rec.Time = in.Time
	rec.Location = in.Location
	return s.toEvent(rec, userID), nil
}

func (s *Store) DeleteEvent(id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Roles[userID] != api.RoleOrganizer {
		return ErrNotOrganizer
	}
	delete(s.events, id)
	return nil
}

// OrganizedEvents lists events where userID holds the organizer role.
func (s *Store) OrganizedEvents(userID int64) []api.Event {
	return s.listEvents(func(rec *eventRecord) bool {
		return rec.Roles[userID] == api.RoleOrganizer
	}, userID)
}

// InvitedEvents lists events where userID is a non-organizer participant.
func (s *Store) InvitedEvents(userID int64) []api.Event {
	return s.listEvents(func(rec *eventRecord) bool {
		role, ok := rec.Roles[userID]
		return ok && role != api.RoleOrganizer
	}, userID)
}

// AllEvents lists every event userID participates in.
func (s *Store) AllEvents(userID int64) []api.Event {
	return s.listEvents(func(rec *eventRecord) bool {
		_, ok := rec.Roles[userID]
		return ok
	}, userID)
}

func (s *Store) listEvents(keep func(*eventRecord) bool, viewerID int64) []api.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.Event
	for _, rec := range s.events {
		if keep(rec) {
			out = append(out, s.toEvent(rec, viewerID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Invite adds users as attendee participants. Only the organizer may
// invite; unknown users fail the whole call.
func (s *Store) Invite(eventID, organizerID int64, userIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	if rec.Roles[organizerID] != api.RoleOrganizer {
		return ErrNotOrganizer
	}
	for _, id := range userIDs {
		if _, ok := s.users[id]; !ok {
			return ErrNotFound
		}
	}
	for _, id := range userIDs {
		if _, already := rec.Roles[id]; !already {
			rec.Roles[id] = "attendee"
		}
	}
	return nil
}

// Status returns userID's RSVP answer; ErrNotFound until they answer.
func (s *Store) Status(eventID, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[eventID]
	if !ok {
		return "", ErrNotFound
	}
	status, ok := rec.Statuses[userID]
	if !ok {
		return "", ErrNotFound
	}
	return status, nil
}

// SetStatus records an RSVP answer. Only invited non-organizer
// participants may answer.
func (s *Store) SetStatus(eventID, userID int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	role, invited := rec.Roles[userID]
	if !invited {
		return ErrNotInvited
	}
	if role == api.RoleOrganizer {
		return ErrOrganizerRSVP
	}
	rec.Statuses[userID] = status
	return nil
}

// Attendees builds the roster with per-status counts. The organizer is
// not listed as an attendee.
func (s *Store) Attendees(eventID int64) (*api.AttendeeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}

	report := &api.AttendeeReport{}
	for userID, role := range rec.Roles {
		if role == api.RoleOrganizer {
			continue
		}
		user, ok := s.users[userID]
		if !ok {
			continue
		}
		status := rec.Statuses[userID]
		if status == "" {
			status = api.StatusNoResponse
		}
		report.Attendees = append(report.Attendees, api.Attendee{
			UserID: userID,
			Name:   user.Name,
			Email:  user.Email,
			Status: status,
		})
		switch status {
		case api.StatusGoing:
			report.Going++
		case api.StatusMaybe:
			report.Maybe++
		case api.StatusNotGoing:
			report.NotGoing++
		default:
			report.NoResponse++
		}
	}
	sort.Slice(report.Attendees, func(i, j int) bool {
		return report.Attendees[i].UserID < report.Attendees[j].UserID
	})
	total := len(report.Attendees)
	report.Total = &total
	return report, nil
}

// toEvent projects a record into the wire shape. When viewerID is a
// non-organizer participant, their RSVP answer is included as my_status.
// Callers must hold s.mu.
func (s *Store) toEvent(rec *eventRecord, viewerID int64) api.Event {
	ev := api.Event{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Date:        rec.Date,
		Time:        rec.Time,
		Location:    rec.Location,
	}
	for userID, role := range rec.Roles {
		ev.Participants = append(ev.Participants, api.Participant{UserID: userID, Role: role})
	}
	sort.Slice(ev.Participants, func(i, j int) bool {
		return ev.Participants[i].UserID < ev.Participants[j].UserID
	})
	if viewerID != 0 && rec.Roles[viewerID] != api.RoleOrganizer {
		ev.MyStatus = rec.Statuses[viewerID]
	}
	return ev
}
