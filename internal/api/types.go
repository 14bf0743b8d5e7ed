package api

import "encoding/json"

// envelope is the response wrapper used by every Event Planner endpoint.
type envelope struct {
	Message string            `json:"message"`
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
	Err     string            `json:"error"`
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth is the payload returned by login and register.
type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

const RoleOrganizer = "organizer"

type Participant struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// RSVP statuses. An empty status means the guest has not responded yet.
const (
	StatusGoing      = "going"
	StatusMaybe      = "maybe"
	StatusNotGoing   = "not_going"
	StatusNoResponse = "no_response"
)

// Event as returned by the API. Date is an ISO calendar date that may carry
// a time-of-day suffix; Time is a separate HH:MM string.
type Event struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Date         string        `json:"date"`
	Time         string        `json:"time"`
	Location     string        `json:"location"`
	Participants []Participant `json:"participants,omitempty"`
	MyStatus     string        `json:"my_status,omitempty"`
}

// EventInput is the create/update request body.
type EventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
}

type Attendee struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// AttendeeReport is the attendee listing plus the per-status counts the
// server includes for organizers. Total is nil when the server sent no
// aggregate counts.
type AttendeeReport struct {
	Attendees  []Attendee `json:"attendees"`
	Going      int        `json:"going"`
	Maybe      int        `json:"maybe"`
	NotGoing   int        `json:"not_going"`
	NoResponse int        `json:"no_response"`
	Total      *int       `json:"total"`
}

// HasStats reports whether the server included aggregate counts.
func (r *AttendeeReport) HasStats() bool {
	return r != nil && r.Total != nil
}

// UserMatch is a transient invite-search result.
type UserMatch struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SearchFilter is the body of the advanced search endpoint. Zero-valued
// fields are omitted.
type SearchFilter struct {
	Keyword  string `json:"keyword,omitempty"`
	Location string `json:"location,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}
