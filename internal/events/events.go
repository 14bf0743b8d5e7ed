// Package events holds the view logic for the event list, the combined
// search and the event detail with its RSVP actions.
package events

import (
	"strings"
	"time"

	"github.com/dimitarkovachev/planner/internal/api"
)

// IsOrganizer reports whether userID appears in the event's participant
// list with the organizer role. An empty or missing list means no.
func IsOrganizer(e *api.Event, userID int64) bool {
	if e == nil {
		return false
	}
	for _, p := range e.Participants {
		if p.UserID == userID && p.Role == api.RoleOrganizer {
			return true
		}
	}
	return false
}

// StartTime combines the event's calendar date with its HH:MM time string.
// Only the date portion of Date is used, regardless of any time-of-day
// suffix the server included.
func StartTime(e *api.Event) (time.Time, error) {
	datePart, _, _ := strings.Cut(e.Date, "T")
	return time.ParseInLocation("2006-01-02T15:04", datePart+"T"+e.Time, time.Local)
}

// IsPast reports whether the event starts strictly before now. An event
// starting exactly at now is not past. Unparseable dates are treated as
// upcoming so the event stays actionable.
func IsPast(e *api.Event, now time.Time) bool {
	start, err := StartTime(e)
	if err != nil {
		return false
	}
	return start.Before(now)
}

// FormDate is the event's date reduced to a plain YYYY-MM-DD string, the
// shape the edit form expects.
func FormDate(e *api.Event) string {
	datePart, _, _ := strings.Cut(e.Date, "T")
	return datePart
}

// EditForm pre-populates an input from a fetched event.
func EditForm(e *api.Event) api.EventInput {
	return api.EventInput{
		Title:       e.Title,
		Description: e.Description,
		Date:        FormDate(e),
		Time:        e.Time,
		Location:    e.Location,
	}
}

// matchesKeyword is the case-insensitive substring filter applied to an
// already-fetched event. The extra fields (role tag, RSVP status) are only
// consulted in the combined search.
func matchesKeyword(e *api.Event, query string, role string) bool {
	q := strings.ToLower(query)
	fields := []string{e.Title, e.Description, e.Location, e.Date, e.Time}
	if role != "" {
		fields = append(fields, role, e.MyStatus)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
