package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitarkovachev/planner/internal/api"
)

func TestSearchCombined_DeduplicatesPreferringOrganizer(t *testing.T) {
	f := &fakeAPI{
		organized: []api.Event{
			{ID: 1, Title: "Launch Party"},
		},
		invited: []api.Event{
			{ID: 1, Title: "Launch Party", MyStatus: "going"},
			{ID: 2, Title: "Launch Rehearsal"},
		},
	}

	results := SearchCombined(context.Background(), f, "launch")
	if len(results) != 2 {
		t.Fatalf("expected 2 de-duplicated results, got %d", len(results))
	}
	if results[0].ID != 1 || results[0].Role != RoleTagOrganizer {
		t.Fatalf("expected event 1 tagged organizer, got %+v", results[0])
	}
	if results[1].ID != 2 || results[1].Role != RoleTagAttendee {
		t.Fatalf("expected event 2 tagged attendee, got %+v", results[1])
	}
}

func TestSearchCombined_FailedSourceDegradesToEmpty(t *testing.T) {
	f := &fakeAPI{
		organizedErr: errors.New("boom"),
		invited:      []api.Event{{ID: 2, Title: "Dinner"}},
	}

	results := SearchCombined(context.Background(), f, "dinner")
	if len(results) != 1 || results[0].ID != 2 {
		t.Fatalf("expected only the invited event, got %+v", results)
	}
}

func TestSearcher_DebounceFiresOnce(t *testing.T) {
	f := &fakeAPI{organized: []api.Event{{ID: 1, Title: "Gala"}}}

	fired := make(chan []Sourced, 4)
	s := NewSearcher(f, 1, 5*time.Millisecond, func(r []Sourced) { fired <- r })

	// rapid keystrokes: only the last survives the quiet period
	s.SetQuery("g")
	s.SetQuery("ga")
	s.SetQuery("gala")

	select {
	case results := <-fired:
		if len(results) != 1 || results[0].ID != 1 {
			t.Fatalf("unexpected results: %+v", results)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced search never fired")
	}

	select {
	case extra := <-fired:
		t.Fatalf("expected a single completion, got another: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSearcher_ShortQueryClearsResults(t *testing.T) {
	f := &fakeAPI{organized: []api.Event{{ID: 1, Title: "Gala"}}}
	s := NewSearcher(f, 2, time.Millisecond, nil)

	s.SetQuery("ga")
	waitForResults(t, s)

	s.SetQuery("g")
	if got := s.Results(); len(got) != 0 {
		t.Fatalf("expected cleared results below minimum length, got %+v", got)
	}
}

func TestSearcher_StaleCompletionDiscarded(t *testing.T) {
	f := &fakeAPI{
		organized: []api.Event{
			{ID: 1, Title: "old gala"},
			{ID: 2, Title: "new gala"},
		},
	}
	// quiet period long enough that pending timers never fire on their own
	s := NewSearcher(f, 1, time.Hour, nil)

	s.SetQuery("old")
	s.SetQuery("new")

	// the second search completes first
	s.run(2, "new")
	if got := s.Results(); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected the new result, got %+v", got)
	}

	// the first search straggles in afterwards and must be dropped
	s.run(1, "old")
	if got := s.Results(); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("stale completion overwrote newer results: %+v", got)
	}
}

func waitForResults(t *testing.T, s *Searcher) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.Results()) > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("search results never arrived")
}
