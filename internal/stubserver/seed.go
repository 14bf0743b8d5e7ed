package stubserver

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/dimitarkovachev/planner/internal/api"
)

type seedUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type seedGuest struct {
	Email  string `json:"email"`
	Status string `json:"status,omitempty"`
}

type seedEvent struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	Location    string      `json:"location"`
	Organizer   string      `json:"organizer"`
	Guests      []seedGuest `json:"guests,omitempty"`
}

type seedFile struct {
	Users  []seedUser  `json:"users"`
	Events []seedEvent `json:"events"`
}

// Seed loads users and events from a JSON file into the store. Organizers
// and guests are referenced by email and must appear in the users list.
func Seed(store *Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}

	var data seedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	userIDs := make(map[string]int64, len(data.Users))
	for _, u := range data.Users {
		hash, err := hashPassword(u.Password)
		if err != nil {
			return err
		}
		user, err := store.CreateUser(u.Name, u.Email, hash)
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", u.Email, err)
		}
		userIDs[u.Email] = user.ID
	}

	for _, e := range data.Events {
		organizerID, ok := userIDs[e.Organizer]
		if !ok {
			return fmt.Errorf("seeding event %q: unknown organizer %s", e.Title, e.Organizer)
		}
		ev := store.CreateEvent(organizerID, api.EventInput{
			Title:       e.Title,
			Description: e.Description,
			Date:        e.Date,
			Time:        e.Time,
			Location:    e.Location,
		})
		for _, g := range e.Guests {
			guestID, ok := userIDs[g.Email]
			if !ok {
				return fmt.Errorf("seeding event %q: unknown guest %s", e.Title, g.Email)
			}
			if err := store.Invite(ev.ID, organizerID, []int64{guestID}); err != nil {
				return fmt.Errorf("seeding event %q: %w", e.Title, err)
			}
			if g.Status != "" {
				if err := store.SetStatus(ev.ID, guestID, g.Status); err != nil {
					return fmt.Errorf("seeding event %q: %w", e.Title, err)
				}
			}
		}
	}

	log.WithFields(log.Fields{
		"users":  len(data.Users),
		"events": len(data.Events),
	}).Info("seed data loaded")
	return nil
}
