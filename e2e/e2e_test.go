package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = "http://localhost:8080"

// Response types (self-contained, no dependency on main module)

type Envelope struct {
	Message string            `json:"message"`
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Event struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	MyStatus string `json:"my_status"`
}

type AttendeeReport struct {
	Attendees []struct {
		UserID int64  `json:"user_id"`
		Status string `json:"status"`
	} `json:"attendees"`
	Going int  `json:"going"`
	Total *int `json:"total"`
}

func TestMain(m *testing.M) {
	if u := os.Getenv("API_URL"); u != "" {
		baseURL = u
	}

	if !waitForHealthy(15 * time.Second) {
		fmt.Fprintf(os.Stderr, "ERROR: API at %s not healthy after timeout\n", baseURL)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func waitForHealthy(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}

func doJSON(t *testing.T, method, path, token string, body any) (*http.Response, Envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, baseURL+path, rd)
	if err != nil {
		t.Fatalf("building request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var env Envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

// register creates a user with a unique email per test run.
func register(t *testing.T, name string) Auth {
	t.Helper()
	email := fmt.Sprintf("%s-%d@e2e.test", name, time.Now().UnixNano())
	resp, env := doJSON(t, http.MethodPost, "/api/v1/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}
	var auth Auth
	if err := json.Unmarshal(env.Data, &auth); err != nil {
		t.Fatalf("decode auth failed: %v", err)
	}
	if auth.Token == "" {
		t.Fatal("expected a token from register")
	}
	return auth
}

// --- Happy path ---

func TestLoginAfterRegister(t *testing.T) {
	auth := register(t, "login-user")

	resp, env := doJSON(t, http.MethodPost, "/api/v1/login", "", map[string]string{
		"email":    auth.User.Email,
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got Auth
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.User.ID != auth.User.ID {
		t.Fatalf("expected user %d, got %d", auth.User.ID, got.User.ID)
	}
}

func TestEventLifecycle(t *testing.T) {
	organizer := register(t, "organizer")
	guest := register(t, "guest")

	// create
	resp, env := doJSON(t, http.MethodPost, "/api/v1/events", organizer.Token, map[string]string{
		"title":    "E2E Launch",
		"date":     "2100-06-15",
		"time":     "19:00",
		"location": "Rooftop",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}
	var ev Event
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		t.Fatalf("decode event failed: %v", err)
	}

	// invite the guest
	resp, env = doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/v1/events/%d/invite", ev.ID), organizer.Token,
		map[string][]int64{"user_ids": {guest.User.ID}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invite: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	// guest sees it in the invited list
	resp, env = doJSON(t, http.MethodGet, "/api/v1/events/invited", guest.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invited list: expected 200, got %d", resp.StatusCode)
	}
	var invited []Event
	if err := json.Unmarshal(env.Data, &invited); err != nil {
		t.Fatalf("decode list failed: %v", err)
	}
	found := false
	for _, e := range invited {
		if e.ID == ev.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("event %d missing from guest's invited list", ev.ID)
	}

	// no status before answering
	statusPath := fmt.Sprintf("/api/v1/events/%d/status", ev.ID)
	resp, _ = doJSON(t, http.MethodGet, statusPath, guest.Token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before answering, got %d", resp.StatusCode)
	}

	// RSVP going
	resp, env = doJSON(t, http.MethodPost, statusPath, guest.Token,
		map[string]string{"status": "going"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rsvp: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	// roster reflects the answer
	resp, env = doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/v1/events/%d/attendees", ev.ID), organizer.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("attendees: expected 200, got %d", resp.StatusCode)
	}
	var report AttendeeReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report failed: %v", err)
	}
	if report.Going != 1 {
		t.Fatalf("expected going=1, got %d", report.Going)
	}
	if report.Total == nil || *report.Total != 1 {
		t.Fatalf("expected total=1, got %v", report.Total)
	}

	// delete
	resp, _ = doJSON(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/events/%d", ev.ID), organizer.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/v1/events/%d", ev.ID), organizer.Token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

// --- Fault cases ---

func TestProtectedWithoutToken(t *testing.T) {
	resp, _ := doJSON(t, http.MethodGet, "/api/v1/events/organized", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	resp, env := doJSON(t, http.MethodPost, "/api/v1/register", "", map[string]string{
		"name":     "",
		"email":    "broken",
		"password": "1",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if env.Errors["email"] == "" || env.Errors["password"] == "" {
		t.Fatalf("expected field errors, got %v", env.Errors)
	}
}

func TestGuestCannotDelete(t *testing.T) {
	organizer := register(t, "owner")
	guest := register(t, "intruder")

	_, env := doJSON(t, http.MethodPost, "/api/v1/events", organizer.Token, map[string]string{
		"title":    "Private Party",
		"date":     "2100-06-15",
		"time":     "20:00",
		"location": "Basement",
	})
	var ev Event
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		t.Fatalf("decode event failed: %v", err)
	}

	resp, _ := doJSON(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/events/%d", ev.ID), guest.Token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
