package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TokenSource supplies the current bearer token. An empty string means no
// session; the Authorization header is omitted.
type TokenSource interface {
	Token() string
}

// Client talks to the Event Planner API. It attaches the session token,
// converts non-2xx responses into *Error and does nothing else: no retry,
// no caching.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func()
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithUnauthorizedHook installs a callback fired whenever a call fails with
// 401 or 403, so the application can drop the session and route to login.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one request and decodes the response envelope. A response
// body that is not valid JSON is treated as an empty envelope rather than
// failing the caller.
func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	if t := c.tokens.Token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	logger := log.WithFields(log.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		logger.WithError(err).Debug("request failed")
		return nil, &Error{Kind: KindNetwork, Message: "request failed"}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		env = envelope{}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, &env)
		logger.WithField("status", resp.StatusCode).Debug(apiErr.Message)
		if apiErr.Kind == KindAuth && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, apiErr
	}
	return &env, nil
}

func newError(status int, env *envelope) *Error {
	msg := env.Message
	if msg == "" {
		msg = env.Err
	}
	if msg == "" {
		msg = "request failed"
	}

	kind := KindServer
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status >= 400 && status < 500 && len(env.Errors) > 0:
		kind = KindValidation
	}
	return &Error{Kind: kind, Status: status, Message: msg, Fields: env.Errors}
}

// decode unmarshals the envelope data into out. Missing data is left as
// the zero value.
func decode(env *envelope, out any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindNetwork, Message: "request failed"}
	}
	return nil
}

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Auth, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/v1/login", creds)
	if err != nil {
		return nil, err
	}
	var auth Auth
	if err := decode(env, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Register creates an account and returns the freshly minted session.
func (c *Client) Register(ctx context.Context, reg Registration) (*Auth, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/v1/register", reg)
	if err != nil {
		return nil, err
	}
	var auth Auth
	if err := decode(env, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func (c *Client) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/v1/events", in)
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := decode(env, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) Event(ctx context.Context, id int64) (*Event, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%d", id), nil)
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := decode(env, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id int64, in EventInput) (*Event, error) {
	env, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/events/%d", id), in)
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := decode(env, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/events/%d", id), nil)
	return err
}

func (c *Client) OrganizedEvents(ctx context.Context) ([]Event, error) {
	return c.eventList(ctx, "/api/v1/events/organized")
}

func (c *Client) InvitedEvents(ctx context.Context) ([]Event, error) {
	return c.eventList(ctx, "/api/v1/events/invited")
}

func (c *Client) AllEvents(ctx context.Context) ([]Event, error) {
	return c.eventList(ctx, "/api/v1/all-events")
}

func (c *Client) eventList(ctx context.Context, path string) ([]Event, error) {
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := decode(env, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Invite adds the given users to an event's guest list.
func (c *Client) Invite(ctx context.Context, eventID int64, userIDs []int64) error {
	body := struct {
		UserIDs []int64 `json:"user_ids"`
	}{UserIDs: userIDs}
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/events/%d/invite", eventID), body)
	return err
}

// EventStatus returns the caller's RSVP status for an event. The server
// responds 404 until the guest has answered; callers treat that as
// "no response yet".
func (c *Client) EventStatus(ctx context.Context, eventID int64) (string, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%d/status", eventID), nil)
	if err != nil {
		return "", err
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decode(env, &payload); err != nil {
		return "", err
	}
	return payload.Status, nil
}

func (c *Client) SetEventStatus(ctx context.Context, eventID int64, status string) error {
	body := struct {
		Status string `json:"status"`
	}{Status: status}
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/events/%d/status", eventID), body)
	return err
}

func (c *Client) Attendees(ctx context.Context, eventID int64) (*AttendeeReport, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%d/attendees", eventID), nil)
	if err != nil {
		return nil, err
	}
	var report AttendeeReport
	if err := decode(env, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) AttendeesByStatus(ctx context.Context, eventID int64, status string) ([]Attendee, error) {
	path := fmt.Sprintf("/api/v1/events/%d/attendees/status?status=%s", eventID, url.QueryEscape(status))
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Attendees []Attendee `json:"attendees"`
	}
	if err := decode(env, &payload); err != nil {
		return nil, err
	}
	return payload.Attendees, nil
}

// SearchEvents runs the advanced search with a structured filter.
func (c *Client) SearchEvents(ctx context.Context, filter SearchFilter) ([]Event, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/v1/search", filter)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := decode(env, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) SearchByKeyword(ctx context.Context, keyword string) ([]Event, error) {
	return c.eventList(ctx, "/api/v1/search/keyword?q="+url.QueryEscape(keyword))
}

// SearchUsers looks up invite candidates by name or email fragment.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]UserMatch, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/users/search?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	var users []UserMatch
	if err := decode(env, &users); err != nil {
		return nil, err
	}
	return users, nil
}
