package stubserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/dimitarkovachev/planner/internal/api"
)

// Server wires the in-memory store behind the HTTP surface the client
// expects.
type Server struct {
	store     *Store
	jwtSecret string
}

func NewServer(store *Store, jwtSecret string) *Server {
	return &Server{store: store, jwtSecret: jwtSecret}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware...)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.POST("/register", s.handleRegister)
	v1.POST("/login", s.handleLogin)

	auth := v1.Group("", s.requireAuth())
	auth.POST("/events", s.handleCreateEvent)
	auth.GET("/events/organized", s.handleOrganizedEvents)
	auth.GET("/events/invited", s.handleInvitedEvents)
	auth.GET("/all-events", s.handleAllEvents)
	auth.GET("/events/:id", s.handleGetEvent)
	auth.PUT("/events/:id", s.handleUpdateEvent)
	auth.DELETE("/events/:id", s.handleDeleteEvent)
	auth.POST("/events/:id/invite", s.handleInvite)
	auth.GET("/events/:id/status", s.handleGetStatus)
	auth.POST("/events/:id/status", s.handleSetStatus)
	auth.GET("/events/:id/attendees", s.handleAttendees)
	auth.GET("/events/:id/attendees/status", s.handleAttendeesByStatus)
	auth.POST("/search", s.handleSearch)
	auth.GET("/search/keyword", s.handleSearchKeyword)
	auth.GET("/users/search", s.handleSearchUsers)

	return r
}

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func failValidation(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"message": "validation failed",
		"errors":  fields,
	})
}

func eventIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusNotFound, "event not found")
		return 0, false
	}
	return id, true
}

func (s *Server) handleRegister(c *gin.Context) {
	var req api.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name is required"
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = "a valid email is required"
	}
	if len(req.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	if len(fields) > 0 {
		failValidation(c, fields)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		log.WithError(err).Error("failed to hash password")
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := s.store.CreateUser(req.Name, req.Email, hash)
	if errors.Is(err, ErrDuplicateEmail) {
		failValidation(c, map[string]string{"email": "email is already registered"})
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := makeToken(s.jwtSecret, user.ID)
	if err != nil {
		log.WithError(err).Error("failed to sign token")
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, "registered", api.Auth{Token: token, User: user})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req api.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, hash, err := s.store.UserByEmail(req.Email)
	if err != nil || !checkPassword(hash, req.Password) {
		fail(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := makeToken(s.jwtSecret, user.ID)
	if err != nil {
		log.WithError(err).Error("failed to sign token")
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, "logged in", api.Auth{Token: token, User: user})
}

func validateEventInput(in api.EventInput) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if in.Date == "" {
		fields["date"] = "date is required"
	}
	if in.Time == "" {
		fields["time"] = "time is required"
	}
	if strings.TrimSpace(in.Location) == "" {
		fields["location"] = "location is required"
	}
	return fields
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var in api.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := validateEventInput(in); len(fields) > 0 {
		failValidation(c, fields)
		return
	}

	ev := s.store.CreateEvent(currentUserID(c), in)
	log.WithField("event_id", ev.ID).Info("event created")
	ok(c, "event created", ev)
}

func (s *Server) handleGetEvent(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	ev, err := s.store.Event(id, currentUserID(c))
	if err != nil {
		fail(c, http.StatusNotFound, "event not found")
		return
	}
	ok(c, "event", ev)
}

func (s *Server) handleUpdateEvent(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	var in api.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := validateEventInput(in); len(fields) > 0 {
		failValidation(c, fields)
		return
	}

	ev, err := s.store.UpdateEvent(id, currentUserID(c), in)
	switch {
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, "event not found")
	case errors.Is(err, ErrNotOrganizer):
		fail(c, http.StatusForbidden, "only the organizer can update this event")
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
	default:
		ok(c, "event updated", ev)
	}
}

func (s *Server) handleDeleteEvent(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	err := s.store.DeleteEvent(id, currentUserID(c))
	switch {
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, "event not found")
	case errors.Is(err, ErrNotOrganizer):
		fail(c, http.StatusForbidden, "only the organizer can delete this event")
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
	default:
		log.WithField("event_id", id).Info("event deleted")
		ok(c, "event deleted", nil)
	}
}

func (s *Server) handleOrganizedEvents(c *gin.Context) {
	events := s.store.OrganizedEvents(currentUserID(c))
	ok(c, "organized events", events)
}

func (s *Server) handleInvitedEvents(c *gin.Context) {
	events := s.store.InvitedEvents(currentUserID(c))
	ok(c, "invited events", events)
}

func (s *Server) handleAllEvents(c *gin.Context) {
	events := s.store.AllEvents(currentUserID(c))
	ok(c, "all events", events)
}

func (s *Server) handleInvite(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	var req struct {
		UserIDs []int64 `json:"user_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.UserIDs) == 0 {
		failValidation(c, map[string]string{"user_ids": "at least one user is required"})
		return
	}

	err := s.store.Invite(id, currentUserID(c), req.UserIDs)
	switch {
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, "event or user not found")
	case errors.Is(err, ErrNotOrganizer):
		fail(c, http.StatusForbidden, "only the organizer can invite guests")
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
	default:
		ok(c, "invitations sent", nil)
	}
}

func (s *Server) handleGetStatus(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	status, err := s.store.Status(id, currentUserID(c))
	if err != nil {
		// no answer recorded yet; the client shows "no response"
		fail(c, http.StatusNotFound, "no status recorded")
		return
	}
	ok(c, "status", gin.H{"status": status})
}

func (s *Server) handleSetStatus(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Status {
	case api.StatusGoing, api.StatusMaybe, api.StatusNotGoing:
	default:
		failValidation(c, map[string]string{"status": "status must be going, maybe or not_going"})
		return
	}

	err := s.store.SetStatus(id, currentUserID(c), req.Status)
	switch {
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, "event not found")
	case errors.Is(err, ErrNotInvited):
		fail(c, http.StatusForbidden, "you are not invited to this event")
	case errors.Is(err, ErrOrganizerRSVP):
		fail(c, http.StatusForbidden, "organizers do not RSVP to their own events")
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
	default:
		ok(c, "status updated", gin.H{"status": req.Status})
	}
}

func (s *Server) handleAttendees(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	report, err := s.store.Attendees(id)
	if err != nil {
		fail(c, http.StatusNotFound, "event not found")
		return
	}
	ok(c, "attendees", report)
}

func (s *Server) handleAttendeesByStatus(c *gin.Context) {
	id, okID := eventIDParam(c)
	if !okID {
		return
	}
	status := c.Query("status")
	report, err := s.store.Attendees(id)
	if err != nil {
		fail(c, http.StatusNotFound, "event not found")
		return
	}
	filtered := make([]api.Attendee, 0, len(report.Attendees))
	for _, a := range report.Attendees {
		if a.Status == status {
			filtered = append(filtered, a)
		}
	}
	ok(c, "attendees", gin.H{"attendees": filtered})
}

func matchesFilter(ev api.Event, f api.SearchFilter) bool {
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(ev.Title), kw) &&
			!strings.Contains(strings.ToLower(ev.Description), kw) &&
			!strings.Contains(strings.ToLower(ev.Location), kw) {
			return false
		}
	}
	if f.Location != "" &&
		!strings.Contains(strings.ToLower(ev.Location), strings.ToLower(f.Location)) {
		return false
	}
	// ISO dates compare correctly as strings
	if f.DateFrom != "" && ev.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && ev.Date > f.DateTo {
		return false
	}
	return true
}

func (s *Server) handleSearch(c *gin.Context) {
	var filter api.SearchFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	all := s.store.AllEvents(currentUserID(c))
	matched := make([]api.Event, 0, len(all))
	for _, ev := range all {
		if matchesFilter(ev, filter) {
			matched = append(matched, ev)
		}
	}
	ok(c, "search results", matched)
}

func (s *Server) handleSearchKeyword(c *gin.Context) {
	keyword := c.Query("q")
	all := s.store.AllEvents(currentUserID(c))
	matched := make([]api.Event, 0, len(all))
	for _, ev := range all {
		if matchesFilter(ev, api.SearchFilter{Keyword: keyword}) {
			matched = append(matched, ev)
		}
	}
	ok(c, "search results", matched)
}

func (s *Server) handleSearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		ok(c, "users", []api.UserMatch{})
		return
	}
	ok(c, "users", s.store.SearchUsers(query))
}
