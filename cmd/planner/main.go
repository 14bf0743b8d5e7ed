// Command planner is the Event Planner terminal client. It keeps a durable
// login session and talks to the API for everything else.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/dimitarkovachev/planner/internal/api"
	"github.com/dimitarkovachev/planner/internal/config"
	"github.com/dimitarkovachev/planner/internal/events"
	"github.com/dimitarkovachev/planner/internal/guard"
	"github.com/dimitarkovachev/planner/internal/guests"
	"github.com/dimitarkovachev/planner/internal/session"
)

const usage = `usage: planner <command> [flags]

commands:
  register   create an account and log in
  login      log in with email and password
  logout     clear the stored session
  whoami     show the logged-in user
  events     list organized or invited events, with optional keyword filter
  search     search across organized and invited events
  show       show one event with your RSVP status
  create     create an event
  edit       update an event you organize
  delete     delete an event you organize (requires -yes)
  rsvp       answer an invitation (going, maybe, not_going)
  guests     show an event's attendee roster
  invite     search users and invite one to an event
`

// app bundles the long-lived pieces every command needs.
type app struct {
	cfg    *config.Config
	sess   *session.Store
	client *api.Client
	guard  *guard.Guard
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()

	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.WarnLevel)
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SessionDBPath), 0755); err != nil {
		fatal(fmt.Errorf("creating session directory: %w", err))
	}
	sess, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		fatal(err)
	}
	defer sess.Close()

	a := &app{cfg: cfg, sess: sess, guard: guard.New(sess)}
	a.client = api.New(cfg.APIBaseURL, sess, api.WithUnauthorizedHook(func() {
		// the server no longer accepts the token; drop the session so the
		// next command starts from the login screen
		if err := sess.Logout(); err != nil {
			log.WithError(err).Error("failed to clear session")
		}
		fmt.Fprintln(os.Stderr, "session expired, please log in again")
	}))

	command, args := os.Args[1], os.Args[2:]
	if err := a.run(command, args); err != nil {
		fatal(err)
	}
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "register":
		return a.cmdRegister(args)
	case "login":
		return a.cmdLogin(args)
	case "logout":
		return a.cmdLogout()
	case "whoami":
		return a.cmdWhoami()
	case "events":
		return a.cmdEvents(args)
	case "search":
		return a.cmdSearch(args)
	case "show":
		return a.cmdShow(args)
	case "create":
		return a.cmdCreate(args)
	case "edit":
		return a.cmdEdit(args)
	case "delete":
		return a.cmdDelete(args)
	case "rsvp":
		return a.cmdRSVP(args)
	case "guests":
		return a.cmdGuests(args)
	case "invite":
		return a.cmdInvite(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// gate runs the navigation guard for a command's route. Denied protected
// commands remember the route so the next login can report where to go
// back to.
func (a *app) gate(route string, access guard.Access) error {
	decision := a.guard.Check(route, access)
	if decision.Allowed {
		return nil
	}
	if decision.RedirectTo == guard.LoginRoute {
		return fmt.Errorf("please log in first (planner login)")
	}
	return fmt.Errorf("already logged in; log out first")
}

func (a *app) cmdRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	if err := a.gate("/register", guard.AccessGuestOnly); err != nil {
		return err
	}

	auth, err := a.client.Register(context.Background(), api.Registration{
		Name: *name, Email: *email, Password: *password,
	})
	if err != nil {
		return err
	}
	return a.startSession(auth)
}

func (a *app) cmdLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	if err := a.gate(guard.LoginRoute, guard.AccessGuestOnly); err != nil {
		return err
	}

	auth, err := a.client.Login(context.Background(), api.Credentials{
		Email: *email, Password: *password,
	})
	if err != nil {
		return err
	}
	return a.startSession(auth)
}

func (a *app) startSession(auth *api.Auth) error {
	if err := a.sess.Login(auth.User, auth.Token); err != nil {
		return err
	}
	fmt.Printf("logged in as %s <%s>\n", auth.User.Name, auth.User.Email)
	if target := a.guard.ConsumeReturnTo(); target != guard.HomeRoute {
		fmt.Printf("you were headed to %s\n", target)
	}
	return nil
}

func (a *app) cmdLogout() error {
	if err := a.sess.Logout(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) cmdWhoami() error {
	if err := a.gate("/home", guard.AccessProtected); err != nil {
		return err
	}
	cur := a.sess.Current()
	fmt.Printf("%s <%s> (id %d)\n", cur.User.Name, cur.User.Email, cur.User.ID)
	return nil
}

func (a *app) cmdEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	mode := fs.String("mode", "organized", "organized or invited")
	query := fs.String("q", "", "keyword filter")
	fs.Parse(args)

	if err := a.gate("/events", guard.AccessProtected); err != nil {
		return err
	}

	list := events.NewList(a.client)
	list.Load(context.Background(), events.Mode(*mode))
	if *query != "" {
		list.Search(context.Background(), *query)
	}

	evs := list.Events()
	if len(evs) == 0 {
		fmt.Println("no events")
		return nil
	}
	for _, ev := range evs {
		printEventLine(ev, "")
	}
	return nil
}

func (a *app) cmdSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("usage: planner search <query>")
	}

	if err := a.gate("/search", guard.AccessProtected); err != nil {
		return err
	}

	results := events.SearchCombined(context.Background(), a.client, fs.Arg(0))
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	for _, se := range results {
		printEventLine(se.Event, se.Role)
	}
	return nil
}

func (a *app) cmdShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.Int64("id", 0, "event id")
	fs.Parse(args)

	if err := a.gate("/events/show", guard.AccessProtected); err != nil {
		return err
	}

	d, err := a.loadDetail(*id)
	if err != nil {
		return err
	}

	ev := d.Event()
	fmt.Printf("#%d %s\n", ev.ID, ev.Title)
	if ev.Description != "" {
		fmt.Printf("  %s\n", ev.Description)
	}
	fmt.Printf("  when:  %s %s\n", events.FormDate(ev), ev.Time)
	fmt.Printf("  where: %s\n", ev.Location)
	if d.IsPast() {
		fmt.Println("  this event has ended")
	}
	if d.IsOrganizer() {
		fmt.Println("  you are the organizer")
	} else {
		status := d.Status()
		if status == "" {
			status = "no response"
		}
		fmt.Printf("  your RSVP: %s\n", status)
	}
	return nil
}

func (a *app) cmdCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	in := bindEventFlags(fs)
	fs.Parse(args)

	if err := a.gate("/events/new", guard.AccessProtected); err != nil {
		return err
	}

	ev, err := a.client.CreateEvent(context.Background(), *in)
	if err != nil {
		return err
	}
	fmt.Printf("created event #%d %s\n", ev.ID, ev.Title)
	return nil
}

func (a *app) cmdEdit(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.Int64("id", 0, "event id")
	in := bindEventFlags(fs)
	fs.Parse(args)

	if err := a.gate("/events/edit", guard.AccessProtected); err != nil {
		return err
	}

	d, err := a.loadDetail(*id)
	if err != nil {
		return err
	}

	// start from the current event and overlay only the flags given
	form := events.EditForm(d.Event())
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			form.Title = in.Title
		case "desc":
			form.Description = in.Description
		case "date":
			form.Date = in.Date
		case "time":
			form.Time = in.Time
		case "location":
			form.Location = in.Location
		}
	})

	if err := d.Update(context.Background(), form); err != nil {
		return err
	}
	fmt.Printf("updated event #%d %s\n", d.Event().ID, d.Event().Title)
	return nil
}

func (a *app) cmdDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "event id")
	yes := fs.Bool("yes", false, "confirm deletion")
	fs.Parse(args)

	if err := a.gate("/events/delete", guard.AccessProtected); err != nil {
		return err
	}

	d, err := a.loadDetail(*id)
	if err != nil {
		return err
	}
	if err := d.Delete(context.Background(), *yes); err != nil {
		if errors.Is(err, events.ErrConfirmRequired) {
			return errors.New("deletion is permanent; re-run with -yes to confirm")
		}
		return err
	}
	fmt.Printf("deleted event #%d\n", *id)
	return nil
}

func (a *app) cmdRSVP(args []string) error {
	fs := flag.NewFlagSet("rsvp", flag.ExitOnError)
	id := fs.Int64("id", 0, "event id")
	status := fs.String("status", "", "going, maybe or not_going")
	fs.Parse(args)

	if err := a.gate("/events/rsvp", guard.AccessProtected); err != nil {
		return err
	}

	d, err := a.loadDetail(*id)
	if err != nil {
		return err
	}
	if err := d.SetStatus(context.Background(), *status); err != nil {
		return err
	}
	fmt.Printf("RSVP for event #%d set to %s\n", *id, *status)
	return nil
}

func (a *app) cmdGuests(args []string) error {
	fs := flag.NewFlagSet("guests", flag.ExitOnError)
	id := fs.Int64("id", 0, "event id")
	fs.Parse(args)

	if err := a.gate("/events/guests", guard.AccessProtected); err != nil {
		return err
	}

	c := guests.New(a.client, *id, nil)
	c.LoadRoster(context.Background())

	roster := c.Attendees()
	if len(roster) == 0 {
		fmt.Println("no guests yet")
		return nil
	}
	for _, g := range roster {
		fmt.Printf("%s <%s>  %s\n", g.Name, g.Email, g.Status)
	}
	if stats := c.Stats(); stats != nil {
		fmt.Printf("going %d, maybe %d, not going %d, no response %d (total %d)\n",
			stats.Going, stats.Maybe, stats.NotGoing, stats.NoResponse, stats.Total)
	}
	return nil
}

func (a *app) cmdInvite(args []string) error {
	fs := flag.NewFlagSet("invite", flag.ExitOnError)
	id := fs.Int64("id", 0, "event id")
	query := fs.String("q", "", "search users by name or email")
	userID := fs.Int64("user", 0, "user id to invite")
	fs.Parse(args)

	if err := a.gate("/events/invite", guard.AccessProtected); err != nil {
		return err
	}

	c := guests.New(a.client, *id, nil)

	if *userID == 0 {
		matches, err := c.SearchNow(context.Background(), *query)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("no matching users (queries need at least 2 characters)")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%d  %s <%s>\n", m.ID, m.Name, m.Email)
		}
		fmt.Println("re-run with -user <id> to send the invite")
		return nil
	}

	c.Select(api.UserMatch{ID: *userID})
	if err := c.SendInvite(context.Background()); err != nil {
		return err
	}
	fmt.Printf("invited user %d to event #%d\n", *userID, *id)
	return nil
}

func (a *app) loadDetail(id int64) (*events.Detail, error) {
	if id <= 0 {
		return nil, errors.New("an event -id is required")
	}
	cur := a.sess.Current()
	if cur == nil {
		return nil, errors.New("please log in first (planner login)")
	}
	d := events.NewDetail(a.client, cur.User)
	if err := d.Load(context.Background(), id); err != nil {
		return nil, err
	}
	return d, nil
}

func bindEventFlags(fs *flag.FlagSet) *api.EventInput {
	var in api.EventInput
	fs.StringVar(&in.Title, "title", "", "event title")
	fs.StringVar(&in.Description, "desc", "", "event description")
	fs.StringVar(&in.Date, "date", "", "event date (YYYY-MM-DD)")
	fs.StringVar(&in.Time, "time", "", "event time (HH:MM)")
	fs.StringVar(&in.Location, "location", "", "event location")
	return &in
}

func printEventLine(ev api.Event, role string) {
	tag := ""
	if role != "" {
		tag = "  [" + role + "]"
	}
	fmt.Printf("#%d  %s  %s %s  %s%s\n",
		ev.ID, ev.Title, events.FormDate(&ev), ev.Time, ev.Location, tag)
}

// fatal prints the error the way the UI would: validation failures list
// their fields, everything else is a single line.
func fatal(err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		fmt.Fprintln(os.Stderr, "error:", apiErr.Message)
		for _, field := range sortedKeys(apiErr.Fields) {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, apiErr.Fields[field])
		}
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
