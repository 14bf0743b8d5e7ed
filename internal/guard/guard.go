// Package guard decides public versus protected navigation from session
// presence alone. It never asks the server whether the token is still
// good; an expired token surfaces on the next API call instead.
package guard

import "sync"

// Well-known routes.
const (
	LoginRoute = "/login"
	HomeRoute  = "/home"
)

// State of the navigation guard.
type State int

const (
	Public State = iota
	Authenticated
)

// Access classifies a route.
type Access int

const (
	// AccessPublic routes are reachable by anyone.
	AccessPublic Access = iota
	// AccessGuestOnly routes (login, register) bounce authenticated
	// users to home.
	AccessGuestOnly
	// AccessProtected routes require a session.
	AccessProtected
)

// TokenSource reports the current bearer token; empty means logged out.
type TokenSource interface {
	Token() string
}

// Guard gates navigation. When a protected route is hit without a token it
// redirects to login and remembers the requested route so a successful
// login can return there.
type Guard struct {
	tokens TokenSource

	mu       sync.Mutex
	returnTo string
}

func New(tokens TokenSource) *Guard {
	return &Guard{tokens: tokens}
}

// State reports whether a valid-looking token is present.
func (g *Guard) State() State {
	if g.tokens.Token() == "" {
		return Public
	}
	return Authenticated
}

// Decision is the outcome of a navigation check.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// Check gates navigation to route.
func (g *Guard) Check(route string, access Access) Decision {
	authenticated := g.State() == Authenticated

	switch access {
	case AccessGuestOnly:
		if authenticated {
			return Decision{RedirectTo: HomeRoute}
		}
	case AccessProtected:
		if !authenticated {
			g.mu.Lock()
			g.returnTo = route
			g.mu.Unlock()
			return Decision{RedirectTo: LoginRoute}
		}
	}
	return Decision{Allowed: true}
}

// ConsumeReturnTo returns the route remembered by the last denied
// navigation, or home when there is none, and forgets it.
func (g *Guard) ConsumeReturnTo() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	route := g.returnTo
	g.returnTo = ""
	if route == "" {
		return HomeRoute
	}
	return route
}
