// Package gate decides, for a requested location and the current session,
// whether the view may render or where the user must be sent instead.
package gate

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-clinic-client/sessions"
	"github.com/jrsteele09/go-clinic-client/users"
)

type State int

const (
	Loading State = iota
	Redirect
	Render
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Route is a location pattern and who may see it. Patterns use chi syntax:
// "/patients/{id}" or "/admin/*". A pattern ending in "/*" also covers its
// base path.
type Route struct {
	Pattern      string
	RequiredRole users.RoleType // "" means any signed-in user
	Public       bool           // Rendered for everyone, even while loading
}

// Decision is the gate's verdict for one location.
type Decision struct {
	State  State
	Target string // Where to go, for Redirect
	Reason string // Human readable denial reason
	From   string // Location to resume after signing in
}

type Gate struct {
	mux         *chi.Mux
	routes      map[string]Route
	loginPath   string
	landingPath string
}

// New builds a gate over routes. The landing page must be reachable by any
// signed-in user, or a denied user would be redirected in a loop.
func New(loginPath, landingPath string, routes []Route) (*Gate, error) {
	g := &Gate{
		mux:         chi.NewRouter(),
		routes:      make(map[string]Route),
		loginPath:   loginPath,
		landingPath: landingPath,
	}
	for _, r := range routes {
		if err := g.add(r); err != nil {
			return nil, err
		}
	}
	if !g.Match(loginPath).Public {
		return nil, fmt.Errorf("gate: login route %q must be public", loginPath)
	}
	if landing := g.Match(landingPath); landing.RequiredRole != "" || landing.Public {
		return nil, fmt.Errorf("gate: landing route %q must be open to every signed-in user", landingPath)
	}
	return g, nil
}

func (g *Gate) add(r Route) (err error) {
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("gate: route pattern %q must begin with '/'", r.Pattern)
	}
	if i := strings.Index(r.Pattern, "*"); i >= 0 && i != len(r.Pattern)-1 {
		return fmt.Errorf("gate: wildcard must end route pattern %q", r.Pattern)
	}

	// chi reports malformed patterns by panicking.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("gate: route pattern %q: %v", r.Pattern, p)
		}
	}()

	g.register(r.Pattern, r)
	if base, ok := strings.CutSuffix(r.Pattern, "/*"); ok && base != "" {
		if _, exists := g.routes[base]; !exists {
			g.register(base, r)
		}
	}
	return nil
}

func (g *Gate) register(pattern string, r Route) {
	g.mux.Handle(pattern, http.NotFoundHandler())
	g.routes[pattern] = r
}

func (g *Gate) LoginPath() string {
	return g.loginPath
}

func (g *Gate) LandingPath() string {
	return g.landingPath
}

// Match returns the route governing location. Unknown locations are
// protected with no role requirement.
func (g *Gate) Match(location string) Route {
	p := cleanPath(location)
	pattern := g.mux.Find(chi.NewRouteContext(), http.MethodGet, p)
	if r, ok := g.routes[pattern]; ok {
		return r
	}
	return Route{Pattern: p}
}

// Decide never redirects while the session is loading, so a restored
// session is not bounced to the login page on startup.
func (g *Gate) Decide(snap sessions.Snapshot, location string) Decision {
	route := g.Match(location)
	switch {
	case route.Public:
		return Decision{State: Render}
	case snap.Loading:
		return Decision{State: Loading}
	case !snap.IsAuthenticated():
		return Decision{State: Redirect, Target: g.loginPath, From: location}
	case !snap.User.Satisfies(route.RequiredRole):
		return Decision{
			State:  Redirect,
			Target: g.landingPath,
			Reason: fmt.Sprintf("You do not have permission to access %s", cleanPath(location)),
		}
	default:
		return Decision{State: Render}
	}
}

// Resume returns where to go after user signs in: from, if user may see it,
// otherwise the landing page.
func (g *Gate) Resume(user *users.User, from string) string {
	if from == "" {
		return g.landingPath
	}
	route := g.Match(from)
	if route.Public || !user.Satisfies(route.RequiredRole) {
		return g.landingPath
	}
	return cleanLocation(from)
}

// cleanLocation is the path the gate judged plus the query. Scheme and host
// are dropped so a resume target never leaves the client.
func cleanLocation(location string) string {
	p := cleanPath(location)
	if u, err := url.Parse(location); err == nil && u.RawQuery != "" {
		return p + "?" + u.RawQuery
	}
	return p
}

func cleanPath(location string) string {
	p := location
	if u, err := url.Parse(location); err == nil {
		p = u.Path
	}
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
