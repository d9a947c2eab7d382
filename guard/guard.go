package guard

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/permission"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr"
)

// Session is the read side of the session manager plus InitAuth.
type Session interface {
	Status() session.Status
	AccessToken() string
	User() *identity.User
	IsAuthenticated() bool
	InitAuth(ctx context.Context, allowPartial bool) bool
}

// Checker answers permission questions.
type Checker interface {
	HasPermission(code string) bool
}

// Reason explains a [Decision].
type Reason string

const (
	ReasonAllowed    Reason = "allowed"
	ReasonOffline    Reason = "offline"
	ReasonRedirect   Reason = "redirect"
	ReasonSignIn     Reason = "sign_in_required"
	ReasonForbidden  Reason = "forbidden"
	ReasonGuestOnly  Reason = "guest_only"
	ReasonNotFound   Reason = "not_found"
	ReasonInitFailed Reason = "init_failed"
)

// Decision is the outcome of checking one navigation.
type Decision struct {
	Path     string
	Allow    bool
	Redirect string
	Reason   Reason
	Route    Route
	// Title is the page title with the console name appended.
	Title string
}

// Config tunes a [Guard].
type Config struct {
	LoginPath   string
	LandingPath string
	AppTitle    string
	MaxHops     int
	// Catalog, when set, rejects routes naming unknown permission codes.
	Catalog *permission.Catalog
	// AllowPartial is passed to InitAuth when a protected page resolves the
	// session.
	AllowPartial bool
}

// DefaultConfig returns the console defaults.
func DefaultConfig() Config {
	return Config{
		LoginPath:   "/login",
		LandingPath: "/dashboard",
		AppTitle:    "Vessel Schedule Console",
		MaxHops:     5,
		Catalog:     permission.DefaultCatalog(),
	}
}

// Guard checks navigations against a compiled route table.
type Guard struct {
	routes   []compiled
	notFound *compiled
	sess     Session
	perms    Checker
	nav      ui.Navigator
	log      logr.Logger
	cfg      Config
	onDenied func(Decision)
}

// New compiles routes and returns a guard. nav may be nil.
func New(routes []Route, sess Session, perms Checker, nav ui.Navigator, log logr.Logger, cfg Config) (*Guard, error) {
	if sess == nil || perms == nil {
		return nil, fmt.Errorf("guard: session and permission checker are required")
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultConfig().MaxHops
	}
	if nav == nil {
		nav = ui.Discard{}
	}
	compiledRoutes, err := compile(routes, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	g := &Guard{
		routes: compiledRoutes,
		sess:   sess,
		perms:  perms,
		nav:    nav,
		log:    log.WithName("guard"),
		cfg:    cfg,
	}
	for i := range g.routes {
		if g.routes[i].Path == NotFoundPath {
			g.notFound = &g.routes[i]
		}
	}
	return g, nil
}

// OnDenied registers fn to observe every navigation that did not proceed to
// the requested page.
func (g *Guard) OnDenied(fn func(Decision)) *Guard {
	g.onDenied = fn
	return g
}

// Resolve finds the route for path. ok is false when nothing matches and no
// catch-all route exists.
func (g *Guard) Resolve(path string) (Route, bool) {
	segs := split(clean(path))
	for _, c := range g.routes {
		if c.match(segs) {
			return c.Route, true
		}
	}
	if g.notFound != nil {
		return g.notFound.Route, true
	}
	return Route{}, false
}

// Check evaluates one navigation to path without following redirects.
func (g *Guard) Check(ctx context.Context, path string) Decision {
	path = clean(path)
	route, ok := g.Resolve(path)
	d := Decision{Path: path, Route: route, Title: g.title(route.Title)}
	if !ok {
		d.Reason = ReasonNotFound
		return g.deny(d, g.cfg.LandingPath)
	}

	switch {
	case route.RedirectFunc != nil:
		d.Reason = ReasonRedirect
		d.Redirect = route.RedirectFunc(g.sess.IsAuthenticated())
		return d
	case route.Redirect != "":
		d.Reason = ReasonRedirect
		d.Redirect = clean(route.Redirect)
		return d
	}

	d.Reason = ReasonAllowed
	if route.Path == NotFoundPath {
		d.Reason = ReasonNotFound
	}

	if route.RequiresAuth {
		reason, allowed := g.authenticate(ctx)
		if !allowed {
			d.Reason = reason
			return g.deny(d, g.cfg.LoginPath)
		}
		if reason == ReasonOffline {
			d.Reason = ReasonOffline
		}
	}

	if route.Permission != "" && !g.perms.HasPermission(route.Permission) {
		g.log.V(1).Info("permission denied", "path", path, "permission", route.Permission)
		d.Reason = ReasonForbidden
		return g.deny(d, g.cfg.LandingPath)
	}

	if route.Guest && g.sess.IsAuthenticated() {
		d.Reason = ReasonGuestOnly
		return g.deny(d, g.cfg.LandingPath)
	}

	d.Allow = true
	return d
}

// authenticate runs the session checks for a protected page.
func (g *Guard) authenticate(ctx context.Context) (Reason, bool) {
	status := g.sess.Status()
	hasToken := g.sess.AccessToken() != ""

	switch {
	case hasToken && (status == session.StatusUnknown || status == session.StatusInitializing):
		ok := g.sess.InitAuth(ctx, g.cfg.AllowPartial)
		if ok && g.sess.IsAuthenticated() {
			return ReasonAllowed, true
		}
		if g.sess.Status() == session.StatusNetworkError {
			return g.offline()
		}
		return ReasonInitFailed, false
	case status == session.StatusNetworkError:
		return g.offline()
	case !g.sess.IsAuthenticated():
		return ReasonSignIn, false
	}
	return ReasonAllowed, true
}

func (g *Guard) offline() (Reason, bool) {
	if g.sess.AccessToken() != "" && g.sess.User() != nil {
		return ReasonOffline, true
	}
	return ReasonSignIn, false
}

func (g *Guard) deny(d Decision, target string) Decision {
	d.Allow = false
	d.Redirect = target
	if target == d.Path {
		// Never bounce a page onto itself.
		d.Allow = true
		d.Redirect = ""
		return d
	}
	if g.onDenied != nil {
		g.onDenied(d)
	}
	return d
}

func (g *Guard) title(t string) string {
	switch {
	case t == "":
		return g.cfg.AppTitle
	case g.cfg.AppTitle == "":
		return t
	}
	return t + " - " + g.cfg.AppTitle
}

// Navigate checks path, follows redirects up to the hop limit, and moves the
// navigator to the final page.
func (g *Guard) Navigate(ctx context.Context, path string) (Decision, error) {
	target := path
	for hop := 0; hop <= g.cfg.MaxHops; hop++ {
		d := g.Check(ctx, target)
		if d.Allow {
			g.log.V(1).Info("navigate", "from", path, "to", d.Path, "reason", string(d.Reason))
			g.nav.Navigate(d.Path)
			return d, nil
		}
		target = d.Redirect
	}
	return Decision{Path: path}, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}
