package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/permission"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
)

type fakeSession struct {
	status    session.Status
	token     string
	user      *identity.User
	initCalls int
	partial   bool
	// initTo is the status InitAuth settles on.
	initTo session.Status
}

func (f *fakeSession) Status() session.Status { return f.status }
func (f *fakeSession) AccessToken() string    { return f.token }
func (f *fakeSession) User() *identity.User   { return f.user }
func (f *fakeSession) IsAuthenticated() bool {
	return f.status == session.StatusAuthenticated && f.token != "" && f.user != nil
}

func (f *fakeSession) InitAuth(_ context.Context, allowPartial bool) bool {
	f.initCalls++
	f.partial = allowPartial
	f.status = f.initTo
	return f.IsAuthenticated()
}

type grants map[string]bool

func (g grants) HasPermission(code string) bool { return g[code] }

func signedIn() *fakeSession {
	return &fakeSession{status: session.StatusAuthenticated, token: "A", user: &identity.User{Email: "ops@example.com"}}
}

func newGuard(t *testing.T, s Session, perms Checker) (*Guard, *ui.Recorder) {
	t.Helper()
	rec := &ui.Recorder{}
	g, err := New(DefaultRoutes(), s, perms, rec, testr.New(t), DefaultConfig())
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	return g, rec
}

func TestResolveInheritsMeta(t *testing.T) {
	g, _ := newGuard(t, signedIn(), grants{})

	users, ok := g.Resolve("/admin/users/")
	if !ok || !users.RequiresAuth || users.Permission != permission.UserList || users.Path != "/admin/users" {
		t.Fatalf("users route = %+v", users)
	}
	admin, _ := g.Resolve("/admin")
	if admin.Redirect != "/admin/users" || !admin.RequiresAuth || admin.Title != "Administration" {
		t.Fatalf("admin index = %+v", admin)
	}
	missing, ok := g.Resolve("/nowhere")
	if !ok || missing.Name != "NotFound" {
		t.Fatalf("catch-all = %+v", missing)
	}
}

func TestCheckSteps(t *testing.T) {
	cases := []struct {
		name   string
		sess   *fakeSession
		perms  grants
		path   string
		allow  bool
		to     string
		reason Reason
	}{
		{"authenticated with permission", signedIn(), grants{permission.UserList: true}, "/admin/users", true, "", ReasonAllowed},
		{"missing permission goes to landing", signedIn(), grants{}, "/admin/users", false, "/dashboard", ReasonForbidden},
		{"unauthenticated goes to login", &fakeSession{status: session.StatusUnauthenticated}, grants{}, "/dashboard", false, "/login", ReasonSignIn},
		{"unknown without token goes to login", &fakeSession{}, grants{}, "/dashboard", false, "/login", ReasonSignIn},
		{"offline with full session proceeds", &fakeSession{status: session.StatusNetworkError, token: "A", user: &identity.User{}}, grants{}, "/dashboard", true, "", ReasonOffline},
		{"offline without profile goes to login", &fakeSession{status: session.StatusNetworkError, token: "A"}, grants{}, "/dashboard", false, "/login", ReasonSignIn},
		{"guest page while signed in", signedIn(), grants{}, "/login", false, "/dashboard", ReasonGuestOnly},
		{"guest page while signed out", &fakeSession{status: session.StatusUnauthenticated}, grants{}, "/register", true, "", ReasonAllowed},
		{"root signed in", signedIn(), grants{}, "/", false, "/dashboard", ReasonRedirect},
		{"root signed out", &fakeSession{}, grants{}, "/", false, "/login", ReasonRedirect},
		{"not found is public", &fakeSession{}, grants{}, "/x/y", true, "", ReasonNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := newGuard(t, tc.sess, tc.perms)
			d := g.Check(context.Background(), tc.path)
			if d.Allow != tc.allow || d.Redirect != tc.to || d.Reason != tc.reason {
				t.Fatalf("decision = %+v", d)
			}
		})
	}
}

func TestCheckAwaitsInit(t *testing.T) {
	cases := []struct {
		name   string
		sess   *fakeSession
		allow  bool
		reason Reason
	}{
		{"init succeeds", &fakeSession{token: "A", user: &identity.User{}, initTo: session.StatusAuthenticated}, true, ReasonAllowed},
		{"init offline with profile", &fakeSession{status: session.StatusInitializing, token: "A", user: &identity.User{}, initTo: session.StatusNetworkError}, true, ReasonOffline},
		{"init offline without profile", &fakeSession{token: "A", initTo: session.StatusNetworkError}, false, ReasonSignIn},
		{"init rejected", &fakeSession{token: "A", initTo: session.StatusUnauthenticated}, false, ReasonInitFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := newGuard(t, tc.sess, grants{})
			d := g.Check(context.Background(), "/dashboard")
			if tc.sess.initCalls != 1 {
				t.Fatalf("InitAuth calls = %d", tc.sess.initCalls)
			}
			if d.Allow != tc.allow || d.Reason != tc.reason {
				t.Fatalf("decision = %+v", d)
			}
		})
	}
}

func TestNavigateFollowsRedirects(t *testing.T) {
	s := signedIn()
	g, rec := newGuard(t, s, grants{permission.UserList: true})

	d, err := g.Navigate(context.Background(), "/")
	if err != nil || d.Path != "/dashboard" {
		t.Fatalf("navigate / = %+v, %v", d, err)
	}
	d, err = g.Navigate(context.Background(), "/admin")
	if err != nil || d.Path != "/admin/users" || d.Title != "Users - Vessel Schedule Console" {
		t.Fatalf("navigate /admin = %+v, %v", d, err)
	}
	if diff := cmp.Diff([]string{"/dashboard", "/admin/users"}, rec.Paths()); diff != "" {
		t.Fatalf("navigations (-want +got):\n%s", diff)
	}
	if rec.Count(ui.LevelWarning)+rec.Count(ui.LevelError) != 0 {
		t.Fatal("guard must not notify")
	}
}

func TestNavigateDeniedIsSilentAndObserved(t *testing.T) {
	g, rec := newGuard(t, signedIn(), grants{})
	var denied []Decision
	g.OnDenied(func(d Decision) { denied = append(denied, d) })

	d, err := g.Navigate(context.Background(), "/local-fees")
	if err != nil || d.Path != "/dashboard" {
		t.Fatalf("navigate = %+v, %v", d, err)
	}
	if len(denied) != 1 || denied[0].Reason != ReasonForbidden || denied[0].Route.Permission != permission.LocalFeeList {
		t.Fatalf("denied = %+v", denied)
	}
	if len(rec.Messages()) != 0 {
		t.Fatalf("messages = %+v", rec.Messages())
	}
}

func TestNavigateStopsLoops(t *testing.T) {
	routes := []Route{
		{Path: "/a", Redirect: "/b"},
		{Path: "/b", Redirect: "/a"},
	}
	g, err := New(routes, signedIn(), grants{}, nil, testr.New(t), Config{MaxHops: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := g.Navigate(context.Background(), "/a"); !errors.Is(err, ErrRedirectLoop) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewValidatesRoutes(t *testing.T) {
	cases := []struct {
		name   string
		routes []Route
		want   error
	}{
		{"duplicate", []Route{{Path: "/a"}, {Path: "/a/"}}, ErrDuplicateRoute},
		{"unknown permission", []Route{{Path: "/a", Permission: "fleet.sink"}}, ErrUnknownPermission},
		{"dangling redirect", []Route{{Path: "/a", Redirect: "/b"}}, ErrUnknownRedirect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.routes, signedIn(), grants{}, nil, testr.New(t), DefaultConfig())
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCheckPassesAllowPartial(t *testing.T) {
	for _, partial := range []bool{false, true} {
		s := &fakeSession{token: "A", user: &identity.User{}, initTo: session.StatusAuthenticated}
		cfg := DefaultConfig()
		cfg.AllowPartial = partial
		g, err := New(DefaultRoutes(), s, grants{}, nil, testr.New(t), cfg)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		g.Check(context.Background(), "/dashboard")
		if s.initCalls != 1 || s.partial != partial {
			t.Fatalf("InitAuth calls = %d, allowPartial = %v, want %v", s.initCalls, s.partial, partial)
		}
	}
}

func TestPermissionAppliesWithoutRequiresAuth(t *testing.T) {
	routes := []Route{
		{Path: "/dashboard", Name: "Dashboard"},
		{Path: "/fees", Name: "Fees", Permission: permission.LocalFeeList},
	}
	cases := []struct {
		name   string
		perms  grants
		allow  bool
		reason Reason
	}{
		{"granted", grants{permission.LocalFeeList: true}, true, ReasonAllowed},
		{"not granted", grants{}, false, ReasonForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(routes, &fakeSession{status: session.StatusUnauthenticated}, tc.perms, nil, testr.New(t), DefaultConfig())
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			d := g.Check(context.Background(), "/fees")
			if d.Allow != tc.allow || d.Reason != tc.reason {
				t.Fatalf("decision = %+v", d)
			}
		})
	}
}
