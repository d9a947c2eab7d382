package goSession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/internal/testserver"
	"github.com/MrEthical07/goSession/permission"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/ui"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

const (
	adminEmail = "admin@example.com"
	clerkEmail = "clerk@example.com"
	password   = "s3cret"
)

type harness struct {
	srv    *testserver.Server
	client *Client
	ui     *ui.Recorder
	sink   *ChannelSink
}

func newHarness(t *testing.T, opts testserver.Options, configure func(*harness, *Builder)) *harness {
	t.Helper()

	srv := testserver.New(opts)
	t.Cleanup(srv.Close)
	srv.AddAccount(testserver.Account{
		Email:       adminEmail,
		Password:    password,
		FirstName:   "Ada",
		Permissions: []string{permission.UserList, permission.ScheduleList},
	})
	srv.AddAccount(testserver.Account{
		Email:       clerkEmail,
		Password:    password,
		Permissions: []string{permission.ScheduleList},
	})

	cfg := DefaultConfig()
	cfg.HTTP.BaseURL = srv.URL

	h := &harness{srv: srv, ui: &ui.Recorder{}, sink: NewChannelSink(256)}
	b := New().
		WithConfig(cfg).
		WithHTTPClient(srv.Client()).
		WithNotifier(h.ui).
		WithNavigator(h.ui).
		WithLogger(testr.New(t)).
		WithAuditSink(h.sink)
	if configure != nil {
		configure(h, b)
	}

	c, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(c.Close)
	h.client = c
	return h
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	if res := h.client.Login(context.Background(), email, password); !res.OK {
		t.Fatalf("login %s: %s (%v)", email, res.Message, res.Err)
	}
}

// auditTypes closes the client and returns the delivered event types.
func (h *harness) auditTypes() []string {
	h.client.Close()
	var out []string
	for {
		select {
		case e := <-h.sink.Events():
			out = append(out, e.Source+"/"+e.EventType)
		default:
			return out
		}
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Timeout = 0
	_, err := New().WithConfig(cfg).Build(context.Background())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Build() = %v, want ErrInvalidConfig", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New()
	c, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	defer c.Close()
	if _, err := b.Build(context.Background()); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("second Build = %v, want ErrBuilderUsed", err)
	}
}

func TestBuildRejectsUnknownRoutePermission(t *testing.T) {
	routes := []guard.Route{{Path: "/x", RequiresAuth: true, Permission: "nope.view"}}
	_, err := New().WithRoutes(routes).Build(context.Background())
	if !errors.Is(err, guard.ErrUnknownPermission) {
		t.Fatalf("Build() = %v, want ErrUnknownPermission", err)
	}
}

func TestBuildRedisBackendRequiresClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageRedis
	if _, err := New().WithConfig(cfg).Build(context.Background()); !errors.Is(err, ErrRedisRequired) {
		t.Fatalf("Build() = %v, want ErrRedisRequired", err)
	}
}

func TestLoginPersistsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t, testserver.Options{}, func(_ *harness, b *Builder) {
		cfg := b.config
		cfg.Storage.Backend = StorageRedis
		cfg.Storage.RedisPrefix = "console"
		b.WithConfig(cfg).WithRedis(rdb)
	})
	h.login(t, adminEmail)

	access, err := mr.Get("console:" + credential.KeyAccessToken)
	if err != nil || access != h.client.Session().AccessToken() {
		t.Fatalf("stored access token mismatch (err=%v)", err)
	}

	h.client.Logout(context.Background())
	if mr.Exists("console:" + credential.KeyRefreshToken) {
		t.Fatal("refresh token survived logout")
	}
}

func TestLoginNavigateLogout(t *testing.T) {
	h := newHarness(t, testserver.Options{}, nil)
	ctx := context.Background()
	h.login(t, adminEmail)

	if !h.client.Can(permission.UserList) || h.client.Can(permission.RoleList) {
		t.Fatal("permission snapshot not loaded after login")
	}

	d, err := h.client.Navigate(ctx, "/admin")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if d.Path != "/admin/users" || !d.Allow {
		t.Fatalf("decision = %+v", d)
	}
	if d.Title != "Users - Vessel Schedule Console" {
		t.Fatalf("title = %q", d.Title)
	}

	d, _ = h.client.Navigate(ctx, "/login")
	if d.Path != "/dashboard" {
		t.Fatalf("guest page while signed in landed on %q", d.Path)
	}

	h.client.Logout(ctx)
	if h.client.Session().IsAuthenticated() || h.client.Can(permission.UserList) {
		t.Fatal("session survived logout")
	}
	d, _ = h.client.Navigate(ctx, "/schedules")
	if d.Path != "/login" {
		t.Fatalf("protected page after logout landed on %q", d.Path)
	}

	if got := h.client.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("login success = %d", got)
	}
	if got := h.client.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("logout = %d", got)
	}

	types := h.auditTypes()
	for _, want := range []string{"session/login", "session/permissions_loaded", "session/logout", "guard/navigation_denied"} {
		if !contains(types, want) {
			t.Errorf("audit missing %s in %v", want, types)
		}
	}
}

func TestNavigationDeniedIsSilent(t *testing.T) {
	h := newHarness(t, testserver.Options{}, nil)
	h.login(t, clerkEmail)
	before := len(h.ui.Messages())

	d, err := h.client.Navigate(context.Background(), "/admin/users")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if d.Path != "/dashboard" {
		t.Fatalf("landed on %q", d.Path)
	}
	if got := len(h.ui.Messages()); got != before {
		t.Fatalf("forbidden navigation produced %d messages", got-before)
	}
	if got := h.client.MetricsSnapshot().Counters[MetricNavigationDenied]; got != 1 {
		t.Fatalf("navigation denied = %d", got)
	}
}

func TestConcurrentUnauthorizedRequestsRefreshOnce(t *testing.T) {
	h := newHarness(t, testserver.Options{RefreshDelay: 50 * time.Millisecond}, nil)
	h.srv.Seed("schedules", map[string]any{"polCd": "KRPUS", "podCd": "JPTYO"})
	h.login(t, adminEmail)
	h.srv.ExpireAccessTokens()
	stale := h.client.Session().AccessToken()

	const callers = 8
	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			page, err := h.client.API().Schedules.List(context.Background(), nil)
			if err == nil && len(page.Results) != 1 {
				err = errors.New("unexpected page")
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
	}
	if got := h.srv.Hits("/auth/token/refresh/"); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if h.client.Session().AccessToken() == stale {
		t.Fatal("access token was not replaced")
	}
	if active, parked := h.client.Refreshing(); active || parked != 0 {
		t.Fatalf("refresh state leaked: active=%v parked=%d", active, parked)
	}
	snap := h.client.MetricsSnapshot()
	if snap.Counters[MetricRefreshSuccess] != 1 {
		t.Fatalf("refresh success = %d", snap.Counters[MetricRefreshSuccess])
	}
	if snap.Counters[MetricRequestRetried] == 0 {
		t.Fatal("no request was retried")
	}
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	h := newHarness(t, testserver.Options{}, nil)
	h.login(t, adminEmail)
	h.srv.ExpireAccessTokens()
	h.srv.RevokeRefreshTokens()

	if _, err := h.client.API().Schedules.List(context.Background(), nil); err == nil {
		t.Fatal("expected failure after refresh rejection")
	}
	if h.client.Session().IsAuthenticated() {
		t.Fatal("session still authenticated")
	}
	paths := h.ui.Paths()
	if len(paths) == 0 || paths[len(paths)-1] != "/login" {
		t.Fatalf("navigations = %v", paths)
	}
	if got := h.client.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("session expired = %d", got)
	}
	if !contains(h.auditTypes(), "transport/session_expired") {
		t.Fatal("session expiry not audited")
	}
}

func TestRestoredCredentialsInitOnce(t *testing.T) {
	h := newHarness(t, testserver.Options{}, func(h *harness, b *Builder) {
		access, refresh := h.srv.IssueTokens(adminEmail)
		b.WithCredentialStore(credential.NewMemoryStore(map[string]string{
			credential.KeyAccessToken:  access,
			credential.KeyRefreshToken: refresh,
		}))
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := h.client.InitAuth(ctx); !ok || err != nil {
				t.Errorf("InitAuth = %v, %v", ok, err)
			}
		}()
	}
	wg.Wait()

	if got := h.srv.Hits("/auth/me/"); got != 1 {
		t.Fatalf("profile fetches = %d, want 1", got)
	}
	if diff := cmp.Diff(session.StatusAuthenticated, h.client.Session().Status()); diff != "" {
		t.Fatalf("status (-want +got):\n%s", diff)
	}
	if u := h.client.Session().User(); u == nil || u.Email != adminEmail {
		t.Fatalf("user = %+v", u)
	}
}

func TestRequestMetrics(t *testing.T) {
	h := newHarness(t, testserver.Options{}, nil)
	h.login(t, adminEmail)
	h.srv.FailNext("/schedules/", 500)

	if _, err := h.client.API().Schedules.List(context.Background(), nil); err == nil {
		t.Fatal("expected server error")
	}
	snap := h.client.MetricsSnapshot()
	if snap.Counters[MetricRequests] < 3 || snap.Counters[MetricRequestErrors] != 1 {
		t.Fatalf("requests = %d errors = %d", snap.Counters[MetricRequests], snap.Counters[MetricRequestErrors])
	}
	var total uint64
	for _, n := range snap.Histograms[MetricRequestLatency] {
		total += n
	}
	if total != snap.Counters[MetricRequests] {
		t.Fatalf("latency samples = %d, requests = %d", total, snap.Counters[MetricRequests])
	}
}

func TestClosedClientRejectsWork(t *testing.T) {
	h := newHarness(t, testserver.Options{}, nil)
	h.client.Close()
	h.client.Close()

	if res := h.client.Login(context.Background(), adminEmail, password); !errors.Is(res.Err, ErrNotReady) {
		t.Fatalf("Login after Close = %+v", res)
	}
	if _, err := h.client.Navigate(context.Background(), "/"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Navigate after Close = %v", err)
	}
	if h.srv.Hits("/auth/login/") != 0 {
		t.Fatal("closed client reached the backend")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
