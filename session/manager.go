package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/permission"
	"github.com/MrEthical07/goSession/transport"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"
)

// Options wires a [Manager]. Backend and Store are required.
type Options struct {
	Backend      Backend
	Store        credential.Store
	Notifier     ui.Notifier
	Connectivity Connectivity
	Logger       logr.Logger
	Observer     Observer
	Clock        func() time.Time
}

// Manager is the session state machine.
type Manager struct {
	backend  Backend
	store    credential.Store
	perms    *permission.Store
	notify   ui.Notifier
	conn     Connectivity
	log      logr.Logger
	observer Observer
	now      func() time.Time
	// refreshes collapses concurrent exchanges of the same refresh token,
	// whoever starts them.
	refreshes singleflight.Group

	mu         sync.RWMutex
	status     Status
	pair       credential.Pair
	user       *identity.User
	roles      []identity.Role
	lastCheck  time.Time
	online     bool
	advised    bool
	pendingRun *initRun
}

// initRun is the in-flight InitAuth shared by concurrent callers.
type initRun struct {
	done chan struct{}
}

// New builds a manager and loads persisted credentials from opts.Store.
func New(ctx context.Context, opts Options) (*Manager, error) {
	if opts.Backend == nil || opts.Store == nil {
		return nil, fmt.Errorf("session: backend and credential store are required")
	}
	if opts.Notifier == nil {
		opts.Notifier = ui.Discard{}
	}
	if opts.Connectivity == nil {
		opts.Connectivity = AlwaysOnline{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	pair, err := credential.Load(ctx, opts.Store)
	if err != nil {
		return nil, fmt.Errorf("session: load credentials: %w", err)
	}

	m := &Manager{
		backend:  opts.Backend,
		store:    opts.Store,
		notify:   opts.Notifier,
		conn:     opts.Connectivity,
		log:      opts.Logger.WithName("session"),
		observer: opts.Observer,
		now:      opts.Clock,
		pair:     pair,
		online:   true,
	}
	m.perms = permission.NewStore(opts.Backend, opts.Notifier, opts.Logger.WithName("permission"))
	m.perms.OnLoad(func(r permission.LoadResult) {
		meta := map[string]string{"codes": fmt.Sprint(r.Codes), "network": fmt.Sprint(r.Network)}
		m.emit(context.Background(), Event{Kind: EventPermissionsLoaded, Success: r.OK, Err: r.Err, Meta: meta})
	})
	m.log.V(1).Info("credentials restored", "access", pair.Access != "", "refresh", pair.Refresh != "")
	return m, nil
}

// Permissions returns the permission store owned by m.
func (m *Manager) Permissions() *permission.Store { return m.perms }

// Login exchanges credentials for a token pair and a profile.
func (m *Manager) Login(ctx context.Context, c Credentials) Result {
	env, err := m.backend.Login(ctx, c.Identifier, c.Secret)
	if err != nil {
		return m.loginFailed(ctx, c.Identifier, err, loginFailure(err))
	}
	if env.Code != 200 {
		msg := orDefault(env.Message, msgLoginRejected)
		return m.loginFailed(ctx, c.Identifier, fmt.Errorf("%w: %s (code %d)", ErrRejected, msg, env.Code), msg)
	}

	var payload struct {
		Access  string          `json:"access"`
		Refresh string          `json:"refresh"`
		User    json.RawMessage `json:"user"`
		Tokens  *struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		} `json:"tokens"`
	}
	if err := env.Decode(&payload); err != nil {
		return m.loginFailed(ctx, c.Identifier, err, msgLoginRetry)
	}
	pair := credential.Pair{Access: payload.Access, Refresh: payload.Refresh}
	if payload.Tokens != nil {
		pair = credential.Pair{Access: payload.Tokens.Access, Refresh: payload.Tokens.Refresh}
	}
	if pair.Access == "" || pair.Refresh == "" {
		return m.loginFailed(ctx, c.Identifier, ErrMissingToken, ErrMissingToken.Error())
	}
	if !isJSONPresent(payload.User) {
		return m.loginFailed(ctx, c.Identifier, ErrMissingUser, ErrMissingUser.Error())
	}
	user, err := identity.DecodeUser(payload.User)
	if err != nil {
		return m.loginFailed(ctx, c.Identifier, fmt.Errorf("%w: %v", ErrMissingUser, err), ErrMissingUser.Error())
	}

	if err := credential.Save(ctx, m.store, pair); err != nil {
		return m.loginFailed(ctx, c.Identifier, err, msgCredentialSave)
	}

	// The previous identity's snapshot must not survive a failed load for
	// the new one.
	m.perms.Invalidate()
	m.mu.Lock()
	m.pair = pair
	m.user = user
	m.roles = nil
	m.status = StatusAuthenticated
	m.online = true
	m.advised = false
	m.mu.Unlock()
	m.log.V(1).Info("signed in", "user", user.Email)

	// Best effort; failures never undo the sign-in.
	_, _ = m.LoadPermissions(ctx)

	if !m.IsAuthenticated() {
		return m.loginFailed(ctx, c.Identifier, ErrInconsistentState, ErrInconsistentState.Error())
	}
	m.notify.Notify(ui.LevelSuccess, msgLoginOK)
	m.emit(ctx, Event{Kind: EventLogin, User: user.Email, Success: true})
	return Result{OK: true, Message: msgLoginOK}
}

func (m *Manager) loginFailed(ctx context.Context, who string, err error, msg string) Result {
	m.log.V(1).Info("login failed", "user", who, "status", transport.StatusOf(err), "error", err.Error())
	m.notify.Notify(ui.LevelError, msg)
	m.emit(ctx, Event{Kind: EventLoginFailed, User: who, Err: err})
	return Result{Message: msg, Err: err}
}

// Register creates an account. It does not sign the operator in.
func (m *Manager) Register(ctx context.Context, r Registration) Result {
	env, err := m.backend.Register(ctx, r)
	if err == nil && env.Code != 201 {
		msg := orDefault(env.Message, msgRegisterRejected)
		err = &transport.Error{Code: env.Code, Message: msg, Data: env.Data, Err: ErrRejected}
	}
	if err != nil {
		msg := registerFailure(err)
		m.log.V(1).Info("registration failed", "status", transport.StatusOf(err), "error", err.Error())
		m.notify.Notify(ui.LevelError, msg)
		m.emit(ctx, Event{Kind: EventRegister, User: r.Email, Err: err})
		return Result{Message: msg, Err: err}
	}
	m.notify.Notify(ui.LevelSuccess, msgRegisterOK)
	m.emit(ctx, Event{Kind: EventRegister, User: r.Email, Success: true})
	return Result{OK: true, Message: msgRegisterOK}
}

// Logout tells the backend and always clears local state.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	pair := m.pair
	email := emailOf(m.user)
	m.mu.RUnlock()

	if pair.Access != "" {
		if _, err := m.backend.Logout(ctx, pair.Access, pair.Refresh); err != nil {
			m.log.Error(err, "logout call failed")
		}
	}
	m.ClearCredentials(ctx)
	m.notify.Notify(ui.LevelSuccess, msgSignedOut)
	m.emit(ctx, Event{Kind: EventLogout, User: email, Success: true})
}

// ClearCredentials drops tokens, profile, roles, and permissions, removes
// persisted credentials, and marks the session unauthenticated.
func (m *Manager) ClearCredentials(ctx context.Context) {
	m.mu.Lock()
	had := !m.pair.Empty()
	m.pair = credential.Pair{}
	m.user = nil
	m.roles = nil
	m.status = StatusUnauthenticated
	m.mu.Unlock()

	m.perms.Invalidate()
	if err := credential.Clear(ctx, m.store); err != nil {
		m.log.Error(err, "clear persisted credentials")
	}
	if had {
		m.log.V(1).Info("credentials cleared")
		m.emit(ctx, Event{Kind: EventCleared, Success: true})
	}
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// Network failures are returned without touching state; any other failure
// clears the session and reports false. Concurrent callers holding the same
// refresh token share one exchange.
func (m *Manager) RefreshAccessToken(ctx context.Context) (bool, error) {
	m.mu.RLock()
	seen := m.pair
	m.mu.RUnlock()

	if seen.Refresh == "" {
		if seen.Access != "" {
			m.log.V(1).Info("access token without refresh token, clearing")
			m.ClearCredentials(ctx)
		}
		return false, nil
	}

	v, err, shared := m.refreshes.Do(seen.Refresh, func() (interface{}, error) {
		// A started exchange runs to completion for every waiter.
		return m.exchange(context.WithoutCancel(ctx), seen)
	})
	if shared {
		m.log.V(1).Info("joined in-flight refresh")
	}
	ok, _ := v.(bool)
	return ok, err
}

func (m *Manager) exchange(ctx context.Context, seen credential.Pair) (bool, error) {
	if replaced, usable := m.replacedSince(seen); replaced {
		m.log.V(1).Info("credentials already replaced, skipping refresh call")
		return usable, nil
	}

	env, err := m.backend.RefreshToken(ctx, seen.Refresh)
	if err != nil {
		if m.isNetwork(ctx, err) {
			m.emit(ctx, Event{Kind: EventRefreshFailed, Err: err, Meta: map[string]string{"class": "network"}})
			return false, err
		}
		m.emit(ctx, Event{Kind: EventRefreshFailed, Err: err, Meta: map[string]string{"class": transport.Classify(err).String()}})
		return m.rejected(ctx, seen), nil
	}

	var payload struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if env.Code != 200 || env.Decode(&payload) != nil || payload.Access == "" {
		m.emit(ctx, Event{Kind: EventRefreshFailed, Err: fmt.Errorf("%w: code %d", ErrRejected, env.Code)})
		return m.rejected(ctx, seen), nil
	}

	m.mu.Lock()
	if m.pair != seen {
		// Signed out, signed in again, or rotated while the call was in flight.
		usable := m.pair.Access != "" && m.pair.Refresh != ""
		m.mu.Unlock()
		return usable, nil
	}
	m.pair.Access = payload.Access
	if payload.Refresh != "" {
		m.pair.Refresh = payload.Refresh
	}
	updated := m.pair
	m.mu.Unlock()

	if err := credential.Save(ctx, m.store, updated); err != nil {
		m.log.Error(err, "persist refreshed credentials")
	}
	m.log.V(1).Info("access token refreshed", "rotated", payload.Refresh != "")
	m.emit(ctx, Event{Kind: EventRefresh, Success: true, Meta: map[string]string{"rotated": fmt.Sprint(payload.Refresh != "")}})
	return true, nil
}

// replacedSince reports whether the held pair differs from seen and, if so,
// whether the held pair is complete.
func (m *Manager) replacedSince(seen credential.Pair) (replaced, usable bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pair == seen {
		return false, false
	}
	return true, m.pair.Access != "" && m.pair.Refresh != ""
}

// rejected clears the session after a refused exchange, unless the pair was
// replaced in the meantime.
func (m *Manager) rejected(ctx context.Context, seen credential.Pair) bool {
	if replaced, usable := m.replacedSince(seen); replaced {
		return usable
	}
	m.ClearCredentials(ctx)
	return false
}

// ValidateCredentials checks pair completeness. A corrupt pair is cleared.
// With allowPartial, an access token without a refresh token passes.
func (m *Manager) ValidateCredentials(ctx context.Context, allowPartial bool) bool {
	m.mu.Lock()
	pair := m.pair
	switch {
	case allowPartial && pair.Access != "" && pair.Refresh == "":
		m.mu.Unlock()
		return true
	case pair.Empty():
		m.status = StatusUnauthenticated
		m.mu.Unlock()
		return false
	case pair.Corrupt():
		m.mu.Unlock()
		m.ClearCredentials(ctx)
		return false
	}
	m.mu.Unlock()
	return true
}

// InitAuth resolves the session against the backend. Concurrent callers
// share one resolution.
func (m *Manager) InitAuth(ctx context.Context, allowPartial bool) bool {
	m.mu.RLock()
	corrupt := m.pair.Corrupt()
	m.mu.RUnlock()

	if !m.ValidateCredentials(ctx, allowPartial) {
		if corrupt {
			m.adviseRelogin(ctx)
		}
		return false
	}

	m.mu.Lock()
	if run := m.pendingRun; run != nil {
		m.mu.Unlock()
		return m.join(ctx, run)
	}
	if m.status == StatusAuthenticated && m.user != nil {
		m.mu.Unlock()
		return true
	}
	recovering := m.status == StatusNetworkError
	m.mu.Unlock()

	if recovering && !m.conn.Online(ctx) {
		m.log.V(1).Info("still offline, keeping network error state")
		return false
	}

	m.mu.Lock()
	if run := m.pendingRun; run != nil {
		m.mu.Unlock()
		return m.join(ctx, run)
	}
	run := &initRun{done: make(chan struct{})}
	m.pendingRun = run
	m.status = StatusInitializing
	m.lastCheck = m.now()
	m.mu.Unlock()

	ok := false
	defer func() {
		m.mu.Lock()
		if m.status == StatusInitializing {
			m.status = StatusUnknown
		}
		m.pendingRun = nil
		status := m.status
		m.mu.Unlock()
		close(run.done)
		m.emit(ctx, Event{Kind: EventInit, Success: ok, Meta: map[string]string{"status": status.String()}})
	}()
	ok = m.resolve(ctx)
	return ok
}

func (m *Manager) join(ctx context.Context, run *initRun) bool {
	select {
	case <-run.done:
	case <-ctx.Done():
		return false
	}
	return m.Status() == StatusAuthenticated
}

func (m *Manager) adviseRelogin(ctx context.Context) {
	m.mu.Lock()
	already := m.advised
	m.advised = true
	m.mu.Unlock()
	m.emit(ctx, Event{Kind: EventCorruptCredentials})
	if !already {
		m.notify.Notify(ui.LevelWarning, msgReloginAdvisory)
	}
}

func (m *Manager) resolve(ctx context.Context) bool {
	sent := m.AccessToken()
	ok, err := m.GetUserInfo(ctx)
	if err != nil {
		return m.initFailed(ctx, err)
	}
	if ok {
		_, _ = m.LoadPermissions(ctx)
		return m.settle()
	}

	// A token installed while the profile call was in flight is retried as is.
	refreshed := true
	if current := m.AccessToken(); current == "" || current == sent {
		refreshed, err = m.RefreshAccessToken(ctx)
		if err != nil {
			return m.initFailed(ctx, err)
		}
	}
	if !refreshed {
		m.setStatus(StatusUnauthenticated)
		return false
	}

	ok, err = m.GetUserInfo(ctx)
	if err != nil {
		return m.initFailed(ctx, err)
	}
	if !ok {
		m.ClearCredentials(ctx)
		return false
	}
	_, _ = m.LoadPermissions(ctx)
	return m.settle()
}

// settle marks the session authenticated if the token and profile survived
// the calls that led here.
func (m *Manager) settle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair.Access != "" && m.user != nil {
		m.status = StatusAuthenticated
		m.online = true
		return true
	}
	m.status = StatusUnauthenticated
	return false
}

func (m *Manager) initFailed(ctx context.Context, err error) bool {
	switch m.classify(ctx, err) {
	case transport.ClassNetwork:
		m.log.V(1).Info("backend unreachable, keeping credentials", "error", err.Error())
		m.SetNetworkError()
		m.emit(ctx, Event{Kind: EventNetworkError, Err: err})
	case transport.ClassAuth:
		m.ClearCredentials(ctx)
	default:
		m.log.Error(err, "unclassified init failure")
		m.mu.Lock()
		if m.pair.Access != "" && m.user != nil {
			m.status = StatusAuthenticated
		} else {
			m.status = StatusUnauthenticated
		}
		m.mu.Unlock()
	}
	return false
}

// GetUserInfo fetches the profile. Network failures are returned; auth and
// other failures report false.
func (m *Manager) GetUserInfo(ctx context.Context) (bool, error) {
	token := m.AccessToken()
	if token == "" {
		return false, nil
	}
	env, err := m.backend.Me(ctx, token)
	if err != nil {
		if m.isNetwork(ctx, err) {
			return false, err
		}
		m.log.V(1).Info("profile fetch rejected", "class", transport.Classify(err).String())
		return false, nil
	}
	if env.Code != 200 {
		return false, nil
	}
	user, err := identity.DecodeUser(env.Data)
	if err != nil {
		m.log.Error(err, "decode profile")
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair.Access == "" {
		return false, nil
	}
	m.user = user
	return true, nil
}

// UpdateUserInfo merges patch into the held profile. Without a profile it is
// a no-op.
func (m *Manager) UpdateUserInfo(patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	merged, err := m.user.Merge(patch)
	if err != nil {
		return err
	}
	m.user = merged
	return nil
}

// LoadPermissions refreshes the permission snapshot and the role list.
func (m *Manager) LoadPermissions(ctx context.Context) (*permission.Snapshot, error) {
	snap, err := m.perms.Load(ctx, m.AccessToken())
	if err == nil && snap != nil {
		m.mu.Lock()
		if m.pair.Access != "" {
			m.roles = append([]identity.Role(nil), snap.Roles...)
		}
		m.mu.Unlock()
	}
	return snap, err
}

// SetNetworkError records that the backend is unreachable. Credentials stay.
func (m *Manager) SetNetworkError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusNetworkError
	m.online = false
}

// RestoreFromNetworkError leaves the network error state.
func (m *Manager) RestoreFromNetworkError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair.Access != "" && m.user != nil {
		m.status = StatusAuthenticated
	} else {
		m.status = StatusUnauthenticated
	}
	m.online = true
}

// Classify sorts err, treating any failure seen while offline as network.
func (m *Manager) Classify(ctx context.Context, err error) transport.Class {
	return m.classify(ctx, err)
}

func (m *Manager) classify(ctx context.Context, err error) transport.Class {
	c := transport.Classify(err)
	if c != transport.ClassNetwork && err != nil && !m.conn.Online(ctx) {
		return transport.ClassNetwork
	}
	return c
}

func (m *Manager) isNetwork(ctx context.Context, err error) bool {
	return m.classify(ctx, err) == transport.ClassNetwork
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) emit(ctx context.Context, e Event) {
	if e.User == "" {
		m.mu.RLock()
		e.User = emailOf(m.user)
		m.mu.RUnlock()
	}
	m.observer.Observe(ctx, e)
}

func emailOf(u *identity.User) string {
	if u == nil {
		return ""
	}
	return u.Email
}

func isJSONPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
