package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr"
)

// Session is the credential view the interceptor works against.
type Session interface {
	AccessToken() string
	// RefreshAccessToken exchanges the refresh token for a new access token.
	// Network failures are returned as errors without clearing state.
	RefreshAccessToken(ctx context.Context) (bool, error)
	ClearCredentials(ctx context.Context)
}

// Event is a refresh lifecycle notification emitted by an [Interceptor].
type Event uint8

const (
	// EventRefreshStarted fires when a caller becomes the refresh owner.
	EventRefreshStarted Event = iota + 1
	// EventRefreshQueued fires when a caller parks behind an in-flight refresh.
	EventRefreshQueued
	// EventRefreshSucceeded fires after a refresh installed a new token.
	EventRefreshSucceeded
	// EventSessionExpired fires when a refresh failure forces sign-out.
	EventSessionExpired
	// EventRetry fires before a request is re-sent with a newer token.
	EventRetry
)

// InterceptorConfig configures an [Interceptor].
type InterceptorConfig struct {
	// LoginPath is where the console is sent when the session ends.
	LoginPath string
	// RefreshPath is the backend refresh endpoint. A 401 on it is terminal.
	RefreshPath string
	// RefreshLeeway enables refreshing ahead of a 401 when the held access
	// token expires within this window. Zero disables it.
	RefreshLeeway time.Duration
}

// Interceptor wraps a [Doer] with bearer attachment and refresh-on-401.
//
// The refresh flag and wait queue are owned by the instance; two interceptors
// never share a refresh.
type Interceptor struct {
	next    Doer
	session Session
	notify  ui.Notifier
	nav     ui.Navigator
	log     logr.Logger
	cfg     InterceptorConfig
	now     func() time.Time
	onEvent func(Event)

	queue waitQueue
}

// NewInterceptor wraps next. Nil notifier and navigator are replaced by
// [ui.Discard].
func NewInterceptor(next Doer, session Session, notify ui.Notifier, nav ui.Navigator, log logr.Logger, cfg InterceptorConfig) *Interceptor {
	if notify == nil {
		notify = ui.Discard{}
	}
	if nav == nil {
		nav = ui.Discard{}
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/auth/token/refresh/"
	}
	return &Interceptor{
		next:    next,
		session: session,
		notify:  notify,
		nav:     nav,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// OnEvent installs fn as the lifecycle hook and returns i.
func (i *Interceptor) OnEvent(fn func(Event)) *Interceptor {
	i.onEvent = fn
	return i
}

// Refreshing reports whether a refresh is in flight and how many requests
// are parked behind it.
func (i *Interceptor) Refreshing() (bool, int) {
	return i.queue.state()
}

// Do sends req with the current bearer and recovers from one 401.
func (i *Interceptor) Do(ctx context.Context, req *Request) (*Envelope, error) {
	r := req.clone()

	if i.shouldRefreshAhead(r) {
		if err := i.awaitRefresh(ctx, &Error{Code: http.StatusUnauthorized, Message: msgSessionExpired, Path: r.Path}); err != nil {
			return nil, err
		}
	}

	sent := i.session.AccessToken()
	r.Bearer = sent
	env, err := i.next.Do(ctx, r)
	if err == nil {
		return env, nil
	}

	var te *Error
	if !errors.As(err, &te) || te.Code != http.StatusUnauthorized {
		i.report(err)
		return nil, err
	}
	return i.unauthorized(ctx, r, sent, te)
}

func (i *Interceptor) unauthorized(ctx context.Context, r *Request, sent string, cause *Error) (*Envelope, error) {
	if i.isRefreshPath(r.Path) {
		i.log.V(1).Info("refresh endpoint rejected credentials", "path", r.Path)
		i.session.ClearCredentials(ctx)
		if n := i.queue.fail(cause); n > 0 {
			i.log.V(1).Info("rejected parked requests", "count", n)
		}
		i.expire()
		return nil, cause
	}

	current := i.session.AccessToken()
	if current == "" {
		i.nav.Navigate(i.cfg.LoginPath)
		i.notify.Notify(ui.LevelError, msgSignInFirst)
		return nil, &Error{Code: cause.Code, Message: msgSignInFirst, Data: cause.Data, Path: cause.Path, Err: ErrNotSignedIn}
	}

	// The token was replaced while this request was in flight.
	if current != sent {
		return i.retry(ctx, r, current)
	}

	if err := i.awaitRefresh(ctx, cause); err != nil {
		return nil, err
	}
	return i.retry(ctx, r, i.session.AccessToken())
}

// awaitRefresh runs or joins the single in-flight refresh and returns its
// outcome. A parked caller may leave early when ctx ends.
func (i *Interceptor) awaitRefresh(ctx context.Context, cause *Error) error {
	owner, wait := i.queue.acquire()
	if !owner {
		i.emit(EventRefreshQueued)
		select {
		case err := <-wait:
			return err
		case <-ctx.Done():
			return &Error{Code: CodeNetwork, Message: msgNetwork, Path: cause.Path, Err: ctx.Err()}
		}
	}
	return i.refresh(ctx, cause)
}

func (i *Interceptor) refresh(ctx context.Context, cause *Error) error {
	i.emit(EventRefreshStarted)
	outcome := error(&Error{Code: cause.Code, Message: msgSessionExpired, Path: cause.Path, Err: ErrRefreshFailed})
	defer func() {
		n := i.queue.release(outcome)
		i.log.V(1).Info("refresh settled", "ok", outcome == nil, "woken", n)
	}()

	// Started refreshes run to completion even if the owner gives up.
	ok, rerr := i.session.RefreshAccessToken(context.WithoutCancel(ctx))
	switch {
	case rerr != nil:
		outcome = &Error{Code: cause.Code, Message: msgSessionExpired, Path: cause.Path, Err: fmt.Errorf("%w: %w", ErrRefreshFailed, rerr)}
	case !ok:
		outcome = &Error{Code: cause.Code, Message: msgSessionExpired, Data: cause.Data, Path: cause.Path, Err: ErrRefreshFailed}
	default:
		outcome = nil
	}

	if outcome != nil {
		i.session.ClearCredentials(ctx)
		i.expire()
		return outcome
	}
	i.emit(EventRefreshSucceeded)
	return nil
}

// retry re-sends r once. A second 401 is returned as is.
func (i *Interceptor) retry(ctx context.Context, r *Request, token string) (*Envelope, error) {
	i.emit(EventRetry)
	r.Bearer = token
	env, err := i.next.Do(ctx, r)
	if err != nil && StatusOf(err) != http.StatusUnauthorized {
		i.report(err)
	}
	return env, err
}

func (i *Interceptor) shouldRefreshAhead(r *Request) bool {
	if i.cfg.RefreshLeeway <= 0 || i.isRefreshPath(r.Path) {
		return false
	}
	return jwt.ExpiresWithin(i.session.AccessToken(), i.cfg.RefreshLeeway, i.now())
}

func (i *Interceptor) isRefreshPath(path string) bool {
	return strings.Contains(path, i.cfg.RefreshPath)
}

func (i *Interceptor) expire() {
	i.emit(EventSessionExpired)
	i.nav.Navigate(i.cfg.LoginPath)
	i.notify.Notify(ui.LevelError, msgSessionExpired)
}

// report shows the operator-facing message for a non-401 failure. 400 is
// left to the caller.
func (i *Interceptor) report(err error) {
	var te *Error
	if !errors.As(err, &te) {
		return
	}
	switch te.Code {
	case http.StatusBadRequest:
	case CodeNetwork:
		i.notify.Notify(ui.LevelError, msgNetworkNotice)
	default:
		i.notify.Notify(ui.LevelError, te.Message)
	}
}

func (i *Interceptor) emit(e Event) {
	if i.onEvent != nil {
		i.onEvent(e)
	}
}
