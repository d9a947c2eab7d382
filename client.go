package goSession

import (
	"context"
	"sync/atomic"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/permission"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
	"github.com/go-logr/logr"
)

// Client is one console session: the state machine, the refreshing transport
// used by resource calls, the permission evaluator and the route guard.
// Methods are safe for concurrent use.
type Client struct {
	cfg Config
	log logr.Logger

	session     *session.Manager
	interceptor *transport.Interceptor
	evaluator   *permission.Evaluator
	guard       *guard.Guard
	api         *api.Client
	catalog     *permission.Catalog

	metrics *Metrics
	audit   *audit.Dispatcher
	closed  atomic.Bool
}

func (c *Client) Session() *session.Manager { return c.session }

func (c *Client) Permissions() *permission.Evaluator { return c.evaluator }

func (c *Client) Guard() *guard.Guard { return c.guard }

// API returns the resource wrappers. Their calls carry the current bearer and
// recover from an expired access token.
func (c *Client) API() *api.Client { return c.api }

func (c *Client) Catalog() *permission.Catalog { return c.catalog }

func (c *Client) Config() Config { return c.cfg }

// Login signs in. The permission snapshot is loaded before it returns.
func (c *Client) Login(ctx context.Context, identifier, secret string) session.Result {
	if c.closed.Load() {
		return session.Result{Err: ErrNotReady}
	}
	return c.session.Login(ctx, session.Credentials{Identifier: identifier, Secret: secret})
}

func (c *Client) Register(ctx context.Context, r session.Registration) session.Result {
	if c.closed.Load() {
		return session.Result{Err: ErrNotReady}
	}
	return c.session.Register(ctx, r)
}

// Logout ends the session. Local state is cleared even when the backend call
// fails.
func (c *Client) Logout(ctx context.Context) {
	c.session.Logout(ctx)
}

// InitAuth validates persisted credentials once per process; concurrent
// callers share the run. Partial pairs are accepted when
// Config.Refresh.AllowPartial is set.
func (c *Client) InitAuth(ctx context.Context) (bool, error) {
	if c.closed.Load() {
		return false, ErrNotReady
	}
	return c.session.InitAuth(ctx, c.cfg.Refresh.AllowPartial), nil
}

// Navigate runs the guard for path and moves the navigator to wherever it
// lands.
func (c *Client) Navigate(ctx context.Context, path string) (guard.Decision, error) {
	if c.closed.Load() {
		return guard.Decision{Path: path}, ErrNotReady
	}
	return c.guard.Navigate(ctx, path)
}

// Can reports whether the operator holds code.
func (c *Client) Can(code string) bool {
	return c.evaluator.HasPermission(code)
}

// Refreshing reports whether a token refresh is in flight and how many
// requests wait on it.
func (c *Client) Refreshing() (bool, int) {
	return c.interceptor.Refreshing()
}

func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped is the number of audit events discarded because the buffer was
// full.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Close flushes buffered audit events. Credentials are left in the store.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.audit.Close()
}
