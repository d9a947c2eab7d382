package goSession

import (
	"context"
	"io"
	"time"

	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

type (
	// AuditEvent is one lifecycle record delivered to an [AuditSink].
	AuditEvent = audit.Event
	// AuditSink receives audit events from the client's dispatcher.
	AuditSink = audit.Sink
	// NoOpSink drops audit events.
	NoOpSink = audit.NoOpSink
	// ChannelSink buffers audit events in a channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes audit events as JSON lines.
	JSONWriterSink = audit.JSONWriterSink
)

// Audit event sources.
const (
	SourceSession   = "session"
	SourceTransport = "transport"
	SourceGuard     = "guard"
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

var sessionMetrics = map[session.EventKind][2]MetricID{
	// {success, failure}
	session.EventLogin:              {MetricLoginSuccess, MetricLoginSuccess},
	session.EventLoginFailed:        {MetricLoginFailure, MetricLoginFailure},
	session.EventRegister:           {MetricRegisterSuccess, MetricRegisterFailure},
	session.EventLogout:             {MetricLogout, MetricLogout},
	session.EventRefresh:            {MetricRefreshSuccess, MetricRefreshSuccess},
	session.EventRefreshFailed:      {MetricRefreshFailure, MetricRefreshFailure},
	session.EventCorruptCredentials: {MetricCorruptCredentials, MetricCorruptCredentials},
	session.EventInit:               {MetricInitSuccess, MetricInitFailure},
	session.EventNetworkError:       {MetricNetworkError, MetricNetworkError},
	session.EventPermissionsLoaded:  {MetricPermissionLoadSuccess, MetricPermissionLoadFailure},
	session.EventCleared:            {MetricCredentialsCleared, MetricCredentialsCleared},
}

// observeSession is the session manager's observer.
func (c *Client) observeSession(ctx context.Context, e session.Event) {
	if ids, ok := sessionMetrics[e.Kind]; ok {
		if e.Success {
			c.metrics.Inc(ids[0])
		} else {
			c.metrics.Inc(ids[1])
		}
	}
	c.emitAudit(ctx, AuditEvent{
		Source:    SourceSession,
		EventType: string(e.Kind),
		User:      e.User,
		Success:   e.Success,
		Error:     errorString(e.Err),
		Metadata:  e.Meta,
	})
}

// observeTransport is the interceptor's lifecycle hook. Only queueing and
// forced sign-out are audited; the rest are already reported by the session.
func (c *Client) observeTransport(e transport.Event) {
	switch e {
	case transport.EventRefreshQueued:
		c.metrics.Inc(MetricRefreshQueued)
		c.emitAudit(context.Background(), AuditEvent{Source: SourceTransport, EventType: "refresh_queued", Success: true})
	case transport.EventRetry:
		c.metrics.Inc(MetricRequestRetried)
	case transport.EventSessionExpired:
		c.metrics.Inc(MetricSessionExpired)
		c.emitAudit(context.Background(), AuditEvent{Source: SourceTransport, EventType: "session_expired"})
	}
}

func (c *Client) observeDenied(d guard.Decision) {
	c.metrics.Inc(MetricNavigationDenied)
	var user string
	if u := c.session.User(); u != nil {
		user = u.Email
	}
	c.emitAudit(context.Background(), AuditEvent{
		Source:    SourceGuard,
		EventType: "navigation_denied",
		User:      user,
		Metadata: map[string]string{
			"path":       d.Path,
			"reason":     string(d.Reason),
			"redirect":   d.Redirect,
			"permission": d.Route.Permission,
		},
	})
}

// observeRequest feeds the request counters and latency histogram.
func (c *Client) observeRequest(method, path string, status int, elapsed time.Duration) {
	c.metrics.Inc(MetricRequests)
	if status < 200 || status >= 300 {
		c.metrics.Inc(MetricRequestErrors)
		c.log.V(2).Info("request failed", "method", method, "path", path, "status", status)
	}
	c.metrics.Observe(MetricRequestLatency, elapsed)
}

func (c *Client) emitAudit(ctx context.Context, e AuditEvent) {
	if c.audit == nil {
		return
	}
	c.audit.Emit(ctx, e)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
