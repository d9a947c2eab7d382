package session

import (
	"context"
	"net"
	"time"
)

// Connectivity reports whether the backend host is reachable at all.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to [Connectivity].
type ConnectivityFunc func(ctx context.Context) bool

// Online calls f.
func (f ConnectivityFunc) Online(ctx context.Context) bool { return f(ctx) }

// AlwaysOnline never reports an outage.
type AlwaysOnline struct{}

func (AlwaysOnline) Online(context.Context) bool { return true }

// DialProbe reports online when a TCP connection to Addr succeeds.
type DialProbe struct {
	Addr    string
	Timeout time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
