package audit

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// Event is one session lifecycle record. Source names the component that
// raised it: session, transport or guard.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	EventType string            `json:"event_type"`
	User      string            `json:"user,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Redacted replaces metadata values whose key names a credential.
const Redacted = "[redacted]"

var secretKeys = []string{"token", "access", "refresh", "password", "secret", "authorization"}

// Redact returns meta with credential-bearing values masked. meta itself is
// not modified; it is returned as is when nothing needs masking.
func Redact(meta map[string]string) map[string]string {
	var out map[string]string
	for k := range meta {
		if !isSecretKey(k) {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(meta))
			for k2, v := range meta {
				out[k2] = v
			}
		}
		out[k] = Redacted
	}
	if out == nil {
		return meta
	}
	return out
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Sink receives delivered events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink exposes events on a buffered channel. Emit blocks on a full
// channel until ctx ends.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink appends each event to w as one JSON line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}
