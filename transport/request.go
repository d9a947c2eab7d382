package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Request is one call against the backend. Path is relative to the API prefix.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	// Bearer is sent as the Authorization credential when non-empty.
	Bearer string
}

// NewRequest returns a request for method and path.
func NewRequest(method, path string, body any) *Request {
	return &Request{Method: method, Path: path, Body: body}
}

func (r *Request) clone() *Request {
	cp := *r
	if r.Header != nil {
		cp.Header = r.Header.Clone()
	}
	if r.Query != nil {
		cp.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			cp.Query[k] = append([]string(nil), v...)
		}
	}
	return &cp
}

// Doer sends a request and returns the normalised envelope.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Envelope, error)
}

// DoerFunc adapts a function to [Doer].
type DoerFunc func(ctx context.Context, req *Request) (*Envelope, error)

// Do calls f.
func (f DoerFunc) Do(ctx context.Context, req *Request) (*Envelope, error) { return f(ctx, req) }

// Envelope is the {code, message, data} shape every response is normalised to.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK reports whether Code is a 2xx status.
func (e *Envelope) OK() bool {
	return e != nil && e.Code >= 200 && e.Code < 300
}

// Decode unmarshals Data into v. A missing or null payload leaves v untouched.
func (e *Envelope) Decode(v any) error {
	if e == nil || len(e.Data) == 0 || bytes.Equal(bytes.TrimSpace(e.Data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// HasData reports whether the envelope carries a non-null payload.
func (e *Envelope) HasData() bool {
	return e != nil && len(e.Data) > 0 && !bytes.Equal(bytes.TrimSpace(e.Data), []byte("null"))
}

// normalizeEnvelope passes through bodies that already carry a code and wraps
// everything else as {code: status, message: "success", data: body}.
func normalizeEnvelope(status int, body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err == nil {
			if _, ok := probe["code"]; ok {
				var env Envelope
				if err := json.Unmarshal(trimmed, &env); err != nil {
					return nil, err
				}
				return &env, nil
			}
		}
	}
	env := &Envelope{Code: status, Message: "success"}
	if len(trimmed) > 0 {
		env.Data = json.RawMessage(trimmed)
	}
	return env, nil
}
