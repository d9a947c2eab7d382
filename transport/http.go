package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the API prefix used when none is configured.
	DefaultBaseURL = "/api"
	// DefaultTimeout bounds every call made by an [HTTPDoer].
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 8 << 20
	contentTypeJSON  = "application/json;charset=UTF-8"
)

// HTTPConfig configures an [HTTPDoer].
type HTTPConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// ObserveFunc is called once per completed round trip. status is -1 when no
// response arrived.
type ObserveFunc func(method, path string, status int, elapsed time.Duration)

// HTTPDoer is the base [Doer] backed by net/http.
type HTTPDoer struct {
	client    *http.Client
	baseURL   string
	timeout   time.Duration
	userAgent string
	log       logr.Logger
	observe   ObserveFunc
}

// NewHTTPDoer returns a doer for cfg. A nil client uses a fresh http.Client.
func NewHTTPDoer(cfg HTTPConfig, client *http.Client, log logr.Logger) *HTTPDoer {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &HTTPDoer{
		client:    client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		log:       log,
	}
}

// WithObserver installs fn as the round-trip observer and returns d.
func (d *HTTPDoer) WithObserver(fn ObserveFunc) *HTTPDoer {
	d.observe = fn
	return d
}

// BaseURL returns the configured prefix.
func (d *HTTPDoer) BaseURL() string { return d.baseURL }

// Do sends req. Non-2xx responses and transport failures return [*Error].
func (d *HTTPDoer) Do(ctx context.Context, req *Request) (*Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := d.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	if d.userAgent != "" {
		httpReq.Header.Set("User-Agent", d.userAgent)
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		d.finish(method, req.Path, CodeNetwork, start)
		d.log.V(1).Info("request failed", "method", method, "path", req.Path, "request_id", requestID, "error", err.Error())
		return nil, &Error{Code: CodeNetwork, Message: msgNetwork, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	d.finish(method, req.Path, resp.StatusCode, start)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: msgNetwork, Path: req.Path, Err: err}
	}
	d.log.V(2).Info("request done", "method", method, "path", req.Path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := &Error{
			Code:    resp.StatusCode,
			Message: failureMessage(req.Path, resp.StatusCode, raw),
			Path:    req.Path,
		}
		if json.Valid(raw) {
			e.Data = json.RawMessage(raw)
		}
		return nil, e
	}

	env, err := normalizeEnvelope(resp.StatusCode, raw)
	if err != nil {
		return nil, &Error{Code: resp.StatusCode, Message: "Malformed response", Path: req.Path, Err: err}
	}
	return env, nil
}

func (d *HTTPDoer) finish(method, path string, status int, start time.Time) {
	if d.observe != nil {
		d.observe(method, path, status, time.Since(start))
	}
}
