package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
)

func newTestDoer(t *testing.T, h http.HandlerFunc) *HTTPDoer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPDoer(HTTPConfig{BaseURL: srv.URL + "/api"}, srv.Client(), testr.New(t))
}

func TestHTTPDoerEnvelopePassThroughAndWrap(t *testing.T) {
	d := newTestDoer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/wrapped/":
			_, _ = io.WriteString(w, `{"code":200,"message":"ok","data":{"n":1}}`)
		case "/api/bare/":
			_, _ = io.WriteString(w, `[1,2,3]`)
		case "/api/empty/":
			w.WriteHeader(http.StatusNoContent)
		}
	})

	env, err := d.Do(context.Background(), NewRequest(http.MethodGet, "/wrapped/", nil))
	if err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if env.Code != 200 || env.Message != "ok" || string(env.Data) != `{"n":1}` {
		t.Fatalf("unexpected pass-through envelope %+v", env)
	}

	env, err = d.Do(context.Background(), NewRequest(http.MethodGet, "/bare/", nil))
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	var nums []int
	if err := env.Decode(&nums); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != 200 || env.Message != "success" || len(nums) != 3 {
		t.Fatalf("unexpected wrapped envelope %+v", env)
	}

	env, err = d.Do(context.Background(), NewRequest(http.MethodDelete, "/empty/", nil))
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	if env.Code != http.StatusNoContent || env.HasData() {
		t.Fatalf("unexpected empty envelope %+v", env)
	}
}

func TestHTTPDoerHeaders(t *testing.T) {
	var got http.Header
	d := newTestDoer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"email":"u@e.com"}` {
			t.Errorf("unexpected body %s", body)
		}
		_, _ = io.WriteString(w, `{}`)
	})
	req := NewRequest(http.MethodPost, "/auth/login/", map[string]string{"email": "u@e.com"})
	req.Bearer = "A"
	if _, err := d.Do(context.Background(), req); err != nil {
		t.Fatalf("do: %v", err)
	}
	if got.Get("Authorization") != "Bearer A" {
		t.Fatalf("authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Content-Type") != contentTypeJSON {
		t.Fatalf("content type = %q", got.Get("Content-Type"))
	}
	if got.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestHTTPDoerFailureMessages(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		status int
		body   string
		want   string
	}{
		{"login phrase", "/auth/login/", 400, `{"message":"Invalid credentials"}`, "Incorrect email or password, please try again"},
		{"login unknown phrase", "/auth/login/", 400, `{"message":"Captcha required"}`, "Captcha required"},
		{"login empty", "/auth/login/", 400, `{}`, msgLoginFailed},
		{"register phrase", "/auth/register/", 400, `{"message":"Email already exists"}`, "This email is already registered, please use another one"},
		{"register fields", "/auth/register/", 400, `{"password":["too short","too common"],"email":["taken"]}`, "Password: too short; Password: too common; Email: taken"},
		{"register nothing", "/auth/register/", 400, `{}`, msgRegisterFailed},
		{"other 400", "/schedules/", 400, `{"nickname":["bad"]}`, "nickname: bad"},
		{"forbidden", "/auth/users/", 403, `{"message":"nope"}`, msgForbidden},
		{"not found", "/auth/users/9/", 404, ``, msgNotFound},
		{"unprocessable", "/auth/users/", 422, `{"username":["required"]}`, "Username: required"},
		{"server error", "/auth/users/", 500, `oops`, msgServerError},
		{"default with message", "/auth/users/", 409, `{"message":"conflict"}`, "conflict"},
		{"default without message", "/auth/users/", 502, ``, "Request failed (502)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDoer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := d.Do(context.Background(), NewRequest(http.MethodPost, tc.path, nil))
			var te *Error
			if !errors.As(err, &te) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if diff := cmp.Diff(tc.want, te.Message); diff != "" {
				t.Fatalf("message mismatch (-want +got):\n%s", diff)
			}
			if te.Code != tc.status {
				t.Fatalf("code = %d, want %d", te.Code, tc.status)
			}
		})
	}
}

func TestHTTPDoerNetworkFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	d := NewHTTPDoer(HTTPConfig{BaseURL: "http://" + addr + "/api"}, nil, testr.New(t))
	_, err = d.Do(context.Background(), NewRequest(http.MethodGet, "/auth/me/", nil))
	if StatusOf(err) != CodeNetwork || Classify(err) != ClassNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if MessageOf(err) != msgNetwork {
		t.Fatalf("message = %q", MessageOf(err))
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()
	d = NewHTTPDoer(HTTPConfig{BaseURL: slow.URL, Timeout: 20 * time.Millisecond}, slow.Client(), testr.New(t))
	_, err = d.Do(context.Background(), NewRequest(http.MethodGet, "/auth/me/", nil))
	if Classify(err) != ClassNetwork {
		t.Fatalf("timeout should classify as network, got %v", err)
	}
}

func TestHTTPDoerObserver(t *testing.T) {
	var seen []int
	d := newTestDoer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}).WithObserver(func(method, path string, status int, elapsed time.Duration) {
		seen = append(seen, status)
	})
	_, _ = d.Do(context.Background(), NewRequest(http.MethodGet, "/ok/", nil))
	_, _ = d.Do(context.Background(), NewRequest(http.MethodGet, "/missing/", nil))
	if diff := cmp.Diff([]int{200, 404}, seen); diff != "" {
		t.Fatalf("observed statuses (-want +got):\n%s", diff)
	}
}
