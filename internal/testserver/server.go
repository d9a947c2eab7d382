// Package testserver is an in-memory stand-in for the vessel-schedule
// backend, used by tests and the console example.
package testserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Account is a user known to the server.
type Account struct {
	ID          int64
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Superuser   bool
	Permissions []string
	Roles       []string
	// PermissionBody, when set, is sent verbatim by /auth/me/permissions/.
	PermissionBody json.RawMessage
}

func (a *Account) profile() map[string]any {
	return map[string]any{
		"id":           a.ID,
		"email":        a.Email,
		"first_name":   a.FirstName,
		"last_name":    a.LastName,
		"is_superuser": a.Superuser,
		"is_staff":     a.Superuser,
		"is_active":    true,
	}
}

// Options tune the server.
type Options struct {
	// AccessTTL is the lifetime of issued access tokens. Zero means 5 minutes.
	AccessTTL time.Duration
	// RotateRefresh makes every refresh return a new refresh token.
	RotateRefresh bool
	// RefreshDelay holds each refresh call, for concurrency tests.
	RefreshDelay time.Duration
}

// Server is the fake backend.
type Server struct {
	*httptest.Server
	Handler http.Handler

	signer *jwt.Signer
	opts   Options

	mu        sync.Mutex
	accounts  map[string]*Account
	nextID    int64
	access    map[string]string
	refresh   map[string]string
	hits      map[string]int
	failures  map[string][]int
	roles     *collection
	schedules *collection
	vessels   *collection
	fees      *collection
	userRoles map[int64][]int64
}

// New starts a server. Call Close when done.
func New(opts Options) *Server {
	s := NewHandler(opts)
	s.Server = httptest.NewServer(s.Handler)
	return s
}

// NewHandler builds the server without listening, for mounting elsewhere.
func NewHandler(opts Options) *Server {
	if opts.AccessTTL == 0 {
		opts.AccessTTL = 5 * time.Minute
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	signer, err := jwt.NewSigner(jwt.Config{
		AccessTTL:     opts.AccessTTL,
		SigningMethod: jwt.MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "testserver",
	})
	if err != nil {
		panic(err)
	}
	s := &Server{
		signer:    signer,
		opts:      opts,
		accounts:  make(map[string]*Account),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		hits:      make(map[string]int),
		failures:  make(map[string][]int),
		roles:     newCollection("role"),
		schedules: newCollection("schedule"),
		vessels:   newCollection("vessel info"),
		fees:      newCollection("local fee"),
		userRoles: make(map[int64][]int64),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count, s.inject)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login/", s.login)
		r.Post("/register/", s.register)
		r.Post("/token/refresh/", s.refreshToken)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)
			r.Post("/logout/", s.logout)
			r.Get("/me/", s.me)
			r.Get("/me/permissions/", s.myPermissions)
			r.Delete("/me/avatar/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
			r.Get("/user/", s.me)
			r.Patch("/user/", s.patchProfile)
			r.Get("/users/", s.listUsers)
			r.Get("/users/{id}/roles/", s.getUserRoles)
			r.Post("/users/{id}/roles/", s.setUserRoles(true))
			r.Put("/users/{id}/roles/", s.setUserRoles(false))
			r.Delete("/users/{id}/roles/{roleID}/", s.removeUserRole)
			r.Post("/users-management/", s.createUser)
			r.Get("/users-management/{id}/", s.getUser)
			r.Put("/users-management/{id}/", s.updateUser)
			r.Delete("/users-management/{id}/", s.deleteUser)
			r.Get("/permissions/", s.listPermissions)
			r.Route("/roles", s.roles.routes(nil))
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(s.authenticated)
		r.Route("/schedules", s.schedules.routes(func(r chi.Router) {
			r.Get("/cabin-grouping-with-info/", s.cabinGrouping)
		}))
		r.Route("/vessel-info", s.vessels.routes(func(r chi.Router) {
			r.Post("/bulk-update/", s.bulkUpdateVessels)
		}))
		r.Route("/api/local-fees/local-fees", s.fees.routes(func(r chi.Router) {
			r.Get("/query/", s.queryFees)
		}))
	})
	return r
}

// AddAccount registers an account and returns it with its id assigned.
func (s *Server) AddAccount(a Account) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.accounts[a.Email] = &a
	return &a
}

// Seed adds records to the schedule, vessel-info, local-fee or role
// collections.
func (s *Server) Seed(kind string, records ...map[string]any) {
	c := map[string]*collection{"roles": s.roles, "schedules": s.schedules, "vessel-info": s.vessels, "local-fees": s.fees}[kind]
	for _, rec := range records {
		c.insert(rec)
	}
}

// IssueTokens signs in email directly and returns a fresh pair.
func (s *Server) IssueTokens(email string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[email]
	if a == nil {
		return "", ""
	}
	access, refresh = s.issueLocked(a)
	return access, refresh
}

// ExpireAccessTokens invalidates every issued access token.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

// FailNext makes the next len(statuses) calls to path answer with those
// statuses. Status 0 drops the connection.
func (s *Server) FailNext(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], statuses...)
}

// Hits returns how many requests path has received.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) issueLocked(a *Account) (string, string) {
	access, err := s.signer.Issue(strconv.FormatInt(a.ID, 10), a.Email, 0)
	if err != nil {
		panic(err)
	}
	refresh := uuid.NewString()
	s.access[access] = a.Email
	s.refresh[refresh] = a.Email
	return access, refresh
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var status int
		queued := s.failures[r.URL.Path]
		if len(queued) > 0 {
			status = queued[0]
			s.failures[r.URL.Path] = queued[1:]
		}
		s.mu.Unlock()
		switch {
		case len(queued) == 0:
			next.ServeHTTP(w, r)
		case status == 0:
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			w.WriteHeader(http.StatusBadGateway)
		case status == http.StatusUnauthorized:
			writeJSON(w, status, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		default:
			writeJSON(w, status, map[string]any{"detail": http.StatusText(status)})
		}
	})
}

type ctxKey struct{}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
			return
		}
		s.mu.Lock()
		email, known := s.access[token]
		a := s.accounts[email]
		s.mu.Unlock()
		if _, err := s.signer.Verify(token); err != nil || !known || a == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Given token not valid for any token type", "code": "token_not_valid"})
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWith(r, a)))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}
