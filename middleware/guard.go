package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goSession/guard"
)

type decisionContextKey struct{}

// DecisionFromContext returns the guard decision stored by [Navigation].
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(guard.Decision)
	return d, ok
}

// Navigation guards GET and HEAD page requests. Allowed requests carry the
// decision in their context; others are redirected with 302.
func Navigation(g *guard.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil {
				http.Error(w, "guard unavailable", http.StatusServiceUnavailable)
				return
			}
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			d := g.Check(r.Context(), r.URL.Path)
			if !d.Allow {
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission answers 403 unless perms grants every code.
func RequirePermission(perms guard.Checker, codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if perms == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			for _, code := range codes {
				if !perms.HasPermission(code) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
