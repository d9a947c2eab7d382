package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/permission"
)

var (
	// ErrDuplicateRoute is returned when two routes resolve to the same path.
	ErrDuplicateRoute = errors.New("duplicate route")
	// ErrUnknownPermission is returned when a route names a code missing from the catalog.
	ErrUnknownPermission = errors.New("route requires unknown permission")
	// ErrUnknownRedirect is returned when a static redirect targets no route.
	ErrUnknownRedirect = errors.New("redirect target does not exist")
	// ErrRedirectLoop is returned when navigation exceeds the hop limit.
	ErrRedirectLoop = errors.New("too many redirects")
)

// NotFoundPath is the catch-all pattern.
const NotFoundPath = "*"

// Route is one console page. Children inherit RequiresAuth from their parent
// and are addressed relative to it; a child with an empty Path is the
// parent's own entry.
type Route struct {
	Path         string
	Name         string
	Title        string
	RequiresAuth bool
	Guest        bool
	Permission   string
	// Redirect sends the page elsewhere before any checks.
	Redirect string
	// RedirectFunc chooses the target from the authentication state.
	RedirectFunc func(authenticated bool) string
	Children     []Route
}

// DefaultRoutes is the console's page table.
func DefaultRoutes() []Route {
	return []Route{
		{
			Path: "/",
			Name: "Root",
			RedirectFunc: func(authenticated bool) string {
				if authenticated {
					return "/dashboard"
				}
				return "/login"
			},
		},
		{Path: "/login", Name: "Login", Title: "Sign in", Guest: true},
		{Path: "/register", Name: "Register", Title: "Register", Guest: true},
		{Path: "/dashboard", Name: "Dashboard", Title: "Dashboard", RequiresAuth: true},
		{
			Path:         "/admin",
			Title:        "Administration",
			RequiresAuth: true,
			Children: []Route{
				{Path: "", Name: "Admin", Redirect: "/admin/users"},
				{Path: "users", Name: "UserManagement", Title: "Users", Permission: permission.UserList},
				{Path: "roles", Name: "RoleManagement", Title: "Roles", Permission: permission.RoleList},
				{Path: "permissions", Name: "PermissionManagement", Title: "Permissions", Permission: permission.PermissionList},
			},
		},
		{Path: "/schedules", Name: "Schedules", Title: "Vessel schedules", RequiresAuth: true, Permission: permission.ScheduleList},
		{Path: "/vessel-info", Name: "VesselInfo", Title: "Vessel info", RequiresAuth: true, Permission: permission.VesselInfoList},
		{Path: "/local-fees", Name: "LocalFees", Title: "Local fees", RequiresAuth: true, Permission: permission.LocalFeeList},
		{Path: NotFoundPath, Name: "NotFound", Title: "Page not found"},
	}
}

// compiled is a route with its full path and inherited meta.
type compiled struct {
	Route
	segments []string
}

// compile flattens routes. Children take any meta field they leave unset from
// their parent. A parent with an empty-path child is represented by that child.
func compile(routes []Route, catalog *permission.Catalog) ([]compiled, error) {
	var out []compiled
	seen := make(map[string]bool)
	var walk func(prefix string, parent Route, rs []Route) error
	walk = func(prefix string, parent Route, rs []Route) error {
		for _, r := range rs {
			full := joinPath(prefix, r.Path)
			r = inherit(r, parent)
			children := r.Children
			r.Children = nil
			r.Path = full

			if !hasIndex(children) {
				if seen[full] {
					return fmt.Errorf("%w: %s", ErrDuplicateRoute, full)
				}
				seen[full] = true
				if r.Permission != "" && catalog != nil && !catalog.Known(r.Permission) {
					return fmt.Errorf("%w: %s on %s", ErrUnknownPermission, r.Permission, full)
				}
				out = append(out, compiled{Route: r, segments: split(full)})
			}
			if err := walk(full, r, children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("", Route{}, routes); err != nil {
		return nil, err
	}
	for _, c := range out {
		if c.Redirect != "" && !seen[clean(c.Redirect)] {
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownRedirect, c.Path, c.Redirect)
		}
	}
	return out, nil
}

func inherit(r, parent Route) Route {
	r.RequiresAuth = r.RequiresAuth || parent.RequiresAuth
	r.Guest = r.Guest || parent.Guest
	if r.Title == "" {
		r.Title = parent.Title
	}
	if r.Permission == "" {
		r.Permission = parent.Permission
	}
	return r
}

func hasIndex(children []Route) bool {
	for _, c := range children {
		if c.Path == "" {
			return true
		}
	}
	return false
}

func joinPath(prefix, p string) string {
	if p == NotFoundPath {
		return NotFoundPath
	}
	if strings.HasPrefix(p, "/") || prefix == "" {
		return clean(p)
	}
	if p == "" {
		return clean(prefix)
	}
	return clean(prefix + "/" + p)
}

// clean trims the trailing slash and query of a console path.
func clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func split(p string) []string {
	if p == "/" || p == NotFoundPath {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// match reports whether path segments fit the route; ":name" matches any one
// segment.
func (c compiled) match(segs []string) bool {
	if c.Path == NotFoundPath || len(segs) != len(c.segments) {
		return false
	}
	for i, s := range c.segments {
		if !strings.HasPrefix(s, ":") && s != segs[i] {
			return false
		}
	}
	return true
}
