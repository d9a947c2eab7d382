package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/transport"
)

const (
	pathUsers           = "/auth/users/"
	pathUsersManagement = "/auth/users-management/"
	pathRoles           = "/auth/roles/"
	pathPermissions     = "/auth/permissions/"
)

// NewUser is the payload for creating an account from the admin screens.
type NewUser struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// Users is the user administration surface. Listing uses /auth/users/, while
// single-user changes go through /auth/users-management/.
type Users struct {
	doer   transport.Doer
	list   *Resource[identity.User]
	manage *Resource[identity.User]
}

func newUsers(doer transport.Doer) *Users {
	return &Users{
		doer:   doer,
		list:   NewResource[identity.User](doer, pathUsers),
		manage: NewResource[identity.User](doer, pathUsersManagement),
	}
}

func (u *Users) List(ctx context.Context, query url.Values) (Page[identity.User], error) {
	return u.list.List(ctx, query)
}

func (u *Users) Create(ctx context.Context, nu NewUser) (*identity.User, error) {
	return u.manage.Create(ctx, nu)
}

func (u *Users) Get(ctx context.Context, id int64) (*identity.User, error) {
	return u.manage.Get(ctx, id)
}

func (u *Users) Update(ctx context.Context, id int64, body map[string]any) (*identity.User, error) {
	return u.manage.Update(ctx, id, body)
}

func (u *Users) Delete(ctx context.Context, id int64) error {
	return u.manage.Delete(ctx, id)
}

// Roles lists the roles assigned to a user. The backend answers with either
// a bare list or {"roles": [...]}.
func (u *Users) Roles(ctx context.Context, id int64) ([]identity.Role, error) {
	var raw json.RawMessage
	if err := call(ctx, u.doer, get(item(pathUsers, id, "roles"), nil), &raw); err != nil {
		return nil, err
	}
	var wrapped struct {
		Roles []identity.Role `json:"roles"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Roles != nil {
		return wrapped.Roles, nil
	}
	page, err := decodeList[identity.Role](raw)
	return page.Results, err
}

// AssignRoles adds roles to the user's current set.
func (u *Users) AssignRoles(ctx context.Context, id int64, roleIDs []int64) error {
	body := map[string][]int64{"roles": roleIDs}
	return call(ctx, u.doer, transport.NewRequest(http.MethodPost, item(pathUsers, id, "roles"), body), nil)
}

// SetRoles replaces the user's roles with roleIDs.
func (u *Users) SetRoles(ctx context.Context, id int64, roleIDs []int64) error {
	body := map[string][]int64{"roles": roleIDs}
	return call(ctx, u.doer, transport.NewRequest(http.MethodPut, item(pathUsers, id, "roles"), body), nil)
}

func (u *Users) RemoveRole(ctx context.Context, id, roleID int64) error {
	path := item(item(pathUsers, id, "roles"), roleID)
	return call(ctx, u.doer, transport.NewRequest(http.MethodDelete, path, nil), nil)
}

// listPermissions returns every grantable permission. A category map
// ({"schedule": [...], ...}) is flattened in category order.
func listPermissions(ctx context.Context, doer transport.Doer) ([]identity.Permission, error) {
	var raw json.RawMessage
	if err := call(ctx, doer, get(pathPermissions, nil), &raw); err != nil {
		return nil, err
	}
	page, err := decodeList[identity.Permission](raw)
	if err == nil && len(page.Results) > 0 {
		return page.Results, nil
	}
	var grouped map[string][]identity.Permission
	if json.Unmarshal(raw, &grouped) != nil {
		return page.Results, err
	}
	categories := make([]string, 0, len(grouped))
	for c := range grouped {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	var out []identity.Permission
	for _, c := range categories {
		for _, p := range grouped[c] {
			if p.Category == "" {
				p.Category = c
			}
			out = append(out, p)
		}
	}
	return out, nil
}
