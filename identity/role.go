package identity

import (
	"bytes"
	"encoding/json"
)

// Permission is one grantable capability as listed by /auth/permissions/.
type Permission struct {
	ID       int64  `json:"id,omitempty"`
	Code     string `json:"code,omitempty"`
	Name     string `json:"name,omitempty"`
	Codename string `json:"codename,omitempty"`
	Category string `json:"category,omitempty"`
}

// Key returns the identifier used for permission checks.
func (p Permission) Key() string {
	if p.Code != "" {
		return p.Code
	}
	return p.Codename
}

// Role is a named permission bundle. The API sends roles either as plain
// strings or as objects; both decode into Role.
type Role struct {
	ID          int64        `json:"id,omitempty"`
	Name        string       `json:"name,omitempty"`
	Code        string       `json:"code,omitempty"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Label returns the role's name, falling back to its code.
func (r Role) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Code
}

type roleAlias Role

// UnmarshalJSON accepts "admin" as well as {"name": "admin", ...}.
func (r *Role) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = Role{Name: name}
		return nil
	}
	var alias roleAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = Role(alias)
	return nil
}
