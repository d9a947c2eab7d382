package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidUser is returned when a profile payload is not a JSON object.
var ErrInvalidUser = errors.New("invalid user payload")

// User is the profile returned by /auth/me/ and embedded in login responses.
type User struct {
	ID          int64  `json:"id,omitempty"`
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	IsActive    bool   `json:"is_active,omitempty"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	DateJoined  string `json:"date_joined,omitempty"`
	LastLogin   string `json:"last_login,omitempty"`

	// Extra carries every field not listed above, keyed by its JSON name.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownUserFields = map[string]struct{}{
	"id": {}, "email": {}, "username": {}, "first_name": {}, "last_name": {},
	"is_active": {}, "is_staff": {}, "is_superuser": {}, "avatar_url": {},
	"date_joined": {}, "last_login": {},
}

// SuperAdmin reports whether the profile bypasses fine-grained permission checks.
func (u *User) SuperAdmin() bool {
	return u != nil && (u.IsSuperuser || u.IsStaff)
}

// DisplayName returns the best human label for the profile.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case full != "":
		return full
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &out
}

type userAlias User

// UnmarshalJSON decodes the modelled fields and keeps the rest in Extra.
// The API is inconsistent about booleans arriving as null, which decode as false.
func (u *User) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return ErrInvalidUser
	}
	var alias userAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range knownUserFields {
		delete(all, k)
	}
	if len(all) > 0 {
		alias.Extra = all
	}
	*u = User(alias)
	return nil
}

// MarshalJSON writes the modelled fields merged with Extra.
func (u User) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(userAlias(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range u.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Merge overlays patch onto a copy of u, the way a partial profile update
// is applied locally after a successful PATCH.
func (u *User) Merge(patch map[string]any) (*User, error) {
	if u == nil {
		return nil, ErrInvalidUser
	}
	base, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out User
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeUser accepts either {"user": {...}} or a bare profile object.
func DecodeUser(data []byte) (*User, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrInvalidUser
	}
	var wrapped struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.User) > 0 && !bytes.Equal(wrapped.User, []byte("null")) {
		data = wrapped.User
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
