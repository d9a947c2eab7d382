package permission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/goSession/identity"
)

// ErrMalformedSnapshot is returned when a permission payload has none of the
// accepted shapes.
var ErrMalformedSnapshot = errors.New("malformed permission payload")

// Set is a set of permission codes.
type Set map[string]struct{}

// NewSet returns a set holding codes. Empty codes are skipped.
func NewSet(codes ...string) Set {
	s := make(Set, len(codes))
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add inserts code.
func (s Set) Add(code string) {
	if code != "" {
		s[code] = struct{}{}
	}
}

// Has reports whether code is in s.
func (s Set) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the members in sorted order.
func (s Set) Codes() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Snapshot is one loaded view of the operator's permissions.
type Snapshot struct {
	// User is the profile echoed by the permissions endpoint, if any.
	User  *identity.User
	Codes Set
	// Categories keeps the grouping when the backend sent one.
	Categories map[string][]string
	Roles      []identity.Role
	LoadedAt   time.Time
}

// Has reports whether the snapshot grants code.
func (s *Snapshot) Has(code string) bool {
	return s != nil && s.Codes.Has(code)
}

// ParseSnapshot normalises a permissions payload. data may be the endpoint's
// object ({user, permissions, roles}) or a bare permissions value.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrMalformedSnapshot
	}
	snap := &Snapshot{Codes: make(Set)}

	if data[0] == '[' {
		if err := collectList(data, snap.Codes); err != nil {
			return nil, err
		}
		return snap, nil
	}

	var body struct {
		User        json.RawMessage `json:"user"`
		Permissions json.RawMessage `json:"permissions"`
		Roles       json.RawMessage `json:"roles"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	if isPresent(body.User) {
		u, err := identity.DecodeUser(body.User)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		snap.User = u
	}
	if isPresent(body.Roles) {
		if err := json.Unmarshal(body.Roles, &snap.Roles); err != nil {
			return nil, fmt.Errorf("%w: roles: %v", ErrMalformedSnapshot, err)
		}
	}
	if !isPresent(body.Permissions) {
		return snap, nil
	}

	perms := bytes.TrimSpace(body.Permissions)
	switch perms[0] {
	case '[':
		if err := collectList(perms, snap.Codes); err != nil {
			return nil, err
		}
	case '{':
		var categories map[string]json.RawMessage
		if err := json.Unmarshal(perms, &categories); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		snap.Categories = make(map[string][]string, len(categories))
		for name, raw := range categories {
			group := make(Set)
			if err := collectList(raw, group); err != nil {
				return nil, err
			}
			snap.Categories[name] = group.Codes()
			for code := range group {
				snap.Codes.Add(code)
			}
		}
	default:
		return nil, ErrMalformedSnapshot
	}
	return snap, nil
}

// collectList adds every code in a JSON list of strings or {code, …} records.
func collectList(raw json.RawMessage, into Set) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for _, item := range items {
		var code string
		if err := json.Unmarshal(item, &code); err == nil {
			into.Add(code)
			continue
		}
		var p identity.Permission
		if err := json.Unmarshal(item, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		into.Add(p.Key())
	}
	return nil
}

func isPresent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}
