package permission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/identity"
)

// ErrPermissionDenied is returned by [Evaluator.Require].
var ErrPermissionDenied = errors.New("permission denied")

// Identity is the read-only view of the signed-in operator.
type Identity interface {
	User() *identity.User
	Roles() []identity.Role
	Snapshot() *Snapshot
}

var adminRoleNames = []string{"admin", "administrator", "super_admin"}

var adminAreaCodes = []string{UserList, RoleList, PermissionList, AdminAccess}

// Evaluator answers permission questions for one session.
type Evaluator struct {
	id Identity
}

// NewEvaluator returns an evaluator reading from id.
func NewEvaluator(id Identity) *Evaluator {
	return &Evaluator{id: id}
}

// IsSuperAdmin reports whether the session user, or the user echoed by the
// last permission snapshot, is a superuser or staff member.
func (e *Evaluator) IsSuperAdmin() bool {
	if u := e.id.User(); u.SuperAdmin() {
		return true
	}
	if snap := e.id.Snapshot(); snap != nil && snap.User.SuperAdmin() {
		return true
	}
	return false
}

// HasPermission reports whether the operator holds code. Super-admins hold
// every non-empty code.
func (e *Evaluator) HasPermission(code string) bool {
	if code == "" {
		return false
	}
	if e.IsSuperAdmin() {
		return true
	}
	return e.id.Snapshot().Has(code)
}

// HasAnyPermission reports whether the operator holds at least one of codes.
func (e *Evaluator) HasAnyPermission(codes ...string) bool {
	if e.IsSuperAdmin() {
		return true
	}
	for _, c := range codes {
		if e.HasPermission(c) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the operator holds every one of codes.
func (e *Evaluator) HasAllPermissions(codes ...string) bool {
	if e.IsSuperAdmin() {
		return true
	}
	for _, c := range codes {
		if !e.HasPermission(c) {
			return false
		}
	}
	return true
}

// Require returns ErrPermissionDenied naming the first missing code.
func (e *Evaluator) Require(codes ...string) error {
	if e.IsSuperAdmin() {
		return nil
	}
	for _, c := range codes {
		if !e.HasPermission(c) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, c)
		}
	}
	return nil
}

// IsAdmin reports whether the operator is a super-admin or holds an admin role.
func (e *Evaluator) IsAdmin() bool {
	if e.IsSuperAdmin() {
		return true
	}
	for _, r := range e.roles() {
		name := strings.ToLower(r.Label())
		for _, admin := range adminRoleNames {
			if name == admin {
				return true
			}
		}
	}
	return false
}

// HasRole reports whether the operator holds any of names. Super-admins hold
// every role.
func (e *Evaluator) HasRole(names ...string) bool {
	if e.IsSuperAdmin() {
		return true
	}
	for _, r := range e.roles() {
		label := r.Label()
		for _, n := range names {
			if n != "" && (label == n || r.Name == n || r.Code == n) {
				return true
			}
		}
	}
	return false
}

// CanAccessAdmin reports whether the admin area should be offered.
func (e *Evaluator) CanAccessAdmin() bool {
	return e.IsAdmin() || e.HasAnyPermission(adminAreaCodes...)
}

func (e *Evaluator) CanEditVesselInfo() bool { return e.HasPermission(VesselInfoEdit) }

func (e *Evaluator) CanEditLocalFee() bool {
	return e.HasAnyPermission(LocalFeeCreate, LocalFeeUpdate, LocalFeeEdit)
}

func (e *Evaluator) CanViewLocalFee() bool {
	return e.HasAnyPermission(LocalFeeQuery, LocalFeeList, LocalFeeDetail, LocalFeeView)
}

func (e *Evaluator) CanDeleteLocalFee() bool { return e.HasPermission(LocalFeeDelete) }

func (e *Evaluator) CanCreateLocalFee() bool { return e.HasPermission(LocalFeeCreate) }

func (e *Evaluator) CanQueryLocalFee() bool { return e.HasPermission(LocalFeeQuery) }

// roles merges session roles with roles echoed by the snapshot.
func (e *Evaluator) roles() []identity.Role {
	roles := e.id.Roles()
	if snap := e.id.Snapshot(); snap != nil && len(snap.Roles) > 0 {
		roles = append(append([]identity.Role(nil), roles...), snap.Roles...)
	}
	return roles
}
