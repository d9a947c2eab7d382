package session

import (
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/permission"
)

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsAuthenticated holds only when the status is Authenticated, an access
// token is held, and a profile is loaded.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status == StatusAuthenticated && m.pair.Access != "" && m.user != nil
}

func (m *Manager) IsInitializing() bool { return m.Status() == StatusInitializing }

func (m *Manager) IsNetworkError() bool { return m.Status() == StatusNetworkError }

// IsSuperAdmin reports the profile's is_superuser flag.
func (m *Manager) IsSuperAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.IsSuperuser
}

// User returns a copy of the held profile, or nil.
func (m *Manager) User() *identity.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.Access
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.Refresh
}

// Roles returns the roles reported with the last permission snapshot.
func (m *Manager) Roles() []identity.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]identity.Role(nil), m.roles...)
}

// Snapshot returns the current permission snapshot, or nil.
func (m *Manager) Snapshot() *permission.Snapshot { return m.perms.Snapshot() }

// PermissionCodes returns the granted codes in sorted order.
func (m *Manager) PermissionCodes() []string {
	snap := m.perms.Snapshot()
	if snap == nil {
		return nil
	}
	return snap.Codes.Codes()
}

// PermissionsLoaded reports whether a permission load completed since the
// last sign-out.
func (m *Manager) PermissionsLoaded() bool { return m.perms.Loaded() }

func (m *Manager) LastAuthCheck() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCheck
}

func (m *Manager) NetworkAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}
