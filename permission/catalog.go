package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Catalog records the permission codes known to the console.
//
// Codes are registered during start-up, then the catalog is frozen and used
// read-only.
type Catalog struct {
	mu     sync.RWMutex
	codes  map[string]string
	frozen bool
}

// NewCatalog returns an empty, unfrozen catalog.
func NewCatalog() *Catalog {
	return &Catalog{codes: make(map[string]string)}
}

// Register adds code with a human-readable label. Must be called before
// [Catalog.Freeze].
func (c *Catalog) Register(code, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return errors.New("catalog frozen")
	}
	if code == "" {
		return errors.New("permission code cannot be empty")
	}
	if _, exists := c.codes[code]; exists {
		return fmt.Errorf("permission %q already registered", code)
	}
	c.codes[code] = label
	return nil
}

// Freeze prevents further registrations.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Known reports whether code was registered.
func (c *Catalog) Known(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.codes[code]
	return ok
}

// Label returns the label registered for code.
func (c *Catalog) Label(code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	label, ok := c.codes[code]
	return label, ok
}

// Codes returns every registered code in sorted order.
func (c *Catalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.codes))
	for code := range c.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered codes.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.codes)
}

// Codes used by the console's own pages and capability helpers.
const (
	UserList       = "user.list"
	RoleList       = "role.list"
	PermissionList = "permission.list"
	AdminAccess    = "admin.access"
	ScheduleList   = "schedule.list"
	VesselInfoList = "vessel_info.list"
	VesselInfoView = "vessel_info.detail"
	VesselInfoEdit = "vessel_info.update"
	LocalFeeList   = "local_fee.list"
	LocalFeeQuery  = "local_fee.query"
	LocalFeeDetail = "local_fee.detail"
	LocalFeeView   = "local_fee.view"
	LocalFeeCreate = "local_fee.create"
	LocalFeeUpdate = "local_fee.update"
	LocalFeeEdit   = "local_fee.edit"
	LocalFeeDelete = "local_fee.delete"
)

// DefaultCatalog returns a frozen catalog holding the console's built-in codes.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, e := range []struct{ code, label string }{
		{UserList, "List users"},
		{RoleList, "List roles"},
		{PermissionList, "List permissions"},
		{AdminAccess, "Open the admin area"},
		{ScheduleList, "List vessel schedules"},
		{VesselInfoList, "List vessel information"},
		{VesselInfoView, "View vessel information"},
		{VesselInfoEdit, "Edit vessel information"},
		{LocalFeeList, "List local fees"},
		{LocalFeeQuery, "Query local fees"},
		{LocalFeeDetail, "View local fee detail"},
		{LocalFeeView, "View local fees"},
		{LocalFeeCreate, "Create local fees"},
		{LocalFeeUpdate, "Update local fees"},
		{LocalFeeEdit, "Edit local fees"},
		{LocalFeeDelete, "Delete local fees"},
	} {
		// Built-in codes are unique.
		_ = c.Register(e.code, e.label)
	}
	c.Freeze()
	return c
}
