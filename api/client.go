package api

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/transport"
)

// Client groups the resource wrappers that share one doer.
type Client struct {
	Account   *Account
	Users     *Users
	Roles     *Resource[identity.Role]
	Schedules *Schedules
	Vessels   *Vessels
	LocalFees *LocalFees

	doer transport.Doer
}

// New returns wrappers sending through doer, normally an interceptor.
func New(doer transport.Doer) *Client {
	return &Client{
		Account:   &Account{doer: doer},
		Users:     newUsers(doer),
		Roles:     NewResource[identity.Role](doer, pathRoles),
		Schedules: newSchedules(doer),
		Vessels:   &Vessels{doer: doer},
		LocalFees: newLocalFees(doer),
		doer:      doer,
	}
}

// Permissions lists every grantable permission.
func (c *Client) Permissions(ctx context.Context) ([]identity.Permission, error) {
	return listPermissions(ctx, c.doer)
}

// Doer returns the doer the wrappers send through.
func (c *Client) Doer() transport.Doer { return c.doer }
