// Package identity holds the server-sourced identity values shared by the session,
// permission and guard packages: the signed-in [User] profile and its [Role] list.
//
// Values are decoded from the admin API's JSON. Fields the console does not model are
// kept in User.Extra so a profile can round-trip through UpdateUserInfo unchanged.
package identity
