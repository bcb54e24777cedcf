// Package identity carries the authenticated caller through request context.
// Token verification happens in the HTTP middleware; everything below it
// trusts the identity it is handed.
package identity

import "context"

// Role distinguishes residents from office staff.
type Role string

const (
	RoleResident Role = "resident"
	RoleAdmin    Role = "admin"
)

// Identity is the authenticated caller: a user id plus their role.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller has admin capability.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

type ctxKey string

const identityKey ctxKey = "appointments.identity"

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the caller identity if present.
func FromContext(ctx context.Context) (Identity, bool) {
	val := ctx.Value(identityKey)
	if val == nil {
		return Identity{}, false
	}
	id, ok := val.(Identity)
	return id, ok && id.UserID != ""
}
