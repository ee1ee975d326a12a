// Package identity owns who the caller is: the principal reported by the
// managed auth provider, the durable role record keyed by that principal's
// identifier, and the resolved in-memory Identity every other package
// consumes read-only.
package identity

import (
	"time"

	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// Role is the privilege level stored on a role record.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role value at a trust boundary. Anything outside the
// two known values is a data-integrity violation and is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
}

// Principal is what the auth provider reports about an authenticated caller.
// It carries no privilege information; the role comes from the role record.
// Unknown provider metadata is dropped here, never propagated as an open map.
type Principal struct {
	ID    id.UserID
	Email string
	Phone string
}

// Identity is the resolved caller: principal attributes plus the role read
// from the role record. It is replaced wholesale on every auth event and is
// read-only to consumers.
type Identity struct {
	ID         id.UserID
	Email      string
	Phone      string
	Role       Role
	ResolvedAt time.Time
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// User is the durable role record: exactly one row per identifier, created
// with role "user" the first time an unknown principal resolves.
type User struct {
	ID        id.UserID
	Email     string
	FullName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
