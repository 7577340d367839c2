package model

import "time"

// Role is one of the fixed authorities a user account can hold.  Roles are
// stored and transported by their full name (ROLE_USER, ROLE_ADMIN).
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// ParseRole maps a stored or transported role name back onto the closed set.
// Unknown names are rejected rather than carried along as free-form strings.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// RoleNames converts roles to their string names, preserving order.
func RoleNames(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// UserAccount represents a row in the `users` table together with the
// roles from `user_roles`.  Username is always stored trimmed and
// lower-cased.  Accounts are never physically deleted.
type UserAccount struct {
	ID           uint64    // users.id
	Username     string    // users.username (unique, lower-case)
	PasswordHash string    // users.password_hash (bcrypt)
	Enabled      bool      // users.enabled
	Roles        []Role    // user_roles.role
	CreatedAt    time.Time // users.created_at
}

// HasRole reports whether the account holds the given role.
func (u *UserAccount) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}
