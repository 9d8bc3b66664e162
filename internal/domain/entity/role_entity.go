package entity

import "strings"

// Role is the single authorization role carried by a user.
// Roles are compared by exact match; there is no hierarchy.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole accepts the canonical role names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Satisfies reports whether r meets required. An empty requirement always passes.
func (r Role) Satisfies(required Role) bool {
	return required == "" || r == required
}
