package domain

import "fmt"

// Role is a derived, cached fact about a Principal. It lives in the backend's
// user record, not in the identity provider.
type Role string

const (
	RoleStudent   Role = "student"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"

	// RoleNone marks an unresolved role. Guards treat it as "still loading",
	// never as a denial.
	RoleNone Role = ""
)

// ParseRole validates a role string from the backend.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleModerator, RoleAdmin:
		return Role(s), nil
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
