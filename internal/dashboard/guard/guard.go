// Package guard decides, per guarded route, whether to render it, show a
// loading placeholder, deny access, or redirect to login.
package guard

import (
	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

// State is a route guard decision. Exactly one state holds per evaluation.
type State int

const (
	// StateAuthLoading: the session store has not settled yet.
	StateAuthLoading State = iota
	// StateRoleLoading: a principal exists but its role has not resolved.
	StateRoleLoading
	// StateAllowed: render the route.
	StateAllowed
	// StateDenied: render the forbidden view. Terminal, no auto-retry.
	StateDenied
	// StateUnauthenticated: redirect to login, carrying the original path.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthLoading:
		return "auth_loading"
	case StateRoleLoading:
		return "role_loading"
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Input is the full snapshot a decision depends on.
type Input struct {
	AuthLoading bool
	Principal   *domain.Principal
	RoleLoading bool
	Role        domain.Role

	// Required is the role the route demands. RoleNone means any
	// authenticated principal is allowed.
	Required domain.Role
}

// Evaluate is a pure function of its input. The generic authentication check
// always precedes the role check, so role guards are effectively nested
// inside the auth guard.
func Evaluate(in Input) State {
	if in.AuthLoading {
		return StateAuthLoading
	}
	if in.Principal == nil {
		return StateUnauthenticated
	}
	if in.Required == domain.RoleNone {
		return StateAllowed
	}
	if in.RoleLoading {
		return StateRoleLoading
	}
	if in.Role == in.Required {
		return StateAllowed
	}
	return StateDenied
}
