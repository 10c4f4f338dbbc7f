package web

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

// RouteTable maps dashboard screen names to the role required to open them.
// An empty role admits any authenticated principal.
type RouteTable struct {
	Roles map[string]domain.Role `yaml:"roles"`
}

// DefaultRouteTable is the built-in screen/role assignment. A deployment can
// override individual screens via a YAML file without touching the rest.
func DefaultRouteTable() RouteTable {
	return RouteTable{Roles: map[string]domain.Role{
		"home":                domain.RoleNone,
		"profile":             domain.RoleNone,
		"my-applications":     domain.RoleStudent,
		"my-reviews":          domain.RoleStudent,
		"payment":             domain.RoleStudent,
		"manage-applied":      domain.RoleModerator,
		"all-reviews":         domain.RoleModerator,
		"add-scholarship":     domain.RoleAdmin,
		"manage-scholarships": domain.RoleAdmin,
		"manage-users":        domain.RoleAdmin,
		"analytics":           domain.RoleAdmin,
	}}
}

// LoadRouteTable reads a YAML override file and merges it over the defaults.
// Screens absent from the file keep their default role.
func LoadRouteTable(path string) (RouteTable, error) {
	table := DefaultRouteTable()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return RouteTable{}, fmt.Errorf("failed to read route table: %w", err)
	}

	var override RouteTable
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return RouteTable{}, fmt.Errorf("failed to parse route table: %w", err)
	}

	for screen, role := range override.Roles {
		if _, ok := table.Roles[screen]; !ok {
			return RouteTable{}, fmt.Errorf("route table names unknown screen %q", screen)
		}
		if role != domain.RoleNone && !role.Valid() {
			return RouteTable{}, fmt.Errorf("route table assigns invalid role %q to %q", role, screen)
		}
		table.Roles[screen] = role
	}

	return table, nil
}

// RoleFor returns the role required for a screen. Unknown screens require the
// admin role, so a typo locks a route down rather than opening it up.
func (t RouteTable) RoleFor(screen string) domain.Role {
	role, ok := t.Roles[screen]
	if !ok {
		return domain.RoleAdmin
	}
	return role
}
