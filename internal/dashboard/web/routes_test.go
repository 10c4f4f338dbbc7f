package web

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

func writeTableFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultRouteTable(t *testing.T) {
	t.Parallel()

	table := DefaultRouteTable()

	require.Equal(t, domain.RoleNone, table.RoleFor("profile"))
	require.Equal(t, domain.RoleStudent, table.RoleFor("my-applications"))
	require.Equal(t, domain.RoleModerator, table.RoleFor("all-reviews"))
	require.Equal(t, domain.RoleAdmin, table.RoleFor("manage-users"))
}

func TestRoleForUnknownScreenLocksDown(t *testing.T) {
	t.Parallel()

	require.Equal(t, domain.RoleAdmin, DefaultRouteTable().RoleFor("no-such-screen"))
}

func TestLoadRouteTableMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := writeTableFile(t, `
roles:
  all-reviews: admin
  payment: ""
`)

	table, err := LoadRouteTable(path)
	require.NoError(t, err)

	// Overridden screens take the new role.
	require.Equal(t, domain.RoleAdmin, table.RoleFor("all-reviews"))
	require.Equal(t, domain.RoleNone, table.RoleFor("payment"))
	// Untouched screens keep their defaults.
	require.Equal(t, domain.RoleStudent, table.RoleFor("my-reviews"))
}

func TestLoadRouteTableRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown screen", "roles:\n  no-such-screen: admin\n"},
		{"invalid role", "roles:\n  payment: superuser\n"},
		{"malformed yaml", "roles: [not, a, map\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadRouteTable(writeTableFile(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadRouteTableEmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	table, err := LoadRouteTable("")
	require.NoError(t, err)
	require.Equal(t, DefaultRouteTable(), table)
}

func TestLoadRouteTableMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadRouteTable(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
