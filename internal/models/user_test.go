package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRole(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleManager, RoleDispatcher, RoleViewer} {
		assert.True(t, IsValidRole(r), r)
	}
	for _, r := range []Role{"operator", "", "Admin"} {
		assert.False(t, IsValidRole(r), r)
	}
}

func TestRolePermissionMatrix(t *testing.T) {
	actions := []string{
		ActionViewTrips, ActionCreateTrip, ActionUpdateTrip, ActionCloseTrip,
		ActionViewReports, ActionExportReport, ActionManageUsers,
	}
	// columns follow actions
	matrix := map[Role][]bool{
		RoleAdmin:      {true, true, true, true, true, true, true},
		RoleManager:    {true, true, true, true, true, true, false},
		RoleDispatcher: {true, true, true, false, true, false, false},
		RoleViewer:     {true, false, false, false, true, false, false},
		"operator":     {false, false, false, false, false, false, false},
	}
	for role, want := range matrix {
		for i, action := range actions {
			assert.Equal(t, want[i], role.HasPermission(action), "%s %s", role, action)
		}
	}
}
