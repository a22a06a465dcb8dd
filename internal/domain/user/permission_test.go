package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleAdmin, PermissionLeaveBalanceReset))
	assert.True(t, HasPermission(RoleManager, PermissionAttendanceApprove))
	assert.False(t, HasPermission(RoleManager, PermissionLeavePolicyManage))
	assert.False(t, HasPermission(RoleEmployee, PermissionLeaveApprove))
	assert.False(t, HasPermission(Role("contractor"), PermissionLeaveCreate))
}

func TestIdentity_CanActFor(t *testing.T) {
	employee := Identity{UserID: "u-1", Role: RoleEmployee}
	manager := Identity{UserID: "m-1", Role: RoleManager}

	assert.True(t, employee.CanActFor("u-1"))
	assert.False(t, employee.CanActFor("u-2"))
	assert.True(t, manager.CanActFor("u-2"))
	assert.False(t, employee.IsAdmin())
	assert.True(t, Identity{Role: RoleAdmin}.IsManager())
}
