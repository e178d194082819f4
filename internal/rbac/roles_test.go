package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoleRejectsUnknown(t *testing.T) {
	_, err := ParseRole("superuser")
	require.Error(t, err)

	role, err := ParseRole("monter")
	require.NoError(t, err)
	require.Equal(t, RoleMonter, role)
}

func TestCapabilityBoundaries(t *testing.T) {
	require.True(t, Can(RoleMonter, CapRecordsWrite))
	require.True(t, Can(RoleMonter, CapClosingsSubmit))
	require.False(t, Can(RoleMonter, CapClosingsApprove))
	require.False(t, Can(RoleMonter, CapClosingsLock))

	require.True(t, Can(RoleManager, CapClosingsApprove))
	require.False(t, Can(RoleManager, CapClosingsLock))
	require.False(t, Can(RoleManager, CapBackupRun))

	require.True(t, Can(RoleAdmin, CapClosingsLock))
	require.True(t, Can(RoleAdmin, CapBackupRun))

	require.True(t, Can(RoleAccountant, CapInvoicesManage))
	require.False(t, Can(RoleAccountant, CapClosingsApprove))

	require.True(t, Can(RoleDirector, CapFinanceRead))
	require.False(t, Can(RoleDirector, CapInvoicesManage))
	require.False(t, Can(RoleDirector, CapRecordsWrite))
}

func TestCapabilitiesCopy(t *testing.T) {
	caps := Capabilities(RoleMonter)
	require.NotEmpty(t, caps)
	caps[0] = Capability("tampered")
	require.NotContains(t, Capabilities(RoleMonter), Capability("tampered"))
}
