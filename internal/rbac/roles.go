// Package rbac implements a closed role/capability model. Roles are a
// fixed enum and each maps to a fixed capability set computed once at
// package init, so authorization checks never compare raw role strings.
package rbac

import "fmt"

// Role enumerates application roles.
type Role string

const (
	RoleMonter     Role = "monter"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleDirector   Role = "director"
)

// Capability names an atomic permission, formatted "resource:action".
type Capability string

const (
	CapRecordsWrite    Capability = "records:write"
	CapRecordsReadAll  Capability = "records:read-all"
	CapClosingsSubmit  Capability = "closings:submit"
	CapClosingsApprove Capability = "closings:approve"
	CapClosingsLock    Capability = "closings:lock"
	CapInvoicesRead    Capability = "invoices:read"
	CapInvoicesManage  Capability = "invoices:manage"
	CapExportsRun      Capability = "exports:run"
	CapBackupRun       Capability = "backup:run"
	CapMasterdataRead  Capability = "masterdata:read"
	CapMasterdataWrite Capability = "masterdata:write"
	CapProfilesManage  Capability = "profiles:manage"
	CapFinanceRead     Capability = "finance:read"
)

var roleCapabilities = map[Role][]Capability{
	RoleMonter: {
		CapRecordsWrite,
		CapClosingsSubmit,
		CapMasterdataRead,
	},
	RoleManager: {
		CapRecordsWrite,
		CapRecordsReadAll,
		CapClosingsSubmit,
		CapClosingsApprove,
		CapExportsRun,
		CapMasterdataRead,
	},
	RoleAdmin: {
		CapRecordsWrite,
		CapRecordsReadAll,
		CapClosingsSubmit,
		CapClosingsApprove,
		CapClosingsLock,
		CapInvoicesRead,
		CapInvoicesManage,
		CapExportsRun,
		CapBackupRun,
		CapMasterdataRead,
		CapMasterdataWrite,
		CapProfilesManage,
		CapFinanceRead,
	},
	RoleAccountant: {
		CapRecordsReadAll,
		CapInvoicesRead,
		CapInvoicesManage,
		CapExportsRun,
		CapMasterdataRead,
		CapFinanceRead,
	},
	RoleDirector: {
		CapRecordsReadAll,
		CapInvoicesRead,
		CapMasterdataRead,
		CapFinanceRead,
	},
}

var capabilitySets = func() map[Role]map[Capability]struct{} {
	sets := make(map[Role]map[Capability]struct{}, len(roleCapabilities))
	for role, caps := range roleCapabilities {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		sets[role] = set
	}
	return sets
}()

// ParseRole validates a stored role value.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if _, ok := capabilitySets[role]; !ok {
		return "", fmt.Errorf("rbac: unknown role %q", raw)
	}
	return role, nil
}

// Can reports whether the role grants the capability.
func Can(role Role, cap Capability) bool {
	set, ok := capabilitySets[role]
	if !ok {
		return false
	}
	_, ok = set[cap]
	return ok
}

// Capabilities returns the capability list for a role.
func Capabilities(role Role) []Capability {
	caps := roleCapabilities[role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
