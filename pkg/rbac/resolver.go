package rbac

import (
	"errors"
	"fmt"
)

// ErrInvalidRoleSelection is returned by Resolve when the requested active
// role is not among the session's held roles. Callers are expected to fall
// back to DefaultRole rather than propagate this.
var ErrInvalidRoleSelection = errors.New("active role is not held by the session")

// OrgScope carries the organization scope inputs for capability resolution.
type OrgScope struct {
	// Primary is the session's home organization id.
	Primary string
	// OperatingOverride is the org an administrator is operating on behalf
	// of, when set. It only takes effect for admin-class active roles.
	OperatingOverride string
}

// Resolve derives the capability record for an active role. Capabilities are
// a pure function of (activeRole, roles, scope): holding additional dormant
// roles grants nothing, which keeps a multi-role user at the privilege of
// the role they are acting as.
func Resolve(activeRole string, roles []string, scope OrgScope) (RoleCapabilities, error) {
	if !ContainsRole(roles, activeRole) {
		return RoleCapabilities{}, fmt.Errorf("%w: %q", ErrInvalidRoleSelection, activeRole)
	}

	class := Classify(activeRole)
	rc := capabilityTable(class)
	rc.PrimaryOrganization = scope.Primary

	// Cross-org administration is only meaningful for admin-class roles.
	switch class {
	case ClassSystemAdmin, ClassOrgAdmin:
		rc.OperatingOrganization = scope.OperatingOverride
	case ClassVAppUser, ClassUnknown:
		// no operating-org override
	}

	return rc, nil
}

// capabilityTable is the role-to-capability mapping, consulted by the active
// role's class alone. The switch is exhaustive over RoleClass.
func capabilityTable(class RoleClass) RoleCapabilities {
	switch class {
	case ClassSystemAdmin:
		return RoleCapabilities{
			CanManageSystem:        true,
			CanManageOrganizations: true,
			CanManageUsers:         true,
			CanManageVMs:           true,
			CanManageCatalogs:      true,
			CanOperateVApps:        true,
			CanViewReports:         true,
			CanRunAutomation:       true,
		}
	case ClassOrgAdmin:
		return RoleCapabilities{
			CanManageOrganizations: true,
			CanManageUsers:         true,
			CanManageVMs:           true,
			CanManageCatalogs:      true,
			CanOperateVApps:        true,
			CanViewReports:         true,
			CanRunAutomation:       true,
		}
	case ClassVAppUser:
		return RoleCapabilities{
			CanOperateVApps: true,
		}
	case ClassUnknown:
		return RoleCapabilities{}
	default:
		return RoleCapabilities{}
	}
}
