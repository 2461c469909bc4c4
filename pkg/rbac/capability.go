package rbac

import "strings"

// Capability names a single console permission. The set is closed: route
// configs and navigation items may only reference the constants below, and
// routes.ValidateRegistry enforces that at startup.
type Capability string

const (
	CapManageSystem        Capability = "canManageSystem"
	CapManageOrganizations Capability = "canManageOrganizations"
	CapManageUsers         Capability = "canManageUsers"
	CapManageVMs           Capability = "canManageVMs"
	CapManageCatalogs      Capability = "canManageCatalogs"
	CapOperateVApps        Capability = "canOperateVApps"
	CapViewReports         Capability = "canViewReports"
	CapRunAutomation       Capability = "canRunAutomation"
)

// AllCapabilities lists every defined capability, in a stable order used by
// Fingerprint.
var AllCapabilities = []Capability{
	CapManageSystem,
	CapManageOrganizations,
	CapManageUsers,
	CapManageVMs,
	CapManageCatalogs,
	CapOperateVApps,
	CapViewReports,
	CapRunAutomation,
}

// Valid reports whether c is one of the defined capabilities.
func (c Capability) Valid() bool {
	switch c {
	case CapManageSystem, CapManageOrganizations, CapManageUsers,
		CapManageVMs, CapManageCatalogs, CapOperateVApps,
		CapViewReports, CapRunAutomation:
		return true
	default:
		return false
	}
}

// RoleCapabilities is the full capability record derived from an active
// role. It is a value type: derived, never mutated in place, always
// recomputed from (active role, session scope).
type RoleCapabilities struct {
	CanManageSystem        bool `json:"canManageSystem"`
	CanManageOrganizations bool `json:"canManageOrganizations"`
	CanManageUsers         bool `json:"canManageUsers"`
	CanManageVMs           bool `json:"canManageVMs"`
	CanManageCatalogs      bool `json:"canManageCatalogs"`
	CanOperateVApps        bool `json:"canOperateVApps"`
	CanViewReports         bool `json:"canViewReports"`
	CanRunAutomation       bool `json:"canRunAutomation"`

	// PrimaryOrganization is always the session's home org id.
	// OperatingOrganization is set only while an admin-class role operates
	// on behalf of another organization.
	PrimaryOrganization   string `json:"primaryOrganization"`
	OperatingOrganization string `json:"operatingOrganization,omitempty"`
}

// Has reports whether the named capability is granted. The switch is
// exhaustive over the Capability constants; an undefined capability is never
// granted.
func (rc RoleCapabilities) Has(c Capability) bool {
	switch c {
	case CapManageSystem:
		return rc.CanManageSystem
	case CapManageOrganizations:
		return rc.CanManageOrganizations
	case CapManageUsers:
		return rc.CanManageUsers
	case CapManageVMs:
		return rc.CanManageVMs
	case CapManageCatalogs:
		return rc.CanManageCatalogs
	case CapOperateVApps:
		return rc.CanOperateVApps
	case CapViewReports:
		return rc.CanViewReports
	case CapRunAutomation:
		return rc.CanRunAutomation
	default:
		return false
	}
}

// HasAll reports whether every listed capability is granted. An empty list
// passes.
func (rc RoleCapabilities) HasAll(caps []Capability) bool {
	for _, c := range caps {
		if !rc.Has(c) {
			return false
		}
	}
	return true
}

// Fingerprint returns a stable string encoding of the capability record,
// used as a cache-key component so role-scoped queries never serve results
// across capability changes.
func (rc RoleCapabilities) Fingerprint() string {
	var b strings.Builder
	b.Grow(len(AllCapabilities) + len(rc.PrimaryOrganization) + len(rc.OperatingOrganization) + 2)
	for _, c := range AllCapabilities {
		if rc.Has(c) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte(':')
	b.WriteString(rc.PrimaryOrganization)
	b.WriteByte(':')
	b.WriteString(rc.OperatingOrganization)
	return b.String()
}
