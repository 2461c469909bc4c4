package routes

import (
	"fmt"

	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

// Console route paths. The dashboard variants are the per-role landing
// pages; PathDashboard is the universal fallback.
const (
	PathLogin           = "/login"
	PathDashboard       = "/dashboard"
	PathSystemDashboard = "/dashboard/system"
	PathOrgDashboard    = "/dashboard/org"
	PathVAppDashboard   = "/dashboard/vapps"
	PathOrganizations   = "/organizations"
	PathVDCs            = "/vdcs"
	PathVMs             = "/vms"
	PathVApps           = "/vapps"
	PathCatalogs        = "/catalogs"
	PathUsers           = "/users"
	PathReports         = "/reports"
	PathAutomation      = "/automation"
	PathSystemSettings  = "/system/settings"
)

// Config describes the access requirements of one console route. Both
// requirement lists default to "pass" when empty: a route with no stated
// requirements is open to any authenticated session.
type Config struct {
	Path                 string            `json:"path"`
	RequiredRoles        []string          `json:"requiredRoles,omitempty"`
	RequiredCapabilities []rbac.Capability `json:"requiredCapabilities,omitempty"`
}

// registry is the static route table, loaded once and immutable thereafter.
var registry = []Config{
	{Path: PathDashboard},
	{Path: PathSystemDashboard, RequiredRoles: []string{session.RoleSystemAdmin}},
	{Path: PathOrgDashboard, RequiredRoles: []string{session.RoleSystemAdmin, session.RoleOrgAdmin}},
	{Path: PathVAppDashboard},
	{Path: PathOrganizations, RequiredCapabilities: []rbac.Capability{rbac.CapManageOrganizations}},
	{Path: PathVDCs, RequiredCapabilities: []rbac.Capability{rbac.CapManageOrganizations}},
	{Path: PathVMs, RequiredCapabilities: []rbac.Capability{rbac.CapManageVMs}},
	{Path: PathVApps, RequiredCapabilities: []rbac.Capability{rbac.CapOperateVApps}},
	{Path: PathCatalogs, RequiredCapabilities: []rbac.Capability{rbac.CapManageCatalogs}},
	{Path: PathUsers, RequiredCapabilities: []rbac.Capability{rbac.CapManageUsers}},
	{Path: PathReports, RequiredCapabilities: []rbac.Capability{rbac.CapViewReports}},
	{Path: PathAutomation, RequiredCapabilities: []rbac.Capability{rbac.CapRunAutomation}},
	{
		Path:                 PathSystemSettings,
		RequiredRoles:        []string{session.RoleSystemAdmin},
		RequiredCapabilities: []rbac.Capability{rbac.CapManageSystem},
	},
}

// Registry returns a copy of the static route table.
func Registry() []Config {
	out := make([]Config, len(registry))
	copy(out, registry)
	return out
}

// Find returns the route config for a path.
func Find(path string) (Config, bool) {
	for _, rc := range registry {
		if rc.Path == path {
			return rc, true
		}
	}
	return Config{}, false
}

// ValidateRegistry rejects route tables that reference undefined capability
// keys or duplicate paths. It runs at startup and in tests so a typo in the
// table can never silently lock a page open or closed at request time.
func ValidateRegistry(reg []Config) error {
	seen := make(map[string]struct{}, len(reg))
	for _, rc := range reg {
		if rc.Path == "" {
			return fmt.Errorf("route with empty path")
		}
		if _, dup := seen[rc.Path]; dup {
			return fmt.Errorf("duplicate route path %q", rc.Path)
		}
		seen[rc.Path] = struct{}{}
		for _, cap := range rc.RequiredCapabilities {
			if !cap.Valid() {
				return fmt.Errorf("route %q references undefined capability %q", rc.Path, cap)
			}
		}
	}
	return nil
}
