// Package nav derives the console's navigation menu from the current
// capability record. Filtering is a pure pre-order prune: an item the user
// cannot see is dropped along with its whole subtree.
package nav

import (
	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
	"github.com/mhrivnak/ssvirt-console/pkg/routes"
)

// Item is one node of the navigation tree. Route is empty for pure grouping
// nodes. RequiredCapabilities gates visibility of the node and everything
// under it.
type Item struct {
	ID                   string            `json:"id"`
	Label                string            `json:"label"`
	Route                string            `json:"route,omitempty"`
	RequiredCapabilities []rbac.Capability `json:"requiredCapabilities,omitempty"`
	Children             []Item            `json:"children,omitempty"`
}

// Filter prunes the tree to the items visible under caps. An item is visible
// iff it declares no required capabilities or every one of them is granted.
// A hidden parent hides all of its children regardless of their own
// requirements: the parent gates the subtree.
//
// Filter returns a freshly built tree and never mutates its input, so
// consumers can keep references to a previous tree across a role switch.
func Filter(items []Item, caps rbac.RoleCapabilities) []Item {
	var out []Item
	for _, item := range items {
		if !caps.HasAll(item.RequiredCapabilities) {
			continue
		}
		copied := item
		copied.Children = Filter(item.Children, caps)
		out = append(out, copied)
	}
	return out
}

// DefaultMenu builds the console's full (unfiltered) navigation tree. The
// capability requirements mirror the route table; Filter applies them per
// session.
func DefaultMenu() []Item {
	return []Item{
		{
			ID:    "dashboard",
			Label: "Dashboard",
			Route: routes.PathDashboard,
		},
		{
			ID:                   "compute",
			Label:                "Compute",
			RequiredCapabilities: []rbac.Capability{rbac.CapOperateVApps},
			Children: []Item{
				{
					ID:    "vapps",
					Label: "vApps",
					Route: routes.PathVApps,
				},
				{
					ID:                   "vms",
					Label:                "Virtual Machines",
					Route:                routes.PathVMs,
					RequiredCapabilities: []rbac.Capability{rbac.CapManageVMs},
				},
			},
		},
		{
			ID:                   "catalogs",
			Label:                "Catalogs",
			Route:                routes.PathCatalogs,
			RequiredCapabilities: []rbac.Capability{rbac.CapManageCatalogs},
		},
		{
			ID:                   "administration",
			Label:                "Administration",
			RequiredCapabilities: []rbac.Capability{rbac.CapManageOrganizations},
			Children: []Item{
				{
					ID:    "organizations",
					Label: "Organizations",
					Route: routes.PathOrganizations,
				},
				{
					ID:    "vdcs",
					Label: "Virtual Data Centers",
					Route: routes.PathVDCs,
				},
				{
					ID:                   "users",
					Label:                "Users",
					Route:                routes.PathUsers,
					RequiredCapabilities: []rbac.Capability{rbac.CapManageUsers},
				},
			},
		},
		{
			ID:                   "automation",
			Label:                "Automation",
			Route:                routes.PathAutomation,
			RequiredCapabilities: []rbac.Capability{rbac.CapRunAutomation},
		},
		{
			ID:                   "reports",
			Label:                "Reports",
			Route:                routes.PathReports,
			RequiredCapabilities: []rbac.Capability{rbac.CapViewReports},
		},
		{
			ID:                   "system",
			Label:                "System Settings",
			Route:                routes.PathSystemSettings,
			RequiredCapabilities: []rbac.Capability{rbac.CapManageSystem},
		},
	}
}
