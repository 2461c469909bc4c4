package routes

import "github.com/mhrivnak/ssvirt-console/pkg/rbac"

// CanAccess is the route authorization predicate. The roles clause passes
// when the route lists no roles or the user holds any listed role (lenient
// name matching); the capabilities clause passes when the route lists no
// capabilities or every listed one is granted. Both must pass.
//
// CanAccess never errors and performs no navigation; turning a deny into an
// access-denied view or a redirect is the caller's job.
func CanAccess(route Config, userRoles []string, caps rbac.RoleCapabilities) bool {
	hasRoles := len(route.RequiredRoles) == 0
	if !hasRoles {
		for _, required := range route.RequiredRoles {
			if rbac.ContainsRole(userRoles, required) {
				hasRoles = true
				break
			}
		}
	}

	hasCapabilities := caps.HasAll(route.RequiredCapabilities)

	return hasRoles && hasCapabilities
}

// DefaultRouteForRoles returns the landing route for the highest-priority
// role held. It is total: an empty or unrecognized role set lands on the
// generic dashboard, which backs both the post-login redirect and the
// "access denied, go somewhere safe" recovery.
func DefaultRouteForRoles(roles []string) string {
	switch rbac.Classify(rbac.DefaultRole(roles)) {
	case rbac.ClassSystemAdmin:
		return PathSystemDashboard
	case rbac.ClassOrgAdmin:
		return PathOrgDashboard
	case rbac.ClassVAppUser:
		return PathVAppDashboard
	case rbac.ClassUnknown:
		return PathDashboard
	default:
		return PathDashboard
	}
}
