package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

func capsFor(t *testing.T, role string) rbac.RoleCapabilities {
	t.Helper()
	caps, err := rbac.Resolve(role, []string{role}, rbac.OrgScope{Primary: "org-1"})
	require.NoError(t, err)
	return caps
}

func findItem(items []Item, id string) (Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

func TestFilterParentGatesChildren(t *testing.T) {
	tree := []Item{
		{
			ID:                   "admin",
			Label:                "Administration",
			RequiredCapabilities: []rbac.Capability{rbac.CapManageOrganizations},
			Children: []Item{
				// The child declares no requirement of its own; a hidden
				// parent must still drop it.
				{ID: "open-child", Label: "Open Child"},
			},
		},
	}

	filtered := Filter(tree, rbac.RoleCapabilities{})
	assert.Empty(t, filtered)
}

func TestFilterKeepsQualifyingSubtree(t *testing.T) {
	caps := capsFor(t, session.RoleOrgAdmin)
	filtered := Filter(DefaultMenu(), caps)

	admin, found := findItem(filtered, "administration")
	require.True(t, found)
	_, found = findItem(admin.Children, "organizations")
	assert.True(t, found)
	_, found = findItem(admin.Children, "users")
	assert.True(t, found)
}

func TestFilterDropsWithinVisibleParent(t *testing.T) {
	// vApp User sees the compute group but not the VM management leaf.
	caps := capsFor(t, session.RoleVAppUser)
	filtered := Filter(DefaultMenu(), caps)

	compute, found := findItem(filtered, "compute")
	require.True(t, found)
	_, found = findItem(compute.Children, "vapps")
	assert.True(t, found)
	_, found = findItem(compute.Children, "vms")
	assert.False(t, found)

	_, found = findItem(filtered, "system")
	assert.False(t, found)
	_, found = findItem(filtered, "administration")
	assert.False(t, found)
}

func TestFilterSystemAdminSeesEverything(t *testing.T) {
	caps := capsFor(t, session.RoleSystemAdmin)
	full := DefaultMenu()
	filtered := Filter(full, caps)

	assert.Len(t, filtered, len(full))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	original := DefaultMenu()
	compute, found := findItem(original, "compute")
	require.True(t, found)
	childCountBefore := len(compute.Children)

	// Filter under a capability set that prunes children, then verify the
	// input tree still holds them.
	_ = Filter(original, capsFor(t, session.RoleVAppUser))

	compute, found = findItem(original, "compute")
	require.True(t, found)
	assert.Len(t, compute.Children, childCountBefore)
}

func TestFilterEmptyCapabilities(t *testing.T) {
	filtered := Filter(DefaultMenu(), rbac.RoleCapabilities{})

	// Only unguarded items survive an all-false capability record.
	require.Len(t, filtered, 1)
	assert.Equal(t, "dashboard", filtered[0].ID)
}
