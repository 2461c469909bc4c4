package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/nav"
)

// NavigationHandlers serves the capability-filtered navigation tree.
type NavigationHandlers struct {
	registry *auth.Registry
}

// NewNavigationHandlers creates a new NavigationHandlers instance
func NewNavigationHandlers(registry *auth.Registry) *NavigationHandlers {
	return &NavigationHandlers{registry: registry}
}

// GetNavigation handles GET /api/navigation. The tree is rebuilt per request
// from the session's current capabilities, so a role switch is reflected on
// the next fetch without any cache coupling.
func (h *NavigationHandlers) GetNavigation(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Invalid session"))
		return
	}

	entry, ok := h.registry.Get(claims.SessionID)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Session no longer active"))
		return
	}

	items := nav.Filter(nav.DefaultMenu(), entry.Context.Capabilities())
	if items == nil {
		items = []nav.Item{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
