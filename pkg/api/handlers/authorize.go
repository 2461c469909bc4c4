package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/routes"
)

// AuthorizeHandlers answers route-authorization queries for the router
// integration layer in the browser.
type AuthorizeHandlers struct {
	svc      *auth.Service
	registry *auth.Registry
}

// NewAuthorizeHandlers creates a new AuthorizeHandlers instance
func NewAuthorizeHandlers(svc *auth.Service, registry *auth.Registry) *AuthorizeHandlers {
	return &AuthorizeHandlers{svc: svc, registry: registry}
}

// RouteDecision is the guard's answer for one route. DefaultRoute gives the
// browser somewhere safe to send a denied user.
type RouteDecision struct {
	Path         string `json:"path"`
	Allowed      bool   `json:"allowed"`
	DefaultRoute string `json:"defaultRoute"`
}

// AuthorizeRoute handles GET /api/routes/authorize?path=...
// A denial is a normal 200 response with allowed=false, not an error: the
// browser turns it into an access-denied view with a recovery action.
func (h *AuthorizeHandlers) AuthorizeRoute(c *gin.Context) {
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

	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "path query parameter required"))
		return
	}

	route, found := routes.Find(path)
	if !found {
		c.JSON(http.StatusNotFound, NewAPIError(404, "Not Found", "Unknown route", path))
		return
	}

	userRoles := entry.Context.AvailableRoles()
	decision := RouteDecision{
		Path:         path,
		Allowed:      routes.CanAccess(route, userRoles, entry.Context.Capabilities()),
		DefaultRoute: routes.DefaultRouteForRoles(userRoles),
	}

	if !decision.Allowed {
		h.svc.RecordRouteDenied(claims.Username, claims.SessionID, path)
	}

	c.JSON(http.StatusOK, decision)
}

// ListRoutes handles GET /api/routes, returning every console route with the
// session's access decision. The browser uses it to precompute guards
// instead of asking per navigation.
func (h *AuthorizeHandlers) ListRoutes(c *gin.Context) {
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

	userRoles := entry.Context.AvailableRoles()
	caps := entry.Context.Capabilities()
	defaultRoute := routes.DefaultRouteForRoles(userRoles)

	decisions := make([]RouteDecision, 0)
	for _, route := range routes.Registry() {
		decisions = append(decisions, RouteDecision{
			Path:         route.Path,
			Allowed:      routes.CanAccess(route, userRoles, caps),
			DefaultRoute: defaultRoute,
		})
	}

	c.JSON(http.StatusOK, gin.H{"routes": decisions})
}
