package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
)

// RoleHandlers serves the role-switcher endpoints.
type RoleHandlers struct {
	svc      *auth.Service
	registry *auth.Registry
}

// NewRoleHandlers creates a new RoleHandlers instance
func NewRoleHandlers(svc *auth.Service, registry *auth.Registry) *RoleHandlers {
	return &RoleHandlers{svc: svc, registry: registry}
}

// RoleListResponse describes the roles a session may act as.
type RoleListResponse struct {
	ActiveRole     string   `json:"activeRole"`
	AvailableRoles []string `json:"availableRoles"`
	IsMultiRole    bool     `json:"isMultiRole"`
}

// GetRoles handles GET /api/session/roles
func (h *RoleHandlers) GetRoles(c *gin.Context) {
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

	c.JSON(http.StatusOK, RoleListResponse{
		ActiveRole:     entry.Context.ActiveRole(),
		AvailableRoles: entry.Context.AvailableRoles(),
		IsMultiRole:    entry.Context.IsMultiRole(),
	})
}

// SwitchRoleRequest is the body for PUT /api/session/active-role
type SwitchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SwitchRole handles PUT /api/session/active-role. A target role the session
// does not hold is rejected with 400; the active role is unchanged.
func (h *RoleHandlers) SwitchRole(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Invalid session"))
		return
	}

	var req SwitchRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "Request body must include a role"))
		return
	}

	result, err := h.svc.SwitchRole(claims.SessionID, claims.Username, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrInvalidRoleSelection):
			c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "Session does not hold the requested role"))
		case errors.Is(err, auth.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Session no longer active"))
		default:
			c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to switch role"))
		}
		return
	}

	c.Header("Authorization", "Bearer "+result.Token)
	c.JSON(http.StatusOK, result)
}
