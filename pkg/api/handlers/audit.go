package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/api/types"
	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
	"github.com/mhrivnak/ssvirt-console/pkg/database/repositories"
)

// AuditHandlers serves the access-control audit log.
type AuditHandlers struct {
	auditRepo *repositories.AuditRepository
}

// NewAuditHandlers creates a new AuditHandlers instance
func NewAuditHandlers(auditRepo *repositories.AuditRepository) *AuditHandlers {
	return &AuditHandlers{auditRepo: auditRepo}
}

// ListAuditEvents handles GET /api/audit. Access is gated by the
// canManageSystem capability at the router.
func (h *AuditHandlers) ListAuditEvents(c *gin.Context) {
	limitStr := c.DefaultQuery("page_size", "25")
	pageStr := c.DefaultQuery("page", "1")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	offset := (page - 1) * limit

	totalCount, err := h.auditRepo.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to count audit events"))
		return
	}

	var events []models.AuditEvent
	if username := c.Query("username"); username != "" {
		events, err = h.auditRepo.ListByUsername(username, limit, offset)
	} else {
		events, err = h.auditRepo.List(limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to retrieve audit events"))
		return
	}

	c.JSON(http.StatusOK, types.NewPage(events, page, limit, totalCount))
}
