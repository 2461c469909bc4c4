package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/cache"
)

// ResourceAPI is the slice of the CloudAPI client the resource handlers
// read through.
type ResourceAPI interface {
	ListOrganizations(ctx context.Context, token string) (json.RawMessage, error)
	ListVDCs(ctx context.Context, token string) (json.RawMessage, error)
}

// ResourceHandlers proxies role-scoped CloudAPI reads through the session's
// query cache. Cache keys carry the active role and the capability
// fingerprint, so a role switch can never be served data fetched under the
// previous role.
type ResourceHandlers struct {
	api      ResourceAPI
	registry *auth.Registry
}

// NewResourceHandlers creates a new ResourceHandlers instance. api may be
// nil in dev mode.
func NewResourceHandlers(api ResourceAPI, registry *auth.Registry) *ResourceHandlers {
	return &ResourceHandlers{api: api, registry: registry}
}

// ListOrganizations handles GET /api/console/organizations
func (h *ResourceHandlers) ListOrganizations(c *gin.Context) {
	h.cachedRead(c, "organizations", func(ctx context.Context, token string) (json.RawMessage, error) {
		return h.api.ListOrganizations(ctx, token)
	})
}

// ListVDCs handles GET /api/console/vdcs
func (h *ResourceHandlers) ListVDCs(c *gin.Context) {
	h.cachedRead(c, "vdcs", func(ctx context.Context, token string) (json.RawMessage, error) {
		return h.api.ListVDCs(ctx, token)
	})
}

func (h *ResourceHandlers) cachedRead(c *gin.Context, resource string, load func(ctx context.Context, token string) (json.RawMessage, error)) {
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

	if h.api == nil || entry.UpstreamToken == "" {
		c.JSON(http.StatusServiceUnavailable, NewAPIError(503, "Service Unavailable", "CloudAPI upstream not configured"))
		return
	}

	// Drop stale entries if the capability generation moved since the last
	// read (role switch or operating-org change).
	entry.Cache.SyncGeneration(entry.Context.Generation())

	key := cache.Key{
		Resource:              resource,
		ActiveRole:            entry.Context.ActiveRole(),
		CapabilityFingerprint: entry.Context.Capabilities().Fingerprint(),
		Params:                c.Request.URL.RawQuery,
	}

	value, err := entry.Cache.Fetch(c.Request.Context(), key, func(ctx context.Context) (any, error) {
		return load(ctx, entry.UpstreamToken)
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, NewAPIError(502, "Bad Gateway", "CloudAPI request failed", err.Error()))
		return
	}

	raw, ok := value.(json.RawMessage)
	if !ok {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Unexpected cache value type"))
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}
