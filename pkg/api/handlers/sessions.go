package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/client"
)

// APIError represents a structured API error response
type APIError struct {
	Code    int    `json:"code"`
	Type    string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewAPIError creates a new API error response
func NewAPIError(code int, errorType string, message string, details ...string) *APIError {
	apiErr := &APIError{
		Code:    code,
		Type:    errorType,
		Message: message,
	}
	if len(details) > 0 {
		apiErr.Details = details[0]
	}
	return apiErr
}

// SessionHandlers serves the console's session lifecycle endpoints.
type SessionHandlers struct {
	svc *auth.Service
}

// NewSessionHandlers creates a new SessionHandlers instance
func NewSessionHandlers(svc *auth.Service) *SessionHandlers {
	return &SessionHandlers{svc: svc}
}

// CreateSession handles POST /api/sessions
func (h *SessionHandlers) CreateSession(c *gin.Context) {
	username, password, err := parseBasicAuth(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Invalid or missing Authorization header"))
		return
	}

	result, err := h.svc.Login(c.Request.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, client.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Invalid username or password"))
		case errors.Is(err, auth.ErrUserInactive):
			c.JSON(http.StatusForbidden, NewAPIError(403, "Forbidden", "User account is inactive"))
		default:
			c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Authentication error"))
		}
		return
	}

	// Set Authorization header for subsequent requests
	c.Header("Authorization", "Bearer "+result.Token)
	c.JSON(http.StatusOK, result)
}

// GetCurrentSession handles GET /api/session. With ?refresh=true the session
// is re-fetched from the CloudAPI before the snapshot is returned.
func (h *SessionHandlers) GetCurrentSession(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Invalid session"))
		return
	}

	var (
		view *auth.SessionView
		err  error
	)
	if c.Query("refresh") == "true" {
		view, err = h.svc.Refresh(c.Request.Context(), claims.SessionID)
	} else {
		view, err = h.svc.View(claims.SessionID)
	}
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Session no longer active"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to load session"))
		return
	}

	c.JSON(http.StatusOK, view)
}

// DeleteSession handles DELETE /api/sessions/{sessionId}
func (h *SessionHandlers) DeleteSession(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Invalid session"))
		return
	}

	sessionID := c.Param("sessionId")
	if sessionID != claims.SessionID {
		c.JSON(http.StatusForbidden, NewAPIError(403, "Forbidden", "Cannot access another user's session"))
		return
	}

	h.svc.Logout(c.Request.Context(), sessionID, claims.Username)
	c.Status(http.StatusNoContent)
}

// parseBasicAuth extracts username and password from Basic Authentication header
func parseBasicAuth(c *gin.Context) (string, string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "", NewAPIError(401, "Unauthorized", "Authorization header required")
	}

	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", "", NewAPIError(401, "Unauthorized", "Basic authentication required")
	}

	encoded := strings.TrimPrefix(authHeader, "Basic ")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", NewAPIError(401, "Unauthorized", "Invalid base64 encoding")
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", NewAPIError(401, "Unauthorized", "Invalid credentials format")
	}

	return parts[0], parts[1], nil
}
