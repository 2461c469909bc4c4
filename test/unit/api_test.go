package unit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mhrivnak/ssvirt-console/pkg/api"
	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/database"
	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
	"github.com/mhrivnak/ssvirt-console/pkg/database/repositories"
	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

type gateway struct {
	router http.Handler
	users  *repositories.ConsoleUserRepository
	audit  *repositories.AuditRepository
}

func setupGateway(t *testing.T) *gateway {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	db := &database.DB{DB: gormDB}
	require.NoError(t, db.AutoMigrate())

	users := repositories.NewConsoleUserRepository(gormDB)
	prefs := repositories.NewPreferenceRepository(gormDB)
	audit := repositories.NewAuditRepository(gormDB)

	cfg := devConfig()
	jwtManager := auth.NewJWTManager("test-secret-key", time.Hour)
	registry := auth.NewRegistry()
	svc := auth.NewService(cfg, nil, users, prefs, audit, jwtManager, registry)

	server, err := api.NewServer(cfg, db, svc, jwtManager, registry, nil, audit)
	require.NoError(t, err)

	gw := &gateway{router: server.Router(), users: users, audit: audit}
	gw.seed(t, "sysadmin", []string{session.RoleSystemAdmin})
	gw.seed(t, "operator", []string{session.RoleOrgAdmin, session.RoleVAppUser})
	gw.seed(t, "vappuser", []string{session.RoleVAppUser})
	return gw
}

func (g *gateway) seed(t *testing.T, username string, roles []string) {
	t.Helper()
	user := &models.ConsoleUser{
		Username: username,
		OrgID:    "urn:vcloud:org:00000000-0000-0000-0000-0000000000aa",
		OrgName:  "Acme",
		Enabled:  true,
	}
	user.SetRoleNames(roles)
	require.NoError(t, user.SetPassword("password"))
	require.NoError(t, g.users.Create(user))
}

func (g *gateway) do(method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// login authenticates via Basic auth and returns the console token and the
// decoded response body.
func (g *gateway) login(t *testing.T, username, password string) (string, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.SetBasicAuth(username, password)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	token := body["token"].(string)
	require.NotEmpty(t, token)
	return token, body
}

func TestHealthEndpoints(t *testing.T) {
	gw := setupGateway(t)

	w := gw.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = gw.do(http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin(t *testing.T) {
	gw := setupGateway(t)

	t.Run("missing credentials", func(t *testing.T) {
		w := gw.do(http.MethodPost, "/api/sessions", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		req.SetBasicAuth("sysadmin", "wrong")
		w := httptest.NewRecorder()
		gw.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		req.SetBasicAuth("sysadmin", "password")
		w := httptest.NewRecorder()
		gw.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Contains(t, w.Header().Get("Authorization"), "Bearer ")

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, session.RoleSystemAdmin, body["activeRole"])
		assert.Equal(t, "/dashboard/system", body["defaultRoute"])
		assert.Equal(t, false, body["isMultiRole"])

		caps := body["capabilities"].(map[string]any)
		assert.Equal(t, true, caps["canManageSystem"])
	})
}

func TestSessionEndpoint(t *testing.T) {
	gw := setupGateway(t)
	token, _ := gw.login(t, "operator", "password")

	t.Run("no token", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/session", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/session", nil, bearer("garbage"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/session", nil, bearer(token))
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, session.RoleOrgAdmin, body["activeRole"])
		assert.Equal(t, true, body["isMultiRole"])
	})
}

func navItemIDs(t *testing.T, w *httptest.ResponseRecorder) ([]string, map[string][]string) {
	t.Helper()
	var body struct {
		Items []struct {
			ID       string `json:"id"`
			Children []struct {
				ID string `json:"id"`
			} `json:"children"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	ids := make([]string, 0, len(body.Items))
	children := make(map[string][]string)
	for _, item := range body.Items {
		ids = append(ids, item.ID)
		for _, child := range item.Children {
			children[item.ID] = append(children[item.ID], child.ID)
		}
	}
	return ids, children
}

func TestNavigationFilteredByRole(t *testing.T) {
	gw := setupGateway(t)

	t.Run("vapp user", func(t *testing.T) {
		token, _ := gw.login(t, "vappuser", "password")
		w := gw.do(http.MethodGet, "/api/navigation", nil, bearer(token))
		require.Equal(t, http.StatusOK, w.Code)

		ids, children := navItemIDs(t, w)
		assert.Contains(t, ids, "dashboard")
		assert.Contains(t, ids, "compute")
		assert.NotContains(t, ids, "administration")
		assert.NotContains(t, ids, "system")

		assert.Contains(t, children["compute"], "vapps")
		assert.NotContains(t, children["compute"], "vms")
	})

	t.Run("system admin", func(t *testing.T) {
		token, _ := gw.login(t, "sysadmin", "password")
		w := gw.do(http.MethodGet, "/api/navigation", nil, bearer(token))
		require.Equal(t, http.StatusOK, w.Code)

		ids, _ := navItemIDs(t, w)
		assert.Contains(t, ids, "administration")
		assert.Contains(t, ids, "system")
	})
}

func TestRouteAuthorization(t *testing.T) {
	gw := setupGateway(t)
	vappToken, _ := gw.login(t, "vappuser", "password")
	adminToken, _ := gw.login(t, "sysadmin", "password")

	t.Run("missing path", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/routes/authorize", nil, bearer(vappToken))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown path", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/routes/authorize?path=/nope", nil, bearer(vappToken))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("denied route", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/routes/authorize?path=/vms", nil, bearer(vappToken))
		require.Equal(t, http.StatusOK, w.Code)

		var decision map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.Equal(t, false, decision["allowed"])
		assert.Equal(t, "/dashboard/vapps", decision["defaultRoute"])

		// The denial lands in the audit log.
		events, err := gw.audit.ListByUsername("vappuser", 10, 0)
		require.NoError(t, err)
		var denied bool
		for _, event := range events {
			if event.Action == models.AuditRouteDenied && event.Detail == "/vms" {
				denied = true
			}
		}
		assert.True(t, denied)
	})

	t.Run("allowed route", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/routes/authorize?path=/vms", nil, bearer(adminToken))
		require.Equal(t, http.StatusOK, w.Code)

		var decision map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.Equal(t, true, decision["allowed"])
	})

	t.Run("list all routes", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/routes", nil, bearer(adminToken))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Routes []map[string]any `json:"routes"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Routes)
		for _, decision := range body.Routes {
			assert.Equal(t, true, decision["allowed"], "path %v", decision["path"])
		}
	})
}

func TestRoleSwitch(t *testing.T) {
	gw := setupGateway(t)
	token, _ := gw.login(t, "operator", "password")

	t.Run("roles listing", func(t *testing.T) {
		w := gw.do(http.MethodGet, "/api/session/roles", nil, bearer(token))
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, session.RoleOrgAdmin, body["activeRole"])
		assert.Equal(t, true, body["isMultiRole"])
	})

	t.Run("unheld role rejected", func(t *testing.T) {
		payload := bytes.NewBufferString(`{"role":"System Administrator"}`)
		w := gw.do(http.MethodPut, "/api/session/active-role", payload, bearer(token))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("switch and registry authority", func(t *testing.T) {
		// Before the switch the acting role grants org administration, so the
		// guarded resource route passes the capability gate. Dev mode has no
		// upstream, which surfaces as 503 after the gate.
		w := gw.do(http.MethodGet, "/api/console/organizations", nil, bearer(token))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		payload := bytes.NewBufferString(`{"role":"vApp User"}`)
		w = gw.do(http.MethodPut, "/api/session/active-role", payload, bearer(token))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, session.RoleVAppUser, body["activeRole"])
		caps := body["capabilities"].(map[string]any)
		assert.Equal(t, false, caps["canManageOrganizations"])
		assert.Contains(t, w.Header().Get("Authorization"), "Bearer ")

		// The registry entry, not the token, carries the acting role: the
		// pre-switch token must now be denied by the capability gate.
		w = gw.do(http.MethodGet, "/api/console/organizations", nil, bearer(token))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAuditEndpointGating(t *testing.T) {
	gw := setupGateway(t)

	t.Run("denied without canManageSystem", func(t *testing.T) {
		token, _ := gw.login(t, "vappuser", "password")
		w := gw.do(http.MethodGet, "/api/audit", nil, bearer(token))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("allowed for system admin", func(t *testing.T) {
		token, _ := gw.login(t, "sysadmin", "password")
		w := gw.do(http.MethodGet, "/api/audit?page_size=10", nil, bearer(token))
		require.Equal(t, http.StatusOK, w.Code)

		var page struct {
			ResultTotal int64            `json:"resultTotal"`
			Values      []map[string]any `json:"values"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		// At minimum the two logins above were recorded.
		assert.GreaterOrEqual(t, page.ResultTotal, int64(2))
		assert.NotEmpty(t, page.Values)
	})
}

func TestLogoutInvalidatesToken(t *testing.T) {
	gw := setupGateway(t)
	token, body := gw.login(t, "operator", "password")
	sessionID := body["session"].(map[string]any)["id"].(string)

	t.Run("cannot delete another session", func(t *testing.T) {
		w := gw.do(http.MethodDelete, "/api/sessions/urn:vcloud:session:other", nil, bearer(token))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("own session", func(t *testing.T) {
		w := gw.do(http.MethodDelete, "/api/sessions/"+sessionID, nil, bearer(token))
		assert.Equal(t, http.StatusNoContent, w.Code)

		// The token survives cryptographically but its session is gone.
		w = gw.do(http.MethodGet, "/api/session", nil, bearer(token))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
