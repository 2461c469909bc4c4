package unit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/config"
	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
	"github.com/mhrivnak/ssvirt-console/pkg/database/repositories"
	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
	"github.com/mhrivnak/ssvirt-console/pkg/routes"
	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

func setupConsoleDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ConsoleUser{},
		&models.AuditEvent{},
		&models.RolePreference{},
	)
	require.NoError(t, err)

	return db
}

func devConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Dev.Enabled = true
	cfg.Cache.MaxEntries = 64
	cfg.Cache.TTL = time.Minute
	cfg.Session.IdleTimeoutMinutes = 30
	cfg.Session.Site.Name = "ssvirt"
	cfg.Session.Site.ID = "urn:vcloud:site:00000000-0000-0000-0000-000000000001"
	cfg.Session.Location = "us-east-1"
	return cfg
}

type testEnv struct {
	svc      *auth.Service
	users    *repositories.ConsoleUserRepository
	prefs    *repositories.PreferenceRepository
	audit    *repositories.AuditRepository
	registry *auth.Registry
	jwt      *auth.JWTManager
}

func newDevEnv(t *testing.T) *testEnv {
	db := setupConsoleDB(t)

	env := &testEnv{
		users:    repositories.NewConsoleUserRepository(db),
		prefs:    repositories.NewPreferenceRepository(db),
		audit:    repositories.NewAuditRepository(db),
		registry: auth.NewRegistry(),
		jwt:      auth.NewJWTManager("test-secret-key", time.Hour),
	}
	env.svc = auth.NewService(devConfig(), nil, env.users, env.prefs, env.audit, env.jwt, env.registry)
	return env
}

func (env *testEnv) seedUser(t *testing.T, username, password string, roles []string, enabled bool) {
	t.Helper()
	user := &models.ConsoleUser{
		Username: username,
		FullName: "Test " + username,
		OrgID:    "urn:vcloud:org:00000000-0000-0000-0000-0000000000aa",
		OrgName:  "Acme",
		Enabled:  enabled,
	}
	user.SetRoleNames(roles)
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, env.users.Create(user))
}

func TestJWTManager(t *testing.T) {
	manager := auth.NewJWTManager("test-secret-key", time.Hour)

	t.Run("generate and verify", func(t *testing.T) {
		token, err := manager.Generate("urn:vcloud:user:1", "alice", "urn:vcloud:session:1", session.RoleOrgAdmin)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := manager.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, "urn:vcloud:session:1", claims.SessionID)
		assert.Equal(t, session.RoleOrgAdmin, claims.ActiveRole)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := manager.Verify("not-a-token")
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewJWTManager("different-secret", time.Hour)
		token, err := other.Generate("u", "alice", "s", "")
		require.NoError(t, err)

		_, err = manager.Verify(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		short := auth.NewJWTManager("test-secret-key", time.Nanosecond)
		token, err := short.Generate("u", "alice", "s", "")
		require.NoError(t, err)

		time.Sleep(time.Millisecond)

		_, err = short.Verify(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})
}

func TestConsoleUserModel(t *testing.T) {
	user := &models.ConsoleUser{Username: "alice"}
	require.NoError(t, user.SetPassword("secret123"))

	assert.True(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword("wrong"))
	assert.NotEqual(t, "secret123", user.PasswordHash)

	user.SetRoleNames([]string{session.RoleOrgAdmin, session.RoleVAppUser})
	assert.Equal(t, []string{session.RoleOrgAdmin, session.RoleVAppUser}, user.RoleNames())
}

func TestConsoleUserRepository(t *testing.T) {
	db := setupConsoleDB(t)
	repo := repositories.NewConsoleUserRepository(db)

	user := &models.ConsoleUser{
		Username: "alice",
		OrgID:    "urn:vcloud:org:1",
		OrgName:  "Acme",
		Enabled:  true,
	}
	user.SetRoleNames([]string{session.RoleOrgAdmin})
	require.NoError(t, user.SetPassword("secret"))
	require.NoError(t, repo.Create(user))
	assert.NotEmpty(t, user.ID)

	retrieved, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.True(t, retrieved.CheckPassword("secret"))

	// EnsureUser is idempotent on username.
	dup := &models.ConsoleUser{Username: "alice", OrgID: "urn:vcloud:org:2", OrgName: "Other"}
	require.NoError(t, dup.SetPassword("other"))
	require.NoError(t, repo.EnsureUser(dup))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPreferenceRepository(t *testing.T) {
	db := setupConsoleDB(t)
	repo := repositories.NewPreferenceRepository(db)

	role, err := repo.GetActiveRole("alice")
	require.NoError(t, err)
	assert.Empty(t, role)

	require.NoError(t, repo.SetActiveRole("alice", session.RoleVAppUser))
	role, err = repo.GetActiveRole("alice")
	require.NoError(t, err)
	assert.Equal(t, session.RoleVAppUser, role)

	// Upsert replaces the previous preference.
	require.NoError(t, repo.SetActiveRole("alice", session.RoleOrgAdmin))
	role, err = repo.GetActiveRole("alice")
	require.NoError(t, err)
	assert.Equal(t, session.RoleOrgAdmin, role)

	assert.Error(t, repo.SetActiveRole("", session.RoleOrgAdmin))
}

func TestAuditRepository(t *testing.T) {
	db := setupConsoleDB(t)
	repo := repositories.NewAuditRepository(db)

	for _, action := range []string{models.AuditLogin, models.AuditRoleSwitch, models.AuditLogout} {
		require.NoError(t, repo.Record(&models.AuditEvent{
			Username:  "alice",
			SessionID: "urn:vcloud:session:1",
			Action:    action,
		}))
	}
	require.NoError(t, repo.Record(&models.AuditEvent{Username: "bob", Action: models.AuditLoginFailed}))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	events, err := repo.ListByUsername("alice", 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	for _, event := range events {
		assert.NotEmpty(t, event.ID)
		assert.Contains(t, event.ID, session.URNPrefixAudit)
	}

	all, err := repo.List(2, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDevLogin(t *testing.T) {
	env := newDevEnv(t)
	env.seedUser(t, "admin", "password", []string{session.RoleSystemAdmin, session.RoleVAppUser}, true)
	env.seedUser(t, "inactive", "password", []string{session.RoleVAppUser}, false)

	t.Run("success", func(t *testing.T) {
		result, err := env.svc.Login(context.Background(), "admin", "password")
		require.NoError(t, err)

		assert.NotEmpty(t, result.Token)
		assert.Equal(t, session.RoleSystemAdmin, result.ActiveRole)
		assert.True(t, result.IsMultiRole)
		assert.True(t, result.Capabilities.CanManageSystem)
		assert.Equal(t, routes.PathSystemDashboard, result.DefaultRoute)
		assert.Equal(t, 1, env.registry.Len())

		claims, err := env.jwt.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.Session.ID, claims.SessionID)
		assert.Equal(t, "admin", claims.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.svc.Login(context.Background(), "admin", "nope")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.svc.Login(context.Background(), "ghost", "password")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := env.svc.Login(context.Background(), "inactive", "password")
		assert.ErrorIs(t, err, auth.ErrUserInactive)
	})

	t.Run("failures are audited", func(t *testing.T) {
		events, err := env.audit.ListByUsername("ghost", 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, events)
		assert.Equal(t, models.AuditLoginFailed, events[0].Action)
	})
}

func TestSwitchRolePersistsPreference(t *testing.T) {
	env := newDevEnv(t)
	env.seedUser(t, "operator", "password", []string{session.RoleOrgAdmin, session.RoleVAppUser}, true)

	first, err := env.svc.Login(context.Background(), "operator", "password")
	require.NoError(t, err)
	require.Equal(t, session.RoleOrgAdmin, first.ActiveRole)

	switched, err := env.svc.SwitchRole(first.Session.ID, "operator", session.RoleVAppUser)
	require.NoError(t, err)
	assert.Equal(t, session.RoleVAppUser, switched.ActiveRole)
	assert.False(t, switched.Capabilities.CanManageOrganizations)
	assert.True(t, switched.Capabilities.CanOperateVApps)
	assert.NotEmpty(t, switched.Token)

	preferred, err := env.prefs.GetActiveRole("operator")
	require.NoError(t, err)
	assert.Equal(t, session.RoleVAppUser, preferred)

	// The next login restores the remembered role.
	second, err := env.svc.Login(context.Background(), "operator", "password")
	require.NoError(t, err)
	assert.Equal(t, session.RoleVAppUser, second.ActiveRole)
}

func TestSwitchRoleRejections(t *testing.T) {
	env := newDevEnv(t)
	env.seedUser(t, "operator", "password", []string{session.RoleOrgAdmin, session.RoleVAppUser}, true)

	result, err := env.svc.Login(context.Background(), "operator", "password")
	require.NoError(t, err)

	t.Run("unheld role", func(t *testing.T) {
		_, err := env.svc.SwitchRole(result.Session.ID, "operator", session.RoleSystemAdmin)
		assert.ErrorIs(t, err, rbac.ErrInvalidRoleSelection)

		view, err := env.svc.View(result.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.RoleOrgAdmin, view.ActiveRole)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := env.svc.SwitchRole("urn:vcloud:session:missing", "operator", session.RoleVAppUser)
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})
}

func TestLogout(t *testing.T) {
	env := newDevEnv(t)
	env.seedUser(t, "alice", "password", []string{session.RoleOrgAdmin}, true)

	result, err := env.svc.Login(context.Background(), "alice", "password")
	require.NoError(t, err)
	require.Equal(t, 1, env.registry.Len())

	env.svc.Logout(context.Background(), result.Session.ID, "alice")
	assert.Zero(t, env.registry.Len())

	_, err = env.svc.View(result.Session.ID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	// Logging out twice is harmless.
	env.svc.Logout(context.Background(), result.Session.ID, "alice")

	events, err := env.audit.ListByUsername("alice", 10, 0)
	require.NoError(t, err)
	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}
	assert.Contains(t, actions, models.AuditLogin)
	assert.Contains(t, actions, models.AuditLogout)
}

func TestViewAndRefreshInDevMode(t *testing.T) {
	env := newDevEnv(t)
	env.seedUser(t, "alice", "password", []string{session.RoleOrgAdmin}, true)

	result, err := env.svc.Login(context.Background(), "alice", "password")
	require.NoError(t, err)

	view, err := env.svc.View(result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.RoleOrgAdmin, view.ActiveRole)
	assert.Equal(t, routes.PathOrgDashboard, view.DefaultRoute)

	// Dev mode has no upstream to re-fetch from; refresh returns the current
	// snapshot.
	refreshed, err := env.svc.Refresh(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ActiveRole, refreshed.ActiveRole)
}
