package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mhrivnak/ssvirt-console/pkg/cache"
	"github.com/mhrivnak/ssvirt-console/pkg/config"
	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
	"github.com/mhrivnak/ssvirt-console/pkg/database/repositories"
	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
	"github.com/mhrivnak/ssvirt-console/pkg/routes"
	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

var (
	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive is returned when the account exists but is disabled
	ErrUserInactive = errors.New("user account is inactive")
	// ErrSessionNotFound is returned when a token references a session the
	// gateway no longer holds (logged out, or the gateway restarted)
	ErrSessionNotFound = errors.New("session not found")
)

// CloudAPI is the slice of the upstream client the service depends on.
type CloudAPI interface {
	CreateSession(ctx context.Context, username, password string) (*session.Session, string, error)
	GetSession(ctx context.Context, token, sessionID string) (*session.Session, error)
	DeleteSession(ctx context.Context, token, sessionID string) error
}

// Service owns the console's session lifecycle: login against the CloudAPI
// (or the local dev store), capability derivation, role switching, refresh,
// and logout. It is the sole writer of registry entries.
type Service struct {
	cfg        *config.Config
	api        CloudAPI
	users      *repositories.ConsoleUserRepository
	prefs      *repositories.PreferenceRepository
	audit      *repositories.AuditRepository
	jwtManager *JWTManager
	registry   *Registry
}

// NewService creates the auth service. api may be nil when dev mode is
// enabled in the config.
func NewService(cfg *config.Config, api CloudAPI, users *repositories.ConsoleUserRepository, prefs *repositories.PreferenceRepository, audit *repositories.AuditRepository, jwtManager *JWTManager, registry *Registry) *Service {
	return &Service{
		cfg:        cfg,
		api:        api,
		users:      users,
		prefs:      prefs,
		audit:      audit,
		jwtManager: jwtManager,
		registry:   registry,
	}
}

// SessionView is the role-aware session snapshot returned to the browser.
type SessionView struct {
	Session      *session.Session      `json:"session"`
	ActiveRole   string                `json:"activeRole"`
	IsMultiRole  bool                  `json:"isMultiRole"`
	Capabilities rbac.RoleCapabilities `json:"capabilities"`
	DefaultRoute string                `json:"defaultRoute"`
}

// LoginResult carries the console token alongside the session view.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionView
}

// Login authenticates, derives capabilities, registers the session, and
// issues a console token. The remembered role preference is restored when it
// is still held.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var (
		sess  *session.Session
		token string
		err   error
	)

	if s.cfg.Dev.Enabled {
		sess, err = s.devLogin(username, password)
	} else {
		sess, token, err = s.api.CreateSession(ctx, username, password)
	}
	if err != nil {
		s.recordAudit(username, "", models.AuditLoginFailed, err.Error())
		return nil, err
	}

	rctx := rbac.NewContext()
	epoch := rctx.BeginLoad()
	if err := rctx.ApplySession(epoch, sess); err != nil {
		log.Printf("auth: session for %s failed validation: %v", username, err)
		s.recordAudit(username, "", models.AuditLoginFailed, err.Error())
		return nil, err
	}

	if preferred, err := s.prefs.GetActiveRole(username); err != nil {
		log.Printf("auth: failed to load role preference for %s: %v", username, err)
	} else if preferred != "" {
		// SwitchRole is a no-op when the preference names a role the
		// session no longer holds.
		rctx.SwitchRole(preferred)
	}

	entry := &Entry{
		Context:       rctx,
		UpstreamToken: token,
		Cache:         cache.New(s.cfg.Cache.MaxEntries, s.cfg.Cache.TTL),
	}
	entry.Cache.SyncGeneration(rctx.Generation())
	s.registry.Put(sess.ID, entry)

	consoleToken, err := s.jwtManager.Generate(sess.User.ID, username, sess.ID, rctx.ActiveRole())
	if err != nil {
		s.registry.Delete(sess.ID)
		return nil, err
	}

	s.recordAudit(username, sess.ID, models.AuditLogin, "active role "+rctx.ActiveRole())

	return &LoginResult{
		Token:       consoleToken,
		ExpiresAt:   time.Now().Add(s.jwtManager.TokenDuration()),
		SessionView: s.viewFor(sess.ID, entry),
	}, nil
}

// View returns the current session snapshot for a registered session.
func (s *Service) View(sessionID string) (*SessionView, error) {
	entry, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	view := s.viewFor(sessionID, entry)
	return &view, nil
}

// Refresh re-fetches the session from the CloudAPI and reapplies it. A
// refresh that loses the race against a logout is discarded.
func (s *Service) Refresh(ctx context.Context, sessionID string) (*SessionView, error) {
	entry, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.cfg.Dev.Enabled || entry.UpstreamToken == "" {
		view := s.viewFor(sessionID, entry)
		return &view, nil
	}

	epoch := entry.Context.BeginLoad()
	sess, err := s.api.GetSession(ctx, entry.UpstreamToken, sessionID)
	if err != nil {
		entry.Context.FailLoad(epoch)
		s.registry.Delete(sessionID)
		return nil, err
	}
	if err := entry.Context.ApplySession(epoch, sess); err != nil {
		if errors.Is(err, rbac.ErrStaleSession) {
			return nil, ErrSessionNotFound
		}
		s.registry.Delete(sessionID)
		return nil, err
	}
	entry.Cache.SyncGeneration(entry.Context.Generation())

	view := s.viewFor(sessionID, entry)
	return &view, nil
}

// SwitchRole changes the acting role for a session. The switch is a local
// state transition, not an upstream round trip. On success a fresh console
// token reflecting the new role is returned with the updated view.
func (s *Service) SwitchRole(sessionID, username, target string) (*LoginResult, error) {
	entry, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	if !entry.Context.SwitchRole(target) {
		return nil, rbac.ErrInvalidRoleSelection
	}

	// The capability generation moved; drop role-scoped cache entries so
	// the new role never sees the old role's data.
	entry.Cache.SyncGeneration(entry.Context.Generation())

	if err := s.prefs.SetActiveRole(username, entry.Context.ActiveRole()); err != nil {
		log.Printf("auth: failed to persist role preference for %s: %v", username, err)
	}
	s.recordAudit(username, sessionID, models.AuditRoleSwitch, "now acting as "+entry.Context.ActiveRole())

	sess := entry.Context.Session()
	consoleToken, err := s.jwtManager.Generate(sess.User.ID, username, sessionID, entry.Context.ActiveRole())
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:       consoleToken,
		ExpiresAt:   time.Now().Add(s.jwtManager.TokenDuration()),
		SessionView: s.viewFor(sessionID, entry),
	}, nil
}

// Logout tears down the local session state and then attempts server-side
// invalidation. Local teardown is authoritative: an upstream failure is
// logged and swallowed.
func (s *Service) Logout(ctx context.Context, sessionID, username string) {
	entry, ok := s.registry.Delete(sessionID)
	if !ok {
		return
	}

	token := entry.UpstreamToken
	entry.Context.Teardown()
	entry.Cache.Purge()
	s.recordAudit(username, sessionID, models.AuditLogout, "")

	if token == "" {
		return
	}
	if err := s.api.DeleteSession(ctx, token, sessionID); err != nil {
		log.Printf("auth: best-effort upstream logout for %s failed: %v", sessionID, err)
	}
}

// RecordRouteDenied audits a route-authorization denial.
func (s *Service) RecordRouteDenied(username, sessionID, path string) {
	s.recordAudit(username, sessionID, models.AuditRouteDenied, path)
}

func (s *Service) viewFor(sessionID string, entry *Entry) SessionView {
	sess := entry.Context.Session()
	return SessionView{
		Session:      sess,
		ActiveRole:   entry.Context.ActiveRole(),
		IsMultiRole:  entry.Context.IsMultiRole(),
		Capabilities: entry.Context.Capabilities(),
		DefaultRoute: routes.DefaultRouteForRoles(entry.Context.AvailableRoles()),
	}
}

func (s *Service) recordAudit(username, sessionID, action, detail string) {
	if s.audit == nil {
		return
	}
	event := &models.AuditEvent{
		Username:  username,
		SessionID: sessionID,
		Action:    action,
		Detail:    detail,
	}
	if err := s.audit.Record(event); err != nil {
		log.Printf("auth: failed to record audit event %s for %s: %v", action, username, err)
	}
}

// devLogin authenticates against the local console_users table and
// synthesizes a CloudAPI-shaped session from the stored account.
func (s *Service) devLogin(username, password string) (*session.Session, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Enabled {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	roles := user.RoleNames()
	roleRefs := make([]session.EntityRef, 0, len(roles))
	for _, r := range roles {
		roleRefs = append(roleRefs, session.EntityRef{Name: r, ID: "urn:vcloud:role:" + rbac.NormalizeRoleName(r)})
	}

	sess := &session.Session{
		ID: session.GenerateSessionURN(),
		Site: session.EntityRef{
			Name: s.cfg.Session.Site.Name,
			ID:   s.cfg.Session.Site.ID,
		},
		User:                      session.EntityRef{Name: user.Username, ID: user.ID.String()},
		Org:                       session.EntityRef{Name: user.OrgName, ID: user.OrgID},
		Location:                  s.cfg.Session.Location,
		Roles:                     roles,
		RoleRefs:                  roleRefs,
		SessionIdleTimeoutMinutes: s.cfg.Session.IdleTimeoutMinutes,
	}
	return sess, nil
}
