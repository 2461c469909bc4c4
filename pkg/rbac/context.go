package rbac

import (
	"errors"
	"log"
	"sync"

	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

// ErrStaleSession is returned by ApplySession when the load it completes was
// superseded by a logout or a newer login. The late result is discarded so a
// stale response cannot resurrect a torn-down session.
var ErrStaleSession = errors.New("session load superseded")

// ErrSessionLoadFailure is returned by ApplySession when the fetched session
// is missing or malformed. The context resets to the unauthenticated state.
var ErrSessionLoadFailure = errors.New("session load failed")

// Context holds the authenticated session, the derived capabilities, and the
// currently active role for one console session. It is constructed
// explicitly and injected where needed rather than living as ambient global
// state, so tests and concurrent gateway sessions each get an isolated
// instance.
//
// All mutation flows through Context's own methods. Reads are safe from any
// goroutine.
type Context struct {
	mu sync.RWMutex

	// epoch identifies the load cycle a fetch belongs to; Teardown and
	// BeginLoad both advance it, which is what invalidates in-flight loads.
	epoch   uint64
	loading bool

	sess       *session.Session
	activeRole string
	caps       RoleCapabilities
	override   string

	// generation increments whenever capabilities change. The query cache
	// compares it to decide when role-scoped entries must be dropped.
	generation uint64
}

// NewContext returns an empty, unauthenticated context.
func NewContext() *Context {
	return &Context{}
}

// BeginLoad marks the context as loading and returns the epoch the caller
// must present to ApplySession. Any previously returned epoch is invalidated.
func (c *Context) BeginLoad() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.loading = true
	return c.epoch
}

// ApplySession installs a fetched session for the given load epoch. A stale
// epoch is discarded with ErrStaleSession and leaves all state untouched. A
// malformed session resets the context to unauthenticated and returns
// ErrSessionLoadFailure. On success the active role is initialized to the
// highest-priority held role and capabilities are recomputed.
func (c *Context) ApplySession(epoch uint64, s *session.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return ErrStaleSession
	}
	c.loading = false

	if err := s.Validate(); err != nil {
		c.resetLocked()
		return errors.Join(ErrSessionLoadFailure, err)
	}

	c.sess = s
	// A refresh keeps the acting role when the new session still holds it;
	// otherwise fall back to the priority default.
	if c.activeRole == "" || !ContainsRole(s.Roles, c.activeRole) {
		c.activeRole = DefaultRole(s.Roles)
	}
	// A session arriving with a distinct operating org (cross-org
	// administration) seeds the override.
	if s.OperatingOrg.ID != "" && s.OperatingOrg.ID != s.Org.ID {
		c.override = s.OperatingOrg.ID
	} else {
		c.override = ""
	}
	c.recomputeLocked()
	return nil
}

// FailLoad records a failed session fetch for the given epoch, resetting to
// the unauthenticated state. Stale failures are ignored.
func (c *Context) FailLoad(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.loading = false
	c.resetLocked()
}

// Teardown unconditionally resets session, active role, and capabilities,
// and invalidates any pending load. It is synchronous: local teardown is
// authoritative even when the server-side logout call fails.
func (c *Context) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.loading = false
	c.resetLocked()
}

// SwitchRole changes the active role to target and recomputes capabilities.
// An invalid target (not held by the session) is a logged no-op returning
// false; this is a UI-affordance guard, not a security boundary, since every
// route check re-validates against the capability record.
func (c *Context) SwitchRole(target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return false
	}
	if !ContainsRole(c.sess.Roles, target) {
		log.Printf("rbac: ignoring switch to role %q not held by session %s", target, c.sess.ID)
		return false
	}
	if MatchRole(c.activeRole, target) {
		return true
	}
	c.activeRole = target
	c.recomputeLocked()
	return true
}

// SetOperatingOrg sets or clears the operating-organization override and
// recomputes capabilities. The override only surfaces in the capability
// record while an admin-class role is active.
func (c *Context) SetOperatingOrg(orgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.override == orgID {
		return
	}
	c.override = orgID
	if c.sess != nil {
		c.recomputeLocked()
	}
}

// Session returns the current session, or nil when unauthenticated. Callers
// must treat it as read-only.
func (c *Context) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

// ActiveRole returns the currently acting role, or "" when unauthenticated.
func (c *Context) ActiveRole() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeRole
}

// AvailableRoles returns a copy of the roles the session may switch between.
func (c *Context) AvailableRoles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return nil
	}
	roles := make([]string, len(c.sess.Roles))
	copy(roles, c.sess.Roles)
	return roles
}

// Capabilities returns the current capability record. All-false when
// unauthenticated.
func (c *Context) Capabilities() RoleCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

// IsLoading reports whether a session fetch is in flight.
func (c *Context) IsLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// IsMultiRole reports whether the session holds more than one role, which is
// what decides whether a role switcher is offered at all.
func (c *Context) IsMultiRole() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess != nil && len(c.sess.Roles) > 1
}

// Generation returns the capability-change counter. It increases every time
// the capability record changes, including on teardown.
func (c *Context) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Context) resetLocked() {
	c.sess = nil
	c.activeRole = ""
	c.override = ""
	c.caps = RoleCapabilities{}
	c.generation++
}

func (c *Context) recomputeLocked() {
	scope := OrgScope{
		Primary:           c.sess.Org.ID,
		OperatingOverride: c.override,
	}
	caps, err := Resolve(c.activeRole, c.sess.Roles, scope)
	if err != nil {
		// The active role no longer matches the held set (e.g. a refresh
		// dropped a role). Fall back to the default role instead of
		// propagating.
		log.Printf("rbac: active role %q invalid after session change, falling back: %v", c.activeRole, err)
		c.activeRole = DefaultRole(c.sess.Roles)
		caps, _ = Resolve(c.activeRole, c.sess.Roles, scope)
	}
	c.caps = caps
	c.generation++
}
