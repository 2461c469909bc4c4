package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role constants as returned by the CloudAPI. The console only assigns
// meaning to these three; unknown role names are carried through but resolve
// to no capabilities.
const (
	RoleSystemAdmin = "System Administrator"
	RoleOrgAdmin    = "Organization Administrator"
	RoleVAppUser    = "vApp User"
)

// URN constants for VMware Cloud Director compatibility
const (
	URNPrefixSession = "urn:vcloud:session:"
	URNPrefixAudit   = "urn:vcloud:audit:"
)

// EntityRef represents a reference to another entity
type EntityRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Session is the VCD-compliant session object returned by the CloudAPI
// session endpoints. It is the console's source of truth for who the user is
// and which roles they hold. The console treats it as read-only; it is
// replaced wholesale on role switch or re-login and discarded on logout.
type Session struct {
	ID                        string      `json:"id"`
	Site                      EntityRef   `json:"site"`
	User                      EntityRef   `json:"user"`
	Org                       EntityRef   `json:"org"`
	OperatingOrg              EntityRef   `json:"operatingOrg"`
	Location                  string      `json:"location"`
	Roles                     []string    `json:"roles"`
	RoleRefs                  []EntityRef `json:"roleRefs"`
	SessionIdleTimeoutMinutes int         `json:"sessionIdleTimeoutMinutes"`
}

// ErrMalformedSession is returned by Validate when a session response is
// missing the fields the console cannot operate without.
var ErrMalformedSession = errors.New("malformed session")

// Validate checks that a session response carries enough data to derive
// capabilities from. A session that fails validation is treated the same as
// a failed session fetch.
func (s *Session) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrMalformedSession)
	}
	if s.User.ID == "" {
		return fmt.Errorf("%w: missing user reference", ErrMalformedSession)
	}
	if s.Org.ID == "" {
		return fmt.Errorf("%w: missing org reference", ErrMalformedSession)
	}
	if len(s.Roles) == 0 {
		return fmt.Errorf("%w: no roles granted", ErrMalformedSession)
	}
	return nil
}

// HasRole reports whether the session holds the named role exactly.
func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GenerateSessionURN returns a new session identifier in VCD URN form.
func GenerateSessionURN() string {
	return URNPrefixSession + uuid.New().String()
}

// GenerateAuditURN returns a new audit-event identifier.
func GenerateAuditURN() string {
	return URNPrefixAudit + uuid.New().String()
}

// ParseURN extracts the UUID from a session or audit URN.
func ParseURN(urn string) (string, error) {
	if urn == "" {
		return "", fmt.Errorf("empty URN")
	}

	var prefix string
	switch {
	case strings.HasPrefix(urn, URNPrefixSession):
		prefix = URNPrefixSession
	case strings.HasPrefix(urn, URNPrefixAudit):
		prefix = URNPrefixAudit
	default:
		return "", fmt.Errorf("invalid URN prefix: %s", urn)
	}

	uuidStr := strings.TrimPrefix(urn, prefix)
	if _, err := uuid.Parse(uuidStr); err != nil {
		return "", fmt.Errorf("invalid UUID in URN: %s", uuidStr)
	}

	return uuidStr, nil
}
