package rbac

import (
	"strings"
	"unicode"

	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

// RoleClass identifies which of the known role classes a role name belongs
// to. Dispatch on RoleClass is always an exhaustive switch so that adding a
// class forces every call site to handle it.
type RoleClass int

const (
	ClassUnknown RoleClass = iota
	ClassVAppUser
	ClassOrgAdmin
	ClassSystemAdmin
)

// String returns the canonical role name for the class, or "" for unknown.
func (c RoleClass) String() string {
	switch c {
	case ClassSystemAdmin:
		return session.RoleSystemAdmin
	case ClassOrgAdmin:
		return session.RoleOrgAdmin
	case ClassVAppUser:
		return session.RoleVAppUser
	case ClassUnknown:
		return ""
	default:
		return ""
	}
}

// NormalizeRoleName lowercases a role name and strips everything that is not
// a letter. Different backend versions disagree on casing and punctuation
// ("vApp User" vs "vapp-user"); normalizing absorbs that without narrowing
// any legitimate match.
func NormalizeRoleName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// MatchRole reports whether two role names are the same role after
// normalization.
func MatchRole(a, b string) bool {
	return NormalizeRoleName(a) == NormalizeRoleName(b)
}

// ContainsRole reports whether any of the held roles matches the candidate.
func ContainsRole(roles []string, candidate string) bool {
	for _, r := range roles {
		if MatchRole(r, candidate) {
			return true
		}
	}
	return false
}

// Classify maps a role name onto a RoleClass using lenient matching.
func Classify(role string) RoleClass {
	switch NormalizeRoleName(role) {
	case NormalizeRoleName(session.RoleSystemAdmin):
		return ClassSystemAdmin
	case NormalizeRoleName(session.RoleOrgAdmin):
		return ClassOrgAdmin
	case NormalizeRoleName(session.RoleVAppUser):
		return ClassVAppUser
	default:
		return ClassUnknown
	}
}

// DefaultRole picks the highest-priority role from the held set: System
// Administrator over Organization Administrator over vApp User over anything
// unrecognized. When nothing is recognized the first held role is returned
// so a caller always gets a member of the input set; an empty input yields
// "".
func DefaultRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	best := roles[0]
	bestClass := Classify(roles[0])
	for _, r := range roles[1:] {
		if c := Classify(r); c > bestClass {
			best, bestClass = r, c
		}
	}
	return best
}
