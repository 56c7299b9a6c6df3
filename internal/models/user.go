package models

import (
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Capability is a role tag gating portal features.
type Capability string

const (
	CapabilityUser      Capability = "USER"
	CapabilityAdmin     Capability = "ADMIN"
	CapabilityProfessor Capability = "PROFESSOR"
	CapabilityStudent   Capability = "STUDENT"
)

const rolePrefix = "ROLE_"

// NormalizeCapability accepts both "ADMIN" and the backend's "ROLE_ADMIN" spelling.
func NormalizeCapability(raw string) Capability {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	return Capability(strings.TrimPrefix(trimmed, rolePrefix))
}

// CurrentUser is the viewer of a page. It is built once per request and never mutated.
type CurrentUser struct {
	ID       string
	Email    string
	FullName string
	roles    []Capability
}

// NewCurrentUser builds a viewer with a de-duplicated, normalised role set.
func NewCurrentUser(id, email, fullName string, roles ...string) CurrentUser {
	seen := make(map[Capability]struct{}, len(roles))
	normalized := make([]Capability, 0, len(roles))
	for _, raw := range roles {
		role := NormalizeCapability(raw)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i] < normalized[j] })
	return CurrentUser{ID: id, Email: email, FullName: fullName, roles: normalized}
}

// Roles returns a copy of the viewer's capabilities.
func (u CurrentUser) Roles() []Capability {
	out := make([]Capability, len(u.roles))
	copy(out, u.roles)
	return out
}

// Anonymous reports whether the viewer carries no roles at all.
func (u CurrentUser) Anonymous() bool {
	return len(u.roles) == 0
}

// HasCapability is the role predicate used for every feature gate.
func HasCapability(user CurrentUser, capability Capability) bool {
	want := NormalizeCapability(string(capability))
	for _, role := range user.roles {
		if role == want {
			return true
		}
	}
	return false
}

// HasAnyCapability reports whether the viewer holds at least one of capabilities.
func HasAnyCapability(user CurrentUser, capabilities ...Capability) bool {
	for _, c := range capabilities {
		if HasCapability(user, c) {
			return true
		}
	}
	return false
}

// SessionClaims is the JWT payload identifying the viewer.
type SessionClaims struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// CurrentUser converts verified claims into a viewer value.
func (c *SessionClaims) CurrentUser() CurrentUser {
	if c == nil {
		return CurrentUser{}
	}
	return NewCurrentUser(c.UserID, c.Email, c.FullName, c.Roles...)
}
