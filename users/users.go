package users

import (
	"strings"
	"time"
)

// Role represents a user's access level. The set is closed; anything else is
// rejected at the edges.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleMember   Role = "MEMBER"
	RoleReadOnly Role = "READONLY"
)

var roleRank = map[Role]int{
	RoleReadOnly: 0,
	RoleMember:   1,
	RoleAdmin:    2,
}

// ParseRole validates a raw role string against the closed role set.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := roleRank[role]
	return role, ok
}

// AtLeast reports whether r satisfies the given role floor
// (READONLY < MEMBER < ADMIN).
func (r Role) AtLeast(floor Role) bool {
	return roleRank[r] >= roleRank[floor]
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

type User struct {
	ID          string    `json:"id"`                     // Internal stable identifier, assigned at first login
	ExternalID  string    `json:"external_id"`            // Provider-issued subject, unique, immutable once set
	DisplayName string    `json:"display_name,omitempty"` // Profile attribute, refreshed on login
	Email       string    `json:"email,omitempty"`        // Profile attribute, refreshed on login
	AvatarURL   string    `json:"avatar_url,omitempty"`   // Profile attribute, refreshed on login
	Role        Role      `json:"role"`                   // Changed only via SetRole
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile carries the attributes returned by the provider's profile endpoint.
type Profile struct {
	ExternalID  string
	DisplayName string
	Email       string
	AvatarURL   string
}

// RolePolicy decides the role for a brand-new user. It is a pure function of
// the verified email and the configured admin domain allow-list; existing
// users are never re-evaluated.
type RolePolicy struct {
	DefaultRole  Role
	AdminDomains []string
}

// RoleFor returns ADMIN when the email's domain is on the allow-list,
// otherwise the configured default role.
func (p RolePolicy) RoleFor(email string) Role {
	defaultRole := p.DefaultRole
	if !defaultRole.Valid() {
		defaultRole = RoleMember
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return defaultRole
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range p.AdminDomains {
		if strings.EqualFold(strings.TrimSpace(allowed), domain) {
			return RoleAdmin
		}
	}
	return defaultRole
}
