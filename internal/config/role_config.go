package config

import "strings"

type RoleConfig interface {
	GetDefaultRole() string
	GetAdminDomains() []string
}

type Roles struct{}

var _ RoleConfig = Roles{}

func (Roles) GetDefaultRole() string {
	return GetEnv("DEFAULT_ROLE", "MEMBER")
}

// GetAdminDomains returns email domains whose users are granted the ADMIN
// role on first login. Comma separated, e.g. "example.com,corp.example.com".
func (Roles) GetAdminDomains() []string {
	raw := GetEnv("ADMIN_DOMAINS", "")
	if raw == "" {
		return nil
	}
	var domains []string
	for _, d := range strings.Split(raw, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}
