package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
	GetScopes() []string
	GetSessionTTL() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetIssuerURL returns the OIDC issuer used for endpoint discovery
// (authorization, token and userinfo endpoints).
func (OAuth) GetIssuerURL() string {
	return GetEnv("OAUTH_ISSUER_URL", "https://accounts.google.com")
}

func (OAuth) GetClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("OAUTH_CLIENT_SECRET", "")
}

func (o OAuth) GetRedirectURL() string {
	return GetEnv("OAUTH_REDIRECT_URL", EnvVars{}.GetBaseURL()+"/auth/callback")
}

func (OAuth) GetScopes() []string {
	scopes := GetEnv("OAUTH_SCOPES", "openid email profile")
	return strings.Fields(scopes)
}

// GetSessionTTL returns the absolute session lifetime. Zero disables the
// absolute cap; sessions then expire only by provider token lifetime.
func (OAuth) GetSessionTTL() time.Duration {
	ttl, err := time.ParseDuration(GetEnv("SESSION_TTL", "0"))
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}
