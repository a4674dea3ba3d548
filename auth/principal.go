package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goalkit/goalkeeper/users"
)

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	UserID      string
	Role        users.Role
	SessionID   string
	DisplayName string
}

// SessionCookieName carries the session id for browser clients.
const SessionCookieName = "session_id"

type contextKey string

const credentialContextKey contextKey = "session_credential"

// ExtractCredential pulls the bearer session id out of an inbound request,
// preferring the session cookie and falling back to an Authorization bearer
// header. Returns "" when neither is present.
func ExtractCredential(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithCredential stores the raw session credential in the context so tool
// handlers running behind a transport can reach it.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialContextKey, credential)
}

// CredentialFromContext returns the credential stored by WithCredential,
// or "" when none was attached.
func CredentialFromContext(ctx context.Context) string {
	credential, _ := ctx.Value(credentialContextKey).(string)
	return credential
}
