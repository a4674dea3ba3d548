package sessions

import "time"

// Session binds one authenticated client to a user and the provider tokens
// issued for it. The ID doubles as the bearer credential, so it is generated
// from a CSPRNG and never derived from anything guessable.
type Session struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken *string    `json:"refresh_token,omitempty"` // nil when the provider issued none
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`    // nil means no time-based expiry
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired reports whether the session's token lifetime has passed. A session
// without an expiry never expires by time.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}
