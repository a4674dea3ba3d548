package auth

import (
	"context"

	"github.com/goalkit/goalkeeper/provider"
	"github.com/goalkit/goalkeeper/users"
)

// Provider is what the auth core needs from the identity provider.
type Provider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*provider.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*provider.TokenSet, error)
	FetchProfile(ctx context.Context, accessToken string) (*users.Profile, error)
}

var _ Provider = (*provider.Client)(nil)
