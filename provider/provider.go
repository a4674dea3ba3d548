// Package provider talks to the external OAuth identity provider: it
// exchanges authorization codes, refreshes access tokens and fetches the
// userinfo profile. It holds no state between calls.
package provider

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/users"
)

// TokenSet is the credential bundle issued by the provider's token endpoint.
// Absent fields are nil, not empty strings, because their absence changes
// control flow downstream.
type TokenSet struct {
	AccessToken  string
	RefreshToken *string // nil when the provider issued or rotated no refresh token
	ExpiresIn    *int64  // lifetime in seconds; nil when the token does not expire
}

type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Client implements the token exchange and profile calls against a single
// OIDC provider discovered from its issuer URL.
type Client struct {
	oauth *oauth2.Config
	oidc  *oidc.Provider
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[provider.New] client id is required")
	}
	oidcProvider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[provider.New] oidc.NewProvider")
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     oidcProvider.Endpoint(),
		},
		oidc: oidcProvider,
	}, nil
}

// AuthCodeURL builds the provider consent URL. access_type=offline requests
// a refresh token and prompt=consent forces re-issuance on repeat logins.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode converts a single-use authorization code into a token set.
// A failed exchange is never retried with the same code.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, classify(err, "[Client.ExchangeCode]")
	}
	return toTokenSet(token, ""), nil
}

// Refresh exchanges a refresh token for a fresh access token. An invalid
// grant here means the refresh token is revoked or expired and the caller
// must force re-login.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, classify(err, "[Client.Refresh]")
	}
	return toTokenSet(token, refreshToken), nil
}

// FetchProfile resolves the provider's userinfo endpoint into a profile.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*users.Profile, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	userInfo, err := c.oidc.UserInfo(ctx, source)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrProviderUnavailable, "[Client.FetchProfile] %v", err)
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	// Name and picture are optional claims; a provider that omits them
	// still yields a usable profile.
	_ = userInfo.Claims(&claims)

	return &users.Profile{
		ExternalID:  userInfo.Subject,
		Email:       userInfo.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	}, nil
}

// classify maps transport errors onto the two failure classes callers care
// about: a provider 4xx rejecting the grant is terminal for that credential,
// everything else (network failure, 5xx) is transient.
func classify(err error, op string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response == nil || retrieveErr.Response.StatusCode < 500 {
			return errors.Wrapf(errs.ErrInvalidGrant, "%s %v", op, err)
		}
	}
	return errors.Wrapf(errs.ErrProviderUnavailable, "%s %v", op, err)
}

// toTokenSet converts an oauth2 token, reporting a refresh token only when
// the provider actually rotated it (the oauth2 package echoes the prior one
// back otherwise).
func toTokenSet(token *oauth2.Token, priorRefreshToken string) *TokenSet {
	ts := &TokenSet{AccessToken: token.AccessToken}
	if token.RefreshToken != "" && token.RefreshToken != priorRefreshToken {
		refreshToken := token.RefreshToken
		ts.RefreshToken = &refreshToken
	}
	switch {
	case token.ExpiresIn > 0:
		expiresIn := token.ExpiresIn
		ts.ExpiresIn = &expiresIn
	case !token.Expiry.IsZero():
		expiresIn := int64(time.Until(token.Expiry) / time.Second)
		ts.ExpiresIn = &expiresIn
	}
	return ts
}
