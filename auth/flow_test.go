package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goalkit/goalkeeper/auth"
	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/provider"
	"github.com/goalkit/goalkeeper/users"
)

func setupFlow(t *testing.T) (*auth.Flow, *testFixture) {
	t.Helper()

	f := setupTestFixture(t)
	flow, err := auth.NewFlow(f.provider, f.directory, f.store)
	require.NoError(t, err)

	f.provider.ExchangeCodeFunc = func(code string) (*provider.TokenSet, error) {
		if code != "good-code" {
			return nil, errs.ErrInvalidGrant
		}
		return &provider.TokenSet{
			AccessToken:  "at",
			RefreshToken: strPtr("rt"),
			ExpiresIn:    int64Ptr(3600),
		}, nil
	}
	f.provider.FetchProfileFunc = func(accessToken string) (*users.Profile, error) {
		require.Equal(t, "at", accessToken)
		return &users.Profile{
			ExternalID:  "ext-123",
			DisplayName: "Alice",
			Email:       testEmail,
		}, nil
	}
	return flow, f
}

func TestAuthorizationURLCarriesState(t *testing.T) {
	flow, _ := setupFlow(t)

	state, err := flow.NewState()
	require.NoError(t, err)
	require.NotEmpty(t, state)

	other, err := flow.NewState()
	require.NoError(t, err)
	require.NotEqual(t, state, other)

	require.Contains(t, flow.AuthorizationURL(state), state)
}

func TestHandleCallbackCreatesUserAndSession(t *testing.T) {
	flow, f := setupFlow(t)

	session, err := flow.HandleCallback(context.Background(), "good-code", "state-1", "state-1")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Equal(t, "at", session.AccessToken)
	require.Equal(t, "rt", *session.RefreshToken)

	require.Equal(t, 1, f.userRepo.Count())
	require.Equal(t, 1, f.sessionRepo.Count())

	user, err := f.directory.GetByID(context.Background(), session.UserID)
	require.NoError(t, err)
	require.Equal(t, "ext-123", user.ExternalID)
	require.Equal(t, users.RoleAdmin, user.Role) // yourcompany.com is on the admin list
}

func TestHandleCallbackRepeatedLoginReusesUser(t *testing.T) {
	flow, f := setupFlow(t)

	first, err := flow.HandleCallback(context.Background(), "good-code", "s", "s")
	require.NoError(t, err)
	second, err := flow.HandleCallback(context.Background(), "good-code", "s", "s")
	require.NoError(t, err)

	// Same identity, one user record, two concurrent sessions.
	require.Equal(t, first.UserID, second.UserID)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 1, f.userRepo.Count())
	require.Equal(t, 2, f.sessionRepo.Count())
}

func TestHandleCallbackStateMismatchSkipsExchange(t *testing.T) {
	flow, f := setupFlow(t)

	_, err := flow.HandleCallback(context.Background(), "good-code", "attacker-state", "state-1")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrStateMismatch))
	require.Equal(t, 0, f.provider.ExchangeCallCount())

	// Missing expected state also fails closed.
	_, err = flow.HandleCallback(context.Background(), "good-code", "", "")
	require.True(t, errs.Is(err, errs.ErrStateMismatch))
	require.Equal(t, 0, f.provider.ExchangeCallCount())
}

func TestHandleCallbackExchangeFailed(t *testing.T) {
	flow, f := setupFlow(t)

	_, err := flow.HandleCallback(context.Background(), "used-code", "s", "s")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrExchangeFailed))
	require.Equal(t, 0, f.sessionRepo.Count())
}

func TestLogoutIsIdempotent(t *testing.T) {
	flow, f := setupFlow(t)

	session, err := flow.HandleCallback(context.Background(), "good-code", "s", "s")
	require.NoError(t, err)

	require.NoError(t, flow.Logout(context.Background(), session.ID))
	require.Equal(t, 0, f.sessionRepo.Count())
	require.NoError(t, flow.Logout(context.Background(), session.ID))
}
