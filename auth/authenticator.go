package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/sessions"
	"github.com/goalkit/goalkeeper/users"
)

// Authenticator is the request-time gatekeeper. It resolves a bearer session
// credential into a Principal, lazily refreshing expired provider tokens on
// the way. It keeps no state between calls: expiry handling is a pure
// function of the session record observed at request time.
type Authenticator struct {
	store     *sessions.Store
	directory *users.Directory
	provider  Provider
	refreshes singleflight.Group // one in-flight refresh per session id
	nowTime   func() time.Time   // nowTime function (injectable for testing)
	log       zerolog.Logger
}

// AuthenticatorOption defines a function type to modify the Authenticator instance.
type AuthenticatorOption func(*Authenticator)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) {
		a.nowTime = nowFunc
	}
}

// WithLogger sets the logger used for internal diagnostics.
func WithLogger(log zerolog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.log = log
	}
}

func NewAuthenticator(store *sessions.Store, directory *users.Directory, identityProvider Provider, options ...AuthenticatorOption) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("[NewAuthenticator] session store is required")
	}
	if directory == nil {
		return nil, errors.New("[NewAuthenticator] user directory is required")
	}
	if identityProvider == nil {
		return nil, errors.New("[NewAuthenticator] provider is required")
	}
	a := &Authenticator{
		store:     store,
		directory: directory,
		provider:  identityProvider,
		nowTime:   time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// Authenticate resolves the credential into a Principal or a Rejection.
// External rejection messages never reveal whether the session existed,
// expired, or lost its user; the distinction goes to the log only.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*Principal, *Rejection) {
	if credential == "" {
		return nil, rejectUnauthenticated("authentication required")
	}

	session, err := a.store.Get(ctx, credential)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return nil, rejectUnauthenticated("invalid or expired session")
		}
		a.log.Error().Err(err).Msg("session lookup failed")
		return nil, rejectUnavailable("authentication service unavailable")
	}

	if a.store.Expired(session) {
		if !a.store.RefreshAllowed(session) {
			return nil, rejectUnauthenticated("session expired")
		}
		refreshed, err := a.refreshSession(ctx, session)
		if err != nil {
			return nil, a.rejectRefreshFailure(ctx, session.ID, err)
		}
		session = refreshed
	}

	user, err := a.directory.GetByID(ctx, session.UserID)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			// Orphaned session; self-heals by forcing re-login.
			a.log.Warn().Str("session_id", session.ID).Str("user_id", session.UserID).Msg("session references missing user")
			return nil, rejectUnauthenticated("user not found")
		}
		a.log.Error().Err(err).Msg("user lookup failed")
		return nil, rejectUnavailable("authentication service unavailable")
	}

	return &Principal{
		UserID:      user.ID,
		Role:        user.Role,
		SessionID:   session.ID,
		DisplayName: user.DisplayName,
	}, nil
}

// refreshSession drives the expired branch of the state machine. Concurrent
// callers on the same session share a single provider refresh, so a
// rotated single-use refresh token is never spent twice; the losers observe
// the winner's already-fresh session on the re-read.
func (a *Authenticator) refreshSession(ctx context.Context, session *sessions.Session) (*sessions.Session, error) {
	v, err, _ := a.refreshes.Do(session.ID, func() (interface{}, error) {
		// The provider call and the store update run detached from the
		// caller's cancellation: an aborted request must not leave a
		// half-applied token update behind.
		fctx := context.WithoutCancel(ctx)

		current, err := a.store.Get(fctx, session.ID)
		if err != nil {
			return nil, errors.Wrap(err, "[Authenticator.refreshSession] Get")
		}
		if !a.store.Expired(current) {
			return current, nil
		}
		if !a.store.RefreshAllowed(current) {
			return nil, errs.ErrInvalidGrant
		}

		tokenSet, err := a.provider.Refresh(fctx, *current.RefreshToken)
		if err != nil {
			return nil, err
		}

		patch := sessions.Patch{
			AccessToken:  tokenSet.AccessToken,
			RefreshToken: tokenSet.RefreshToken,
		}
		if tokenSet.ExpiresIn != nil {
			expiresAt := a.nowTime().Add(time.Duration(*tokenSet.ExpiresIn) * time.Second)
			patch.ExpiresAt = &expiresAt
		}
		updated, err := a.store.Update(fctx, current.ID, patch)
		if err != nil {
			return nil, errors.Wrap(err, "[Authenticator.refreshSession] Update")
		}
		return updated, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sessions.Session), nil
}

// rejectRefreshFailure maps a refresh error onto the rejection taxonomy. An
// invalid grant is terminal for the session, so the record is removed; a
// provider outage keeps the session intact for a later retry.
func (a *Authenticator) rejectRefreshFailure(ctx context.Context, sessionID string, err error) *Rejection {
	switch {
	case errs.Is(err, errs.ErrNotFound):
		// The session vanished mid-flight (logout or a concurrent failed
		// refresh); nothing left to clean up.
		return rejectUnauthenticated("invalid or expired session")
	case errs.Is(err, errs.ErrInvalidGrant):
		a.log.Info().Str("session_id", sessionID).Msg("session unrefreshable, deleting")
		if deleteErr := a.store.Delete(context.WithoutCancel(ctx), sessionID); deleteErr != nil {
			a.log.Error().Err(deleteErr).Str("session_id", sessionID).Msg("failed to delete dead session")
		}
		return rejectUnauthenticated("session expired")
	case errs.Is(err, errs.ErrProviderUnavailable):
		a.log.Warn().Err(err).Str("session_id", sessionID).Msg("token refresh unavailable")
		return rejectUnavailable("authentication service unavailable")
	default:
		a.log.Error().Err(err).Str("session_id", sessionID).Msg("token refresh failed")
		return rejectUnavailable("authentication service unavailable")
	}
}
