package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/sessions"
	"github.com/goalkit/goalkeeper/users"
)

const stateLength = 32

// Flow orchestrates the login handshake: it builds the provider consent URL
// and, on callback, drives code exchange, profile lookup, user creation and
// session issuance. It holds no per-login state; the anti-forgery state
// value round-trips through the caller (typically a short-lived cookie).
type Flow struct {
	provider  Provider
	directory *users.Directory
	store     *sessions.Store
	log       zerolog.Logger
}

// FlowOption defines a function type to modify the Flow instance.
type FlowOption func(*Flow)

// WithFlowLogger sets the logger used for internal diagnostics.
func WithFlowLogger(log zerolog.Logger) FlowOption {
	return func(f *Flow) {
		f.log = log
	}
}

func NewFlow(identityProvider Provider, directory *users.Directory, store *sessions.Store, options ...FlowOption) (*Flow, error) {
	if identityProvider == nil {
		return nil, errors.New("[NewFlow] provider is required")
	}
	if directory == nil {
		return nil, errors.New("[NewFlow] user directory is required")
	}
	if store == nil {
		return nil, errors.New("[NewFlow] session store is required")
	}
	f := &Flow{
		provider:  identityProvider,
		directory: directory,
		store:     store,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// NewState generates the anti-forgery state value binding a login attempt's
// redirect to its callback.
func (f *Flow) NewState() (string, error) {
	bytes := make([]byte, stateLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[Flow.NewState] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// AuthorizationURL builds the provider consent URL carrying the state value.
func (f *Flow) AuthorizationURL(state string) string {
	return f.provider.AuthCodeURL(state)
}

// HandleCallback completes a login. The state check fails closed before any
// token exchange is attempted; a mismatch is treated as a potential forgery.
// On success exactly one session is created, and at most one user record
// exists per external identity however many times it logs in.
func (f *Flow) HandleCallback(ctx context.Context, code, state, expectedState string) (*sessions.Session, error) {
	if expectedState == "" || state != expectedState {
		f.log.Warn().Msg("callback state mismatch, aborting before exchange")
		return nil, errs.ErrStateMismatch
	}

	tokenSet, err := f.provider.ExchangeCode(ctx, code)
	if err != nil {
		if errs.Is(err, errs.ErrInvalidGrant) {
			return nil, errors.Wrapf(errs.ErrExchangeFailed, "[Flow.HandleCallback] %v", err)
		}
		return nil, errors.Wrap(err, "[Flow.HandleCallback] ExchangeCode")
	}

	profile, err := f.provider.FetchProfile(ctx, tokenSet.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Flow.HandleCallback] FetchProfile")
	}

	user, err := f.directory.FindOrCreate(ctx, *profile)
	if err != nil {
		return nil, errors.Wrap(err, "[Flow.HandleCallback] FindOrCreate")
	}

	session, err := f.store.Create(ctx, user.ID, *tokenSet)
	if err != nil {
		return nil, errors.Wrap(err, "[Flow.HandleCallback] Create")
	}

	f.log.Info().Str("user_id", user.ID).Msg("login completed")
	return session, nil
}

// Logout destroys a session. Logging out an already-gone session is fine.
func (f *Flow) Logout(ctx context.Context, sessionID string) error {
	return f.store.Delete(ctx, sessionID)
}
