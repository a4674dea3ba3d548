package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/internal/locking"
	"github.com/goalkit/goalkeeper/provider"
)

const sessionIDLength = 32 // 32 bytes = 256 bits

// Patch carries the fields the refresh path may change. UserID, ID and
// CreatedAt are immutable.
type Patch struct {
	AccessToken  string
	RefreshToken *string    // nil keeps the existing refresh token
	ExpiresAt    *time.Time // nil removes time-based expiry
}

// Store issues and maintains sessions on top of a Repo. Updates and deletes
// for the same session id are serialized so concurrent refreshes cannot
// interleave partial writes; different ids proceed independently.
type Store struct {
	repo    Repo
	ttl     time.Duration // absolute session lifetime, 0 = unlimited
	nowTime func() time.Time
	locks   locking.KeyedMutex
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(st *Store) {
		st.nowTime = nowFunc
	}
}

// WithTTL caps every session's lifetime at d past its creation, independent
// of the provider token's own expiry.
func WithTTL(d time.Duration) StoreOption {
	return func(st *Store) {
		st.ttl = d
	}
}

func NewStore(repo Repo, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] repo is required")
	}
	st := &Store{
		repo:    repo,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(st)
	}
	return st, nil
}

// Create generates a fresh unforgeable session id for the user and persists
// the record with the provider's token set.
func (st *Store) Create(ctx context.Context, userID string, ts provider.TokenSet) (*Session, error) {
	if userID == "" {
		return nil, errors.New("[Store.Create] userID is required")
	}

	id, err := newSessionID()
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Create] newSessionID")
	}

	now := st.nowTime()
	session := &Session{
		ID:           id,
		UserID:       userID,
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		CreatedAt:    now,
	}
	if ts.ExpiresIn != nil {
		expiresAt := now.Add(time.Duration(*ts.ExpiresIn) * time.Second)
		session.ExpiresAt = &expiresAt
	}
	st.capExpiry(session)

	if err := st.repo.Upsert(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Store.Create] Upsert")
	}
	return session, nil
}

func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	return st.repo.Get(ctx, id)
}

// Update applies a refresh result to an existing session. It is a
// read-modify-write serialized per session id.
func (st *Store) Update(ctx context.Context, id string, patch Patch) (*Session, error) {
	unlock := st.locks.Lock(id)
	defer unlock()

	session, err := st.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Update] Get")
	}

	session.AccessToken = patch.AccessToken
	if patch.RefreshToken != nil {
		session.RefreshToken = patch.RefreshToken
	}
	session.ExpiresAt = patch.ExpiresAt
	st.capExpiry(session)

	if err := st.repo.Upsert(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Store.Update] Upsert")
	}
	return session, nil
}

// Delete removes a session. Deleting a missing id is not an error.
func (st *Store) Delete(ctx context.Context, id string) error {
	unlock := st.locks.Lock(id)
	defer unlock()

	if err := st.repo.Delete(ctx, id); err != nil && !errs.Is(err, errs.ErrNotFound) {
		return errors.Wrap(err, "[Store.Delete] Delete")
	}
	return nil
}

// Expired reports whether the session is past its token lifetime.
func (st *Store) Expired(session *Session) bool {
	return session.Expired(st.nowTime())
}

// RefreshAllowed reports whether an expired session may still be refreshed:
// it holds a refresh token and, when an absolute TTL is configured, the
// session has not outlived it.
func (st *Store) RefreshAllowed(session *Session) bool {
	if session.RefreshToken == nil {
		return false
	}
	if st.ttl > 0 && !st.nowTime().Before(session.CreatedAt.Add(st.ttl)) {
		return false
	}
	return true
}

// capExpiry enforces the absolute TTL: a session never reports an expiry
// later than CreatedAt+TTL, and a session with no token expiry still gains
// the TTL bound.
func (st *Store) capExpiry(session *Session) {
	if st.ttl <= 0 {
		return
	}
	deadline := session.CreatedAt.Add(st.ttl)
	if session.ExpiresAt == nil || session.ExpiresAt.After(deadline) {
		session.ExpiresAt = &deadline
	}
}

func newSessionID() (string, error) {
	bytes := make([]byte, sessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
