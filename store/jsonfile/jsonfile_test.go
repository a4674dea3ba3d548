package jsonfile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/sessions"
	"github.com/goalkit/goalkeeper/store/jsonfile"
	"github.com/goalkit/goalkeeper/users"
)

func TestUserRepoRoundTrip(t *testing.T) {
	dir := t.TempDir()

	repo, err := jsonfile.NewUserRepo(dir)
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &users.User{
		ID:         "u1",
		ExternalID: "ext-1",
		Email:      "alice@example.com",
		Role:       users.RoleMember,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.Upsert(context.Background(), user))

	// A fresh repo over the same folder sees the committed write and
	// rebuilds the external-id index.
	reloaded, err := jsonfile.NewUserRepo(dir)
	require.NoError(t, err)

	got, err := reloaded.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Email)

	got, err = reloaded.GetByExternalID(context.Background(), "ext-1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)

	_, err = reloaded.GetByID(context.Background(), "missing")
	require.True(t, errs.Is(err, errs.ErrNotFound))
}

func TestUserRepoExternalIDUnique(t *testing.T) {
	dir := t.TempDir()

	repo, err := jsonfile.NewUserRepo(dir)
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(context.Background(), &users.User{ID: "u1", ExternalID: "ext-1"}))
	err = repo.Upsert(context.Background(), &users.User{ID: "u2", ExternalID: "ext-1"})
	require.Error(t, err)
}

func TestSessionRepoRoundTrip(t *testing.T) {
	dir := t.TempDir()

	repo, err := jsonfile.NewSessionRepo(dir)
	require.NoError(t, err)

	refreshToken := "rt"
	expiresAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	session := &sessions.Session{
		ID:           "sess-1",
		UserID:       "u1",
		AccessToken:  "at",
		RefreshToken: &refreshToken,
		ExpiresAt:    &expiresAt,
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Upsert(context.Background(), session))

	reloaded, err := jsonfile.NewSessionRepo(dir)
	require.NoError(t, err)

	got, err := reloaded.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)
	require.NotNil(t, got.RefreshToken)
	require.Equal(t, "rt", *got.RefreshToken)
	require.True(t, expiresAt.Equal(*got.ExpiresAt))

	// Optional fields survive as absent, not as empty strings.
	bare := &sessions.Session{ID: "sess-2", UserID: "u1", AccessToken: "at"}
	require.NoError(t, repo.Upsert(context.Background(), bare))
	reloaded, err = jsonfile.NewSessionRepo(dir)
	require.NoError(t, err)
	got, err = reloaded.Get(context.Background(), "sess-2")
	require.NoError(t, err)
	require.Nil(t, got.RefreshToken)
	require.Nil(t, got.ExpiresAt)
}

func TestSessionRepoDeleteIdempotent(t *testing.T) {
	dir := t.TempDir()

	repo, err := jsonfile.NewSessionRepo(dir)
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(context.Background(), &sessions.Session{ID: "sess-1", UserID: "u1"}))
	require.NoError(t, repo.Delete(context.Background(), "sess-1"))
	require.NoError(t, repo.Delete(context.Background(), "sess-1"))

	_, err = repo.Get(context.Background(), "sess-1")
	require.True(t, errs.Is(err, errs.ErrNotFound))
}

func TestRepoRespectsCancelledContext(t *testing.T) {
	dir := t.TempDir()

	repo, err := jsonfile.NewUserRepo(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, repo.Upsert(ctx, &users.User{ID: "u1", ExternalID: "ext-1"}))
}
