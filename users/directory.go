package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/internal/locking"
)

// Directory maps external identities to internal user records.
type Directory struct {
	repo    Repo
	policy  RolePolicy
	nowTime func() time.Time   // nowTime function (injectable for testing)
	creates singleflight.Group // serializes FindOrCreate per external id
	locks   locking.KeyedMutex // serializes read-modify-write per user id
}

// DirectoryOption defines a function type to modify the Directory instance.
type DirectoryOption func(*Directory)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) DirectoryOption {
	return func(d *Directory) {
		d.nowTime = nowFunc
	}
}

func NewDirectory(repo Repo, policy RolePolicy, options ...DirectoryOption) (*Directory, error) {
	if repo == nil {
		return nil, errors.New("[NewDirectory] repo is required")
	}
	d := &Directory{
		repo:    repo,
		policy:  policy,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// FindOrCreate resolves the user for an external identity, creating the
// record on first login. Concurrent calls for the same external id are
// collapsed into a single creation, so two simultaneous first logins observe
// one record. Profile attributes are refreshed on every call; the role is
// assigned once by the RolePolicy and never altered here.
func (d *Directory) FindOrCreate(ctx context.Context, profile Profile) (*User, error) {
	if profile.ExternalID == "" {
		return nil, errors.New("[Directory.FindOrCreate] external id is required")
	}

	v, err, _ := d.creates.Do(profile.ExternalID, func() (interface{}, error) {
		// Detached from the caller's cancellation: a half-applied first
		// login must not be visible to the next caller.
		fctx := context.WithoutCancel(ctx)

		now := d.nowTime()
		user, err := d.repo.GetByExternalID(fctx, profile.ExternalID)
		switch {
		case err == nil:
			return d.refreshProfile(fctx, user.ID, profile, now)
		case errs.Is(err, errs.ErrNotFound):
			user = &User{
				ID:          uuid.New().String(),
				ExternalID:  profile.ExternalID,
				DisplayName: profile.DisplayName,
				Email:       profile.Email,
				AvatarURL:   profile.AvatarURL,
				Role:        d.policy.RoleFor(profile.Email),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
		default:
			return nil, errors.Wrap(err, "[Directory.FindOrCreate] GetByExternalID")
		}

		if err := d.repo.Upsert(fctx, user); err != nil {
			return nil, errors.Wrap(err, "[Directory.FindOrCreate] Upsert")
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*User), nil
}

// refreshProfile writes the login's profile attributes onto an existing user.
// It re-reads the record under the per-user lock so a concurrent SetRole
// landing between the external-id lookup and this write is never overwritten.
func (d *Directory) refreshProfile(ctx context.Context, id string, profile Profile, now time.Time) (*User, error) {
	unlock := d.locks.Lock(id)
	defer unlock()

	user, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Directory.refreshProfile] GetByID")
	}
	user.DisplayName = profile.DisplayName
	user.Email = profile.Email
	user.AvatarURL = profile.AvatarURL
	user.UpdatedAt = now

	if err := d.repo.Upsert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[Directory.refreshProfile] Upsert")
	}
	return user, nil
}

func (d *Directory) GetByID(ctx context.Context, id string) (*User, error) {
	return d.repo.GetByID(ctx, id)
}

func (d *Directory) List(ctx context.Context) ([]*User, error) {
	return d.repo.List(ctx)
}

// SetRole changes a user's role. Callers are expected to have passed the
// admin guard already.
func (d *Directory) SetRole(ctx context.Context, id string, role Role) (*User, error) {
	if !role.Valid() {
		return nil, errors.Wrapf(errs.ErrInvalidRole, "[Directory.SetRole] %q", role)
	}

	unlock := d.locks.Lock(id)
	defer unlock()

	user, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Directory.SetRole] GetByID")
	}
	user.Role = role
	user.UpdatedAt = d.nowTime()
	if err := d.repo.Upsert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[Directory.SetRole] Upsert")
	}
	return user, nil
}
