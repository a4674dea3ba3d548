package jsonfile

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/users"
	"github.com/pkg/errors"
)

var _ users.Repo = (*UserRepo)(nil)

// UserRepo persists users in users.json, keyed by internal id with an
// in-memory secondary index by external id rebuilt on load.
type UserRepo struct {
	path       string
	lock       sync.RWMutex
	byID       map[string]*users.User
	byExternal map[string]string // externalID -> userID
}

func NewUserRepo(dataFolder string) (*UserRepo, error) {
	r := &UserRepo{
		path:       filepath.Join(dataFolder, "users.json"),
		byID:       make(map[string]*users.User),
		byExternal: make(map[string]string),
	}

	var records []*users.User
	if err := load(r.path, &records); err != nil {
		return nil, errors.Wrap(err, "[NewUserRepo] load")
	}
	for _, user := range records {
		r.byID[user.ID] = user
		r.byExternal[user.ExternalID] = user.ID
	}
	return r, nil
}

func (r *UserRepo) Upsert(ctx context.Context, user *users.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if existingID, ok := r.byExternal[user.ExternalID]; ok && existingID != user.ID {
		return errors.Errorf("[UserRepo.Upsert] external id %s already bound to another user", user.ExternalID)
	}

	cp := *user
	r.byID[cp.ID] = &cp
	r.byExternal[cp.ExternalID] = cp.ID
	return r.persistLocked()
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "[UserRepo.GetByID] %s", id)
	}
	cp := *user
	return &cp, nil
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "[UserRepo.GetByExternalID] %s", externalID)
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*users.User, 0, len(r.byID))
	for _, user := range r.byID {
		cp := *user
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepo) persistLocked() error {
	records := make([]*users.User, 0, len(r.byID))
	for _, user := range r.byID {
		records = append(records, user)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return commit(r.path, records)
}
