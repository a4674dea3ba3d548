package repofakes

import (
	"context"
	"sort"
	"sync"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	byID       map[string]*users.User
	byExternal map[string]string // externalID -> userID
	lock       sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byID:       make(map[string]*users.User),
		byExternal: make(map[string]string),
	}
}

func (r *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *user
	r.byID[cp.ID] = &cp
	r.byExternal[cp.ExternalID] = cp.ID
	return nil
}

func (r *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *FakeUserRepo) GetByExternalID(_ context.Context, externalID string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *FakeUserRepo) List(_ context.Context) ([]*users.User, error) {
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

// Count returns the number of stored users.
func (r *FakeUserRepo) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.byID)
}
