package repofakes

import (
	"context"
	"sync"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
	}
}

func (r *FakeSessionRepo) Upsert(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *session
	r.sessions[cp.ID] = &cp
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, id string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.sessions, id)
	return nil
}

// Count returns the number of stored sessions.
func (r *FakeSessionRepo) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.sessions)
}
