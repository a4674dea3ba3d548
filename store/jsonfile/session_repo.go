package jsonfile

import (
	"context"
	"path/filepath"
	"sync"

	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/sessions"
	"github.com/pkg/errors"
)

var _ sessions.Repo = (*SessionRepo)(nil)

// SessionRepo persists sessions in sessions.json keyed by session id.
type SessionRepo struct {
	path     string
	lock     sync.RWMutex
	sessions map[string]*sessions.Session
}

func NewSessionRepo(dataFolder string) (*SessionRepo, error) {
	r := &SessionRepo{
		path:     filepath.Join(dataFolder, "sessions.json"),
		sessions: make(map[string]*sessions.Session),
	}

	var records []*sessions.Session
	if err := load(r.path, &records); err != nil {
		return nil, errors.Wrap(err, "[NewSessionRepo] load")
	}
	for _, session := range records {
		r.sessions[session.ID] = session
	}
	return r, nil
}

func (r *SessionRepo) Upsert(ctx context.Context, session *sessions.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *session
	r.sessions[cp.ID] = &cp
	return r.persistLocked()
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return nil
	}
	delete(r.sessions, id)
	return r.persistLocked()
}

func (r *SessionRepo) persistLocked() error {
	records := make([]*sessions.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		records = append(records, session)
	}
	return commit(r.path, records)
}
