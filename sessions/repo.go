package sessions

import "context"

// Repo is the persistence contract for sessions.
type Repo interface {
	Upsert(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)

	// Delete is idempotent; deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}
