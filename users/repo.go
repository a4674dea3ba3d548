package users

import "context"

// Repo is the persistence contract for users. Implementations must keep
// ExternalID unique and make Upsert atomic per user id.
type Repo interface {
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
