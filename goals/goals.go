// Package goals holds the business layer the authentication gate protects:
// per-user goals and their todos. Every operation is scoped to the acting
// principal; there is no ambient "current goal" shared between callers.
package goals

import (
	"context"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

type Goal struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Todo struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goal_id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo is the persistence contract for goals and todos. DeleteGoal also
// removes the goal's todos.
type Repo interface {
	UpsertGoal(ctx context.Context, goal *Goal) error
	GetGoal(ctx context.Context, id string) (*Goal, error)
	ListGoalsByOwner(ctx context.Context, ownerID string) ([]*Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	UpsertTodo(ctx context.Context, todo *Todo) error
	GetTodo(ctx context.Context, id string) (*Todo, error)
	ListTodosByGoal(ctx context.Context, goalID string) ([]*Todo, error)
}
