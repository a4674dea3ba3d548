package goals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	errs "github.com/goalkit/goalkeeper/internal/errors"
)

// Actor identifies who is performing an operation. Admins may act on any
// goal; everyone else only on their own.
type Actor struct {
	UserID string
	Admin  bool
}

type Service struct {
	repo    Repo
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo Repo, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[goals.NewService] repo is required")
	}
	s := &Service{
		repo:    repo,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Service) CreateGoal(ctx context.Context, actor Actor, title string) (*Goal, error) {
	if title == "" {
		return nil, errors.New("[Service.CreateGoal] title is required")
	}
	now := s.nowTime()
	goal := &Goal{
		ID:        uuid.New().String(),
		OwnerID:   actor.UserID,
		Title:     title,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertGoal(ctx, goal); err != nil {
		return nil, errors.Wrap(err, "[Service.CreateGoal] UpsertGoal")
	}
	return goal, nil
}

func (s *Service) ListGoals(ctx context.Context, actor Actor) ([]*Goal, error) {
	return s.repo.ListGoalsByOwner(ctx, actor.UserID)
}

func (s *Service) UpdateGoal(ctx context.Context, actor Actor, id string, title *string, status *Status) (*Goal, error) {
	goal, err := s.ownedGoal(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if title != nil && *title != "" {
		goal.Title = *title
	}
	if status != nil {
		if !status.Valid() {
			return nil, errors.Errorf("[Service.UpdateGoal] unknown status %q", *status)
		}
		goal.Status = *status
	}
	goal.UpdatedAt = s.nowTime()
	if err := s.repo.UpsertGoal(ctx, goal); err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateGoal] UpsertGoal")
	}
	return goal, nil
}

func (s *Service) DeleteGoal(ctx context.Context, actor Actor, id string) error {
	if _, err := s.ownedGoal(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.DeleteGoal(ctx, id); err != nil {
		return errors.Wrap(err, "[Service.DeleteGoal] DeleteGoal")
	}
	return nil
}

func (s *Service) AddTodo(ctx context.Context, actor Actor, goalID, text string) (*Todo, error) {
	if text == "" {
		return nil, errors.New("[Service.AddTodo] text is required")
	}
	if _, err := s.ownedGoal(ctx, actor, goalID); err != nil {
		return nil, err
	}
	todo := &Todo{
		ID:        uuid.New().String(),
		GoalID:    goalID,
		Text:      text,
		CreatedAt: s.nowTime(),
	}
	if err := s.repo.UpsertTodo(ctx, todo); err != nil {
		return nil, errors.Wrap(err, "[Service.AddTodo] UpsertTodo")
	}
	return todo, nil
}

func (s *Service) CompleteTodo(ctx context.Context, actor Actor, todoID string) (*Todo, error) {
	todo, err := s.repo.GetTodo(ctx, todoID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.CompleteTodo] GetTodo")
	}
	if _, err := s.ownedGoal(ctx, actor, todo.GoalID); err != nil {
		return nil, err
	}
	todo.Done = true
	if err := s.repo.UpsertTodo(ctx, todo); err != nil {
		return nil, errors.Wrap(err, "[Service.CompleteTodo] UpsertTodo")
	}
	return todo, nil
}

func (s *Service) ListTodos(ctx context.Context, actor Actor, goalID string) ([]*Todo, error) {
	if _, err := s.ownedGoal(ctx, actor, goalID); err != nil {
		return nil, err
	}
	return s.repo.ListTodosByGoal(ctx, goalID)
}

// ownedGoal loads a goal and enforces ownership. Non-owners get the same
// error whether the goal exists or not.
func (s *Service) ownedGoal(ctx context.Context, actor Actor, id string) (*Goal, error) {
	goal, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.ownedGoal] GetGoal")
	}
	if goal.OwnerID != actor.UserID && !actor.Admin {
		return nil, errors.Wrapf(errs.ErrNotFound, "[Service.ownedGoal] goal %s", id)
	}
	return goal, nil
}
