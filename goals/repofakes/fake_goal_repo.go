package repofakes

import (
	"context"
	"sort"
	"sync"

	"github.com/goalkit/goalkeeper/goals"
	errs "github.com/goalkit/goalkeeper/internal/errors"
)

var _ goals.Repo = (*FakeGoalRepo)(nil)

type FakeGoalRepo struct {
	goals map[string]*goals.Goal
	todos map[string]*goals.Todo
	lock  sync.RWMutex
}

func NewFakeGoalRepo() *FakeGoalRepo {
	return &FakeGoalRepo{
		goals: make(map[string]*goals.Goal),
		todos: make(map[string]*goals.Todo),
	}
}

func (r *FakeGoalRepo) UpsertGoal(_ context.Context, goal *goals.Goal) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *goal
	r.goals[cp.ID] = &cp
	return nil
}

func (r *FakeGoalRepo) GetGoal(_ context.Context, id string) (*goals.Goal, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	goal, ok := r.goals[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *goal
	return &cp, nil
}

func (r *FakeGoalRepo) ListGoalsByOwner(_ context.Context, ownerID string) ([]*goals.Goal, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var out []*goals.Goal
	for _, goal := range r.goals {
		if goal.OwnerID == ownerID {
			cp := *goal
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *FakeGoalRepo) DeleteGoal(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.goals, id)
	for todoID, todo := range r.todos {
		if todo.GoalID == id {
			delete(r.todos, todoID)
		}
	}
	return nil
}

func (r *FakeGoalRepo) UpsertTodo(_ context.Context, todo *goals.Todo) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *todo
	r.todos[cp.ID] = &cp
	return nil
}

func (r *FakeGoalRepo) GetTodo(_ context.Context, id string) (*goals.Todo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	todo, ok := r.todos[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *todo
	return &cp, nil
}

func (r *FakeGoalRepo) ListTodosByGoal(_ context.Context, goalID string) ([]*goals.Todo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var out []*goals.Todo
	for _, todo := range r.todos {
		if todo.GoalID == goalID {
			cp := *todo
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
