package jsonfile

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goalkit/goalkeeper/goals"
	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/pkg/errors"
)

var _ goals.Repo = (*GoalRepo)(nil)

// GoalRepo persists goals and their todos together in goals.json.
type GoalRepo struct {
	path  string
	lock  sync.RWMutex
	goals map[string]*goals.Goal
	todos map[string]*goals.Todo
}

type goalFile struct {
	Goals []*goals.Goal `json:"goals"`
	Todos []*goals.Todo `json:"todos"`
}

func NewGoalRepo(dataFolder string) (*GoalRepo, error) {
	r := &GoalRepo{
		path:  filepath.Join(dataFolder, "goals.json"),
		goals: make(map[string]*goals.Goal),
		todos: make(map[string]*goals.Todo),
	}

	var records goalFile
	if err := load(r.path, &records); err != nil {
		return nil, errors.Wrap(err, "[NewGoalRepo] load")
	}
	for _, goal := range records.Goals {
		r.goals[goal.ID] = goal
	}
	for _, todo := range records.Todos {
		r.todos[todo.ID] = todo
	}
	return r, nil
}

func (r *GoalRepo) UpsertGoal(ctx context.Context, goal *goals.Goal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *goal
	r.goals[cp.ID] = &cp
	return r.persistLocked()
}

func (r *GoalRepo) GetGoal(ctx context.Context, id string) (*goals.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	goal, ok := r.goals[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "[GoalRepo.GetGoal] %s", id)
	}
	cp := *goal
	return &cp, nil
}

func (r *GoalRepo) ListGoalsByOwner(ctx context.Context, ownerID string) ([]*goals.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

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

func (r *GoalRepo) DeleteGoal(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.goals[id]; !ok {
		return nil
	}
	delete(r.goals, id)
	for todoID, todo := range r.todos {
		if todo.GoalID == id {
			delete(r.todos, todoID)
		}
	}
	return r.persistLocked()
}

func (r *GoalRepo) UpsertTodo(ctx context.Context, todo *goals.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *todo
	r.todos[cp.ID] = &cp
	return r.persistLocked()
}

func (r *GoalRepo) GetTodo(ctx context.Context, id string) (*goals.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	todo, ok := r.todos[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "[GoalRepo.GetTodo] %s", id)
	}
	cp := *todo
	return &cp, nil
}

func (r *GoalRepo) ListTodosByGoal(ctx context.Context, goalID string) ([]*goals.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

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

func (r *GoalRepo) persistLocked() error {
	records := goalFile{
		Goals: make([]*goals.Goal, 0, len(r.goals)),
		Todos: make([]*goals.Todo, 0, len(r.todos)),
	}
	for _, goal := range r.goals {
		records.Goals = append(records.Goals, goal)
	}
	for _, todo := range r.todos {
		records.Todos = append(records.Todos, todo)
	}
	sort.Slice(records.Goals, func(i, j int) bool { return records.Goals[i].CreatedAt.Before(records.Goals[j].CreatedAt) })
	sort.Slice(records.Todos, func(i, j int) bool { return records.Todos[i].CreatedAt.Before(records.Todos[j].CreatedAt) })
	return commit(r.path, records)
}
