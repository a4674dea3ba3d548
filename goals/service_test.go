package goals_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goalkit/goalkeeper/goals"
	"github.com/goalkit/goalkeeper/goals/repofakes"
	errs "github.com/goalkit/goalkeeper/internal/errors"
)

var (
	alice = goals.Actor{UserID: "alice"}
	bob   = goals.Actor{UserID: "bob"}
	root  = goals.Actor{UserID: "root", Admin: true}
)

func newTestService(t *testing.T) *goals.Service {
	t.Helper()

	service, err := goals.NewService(repofakes.NewFakeGoalRepo())
	require.NoError(t, err)
	return service
}

func TestCreateAndListGoals(t *testing.T) {
	service := newTestService(t)

	goal, err := service.CreateGoal(context.Background(), alice, "learn go")
	require.NoError(t, err)
	require.Equal(t, "alice", goal.OwnerID)
	require.Equal(t, goals.StatusActive, goal.Status)

	_, err = service.CreateGoal(context.Background(), bob, "run a marathon")
	require.NoError(t, err)

	mine, err := service.ListGoals(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "learn go", mine[0].Title)
}

func TestUpdateGoalOwnership(t *testing.T) {
	service := newTestService(t)

	goal, err := service.CreateGoal(context.Background(), alice, "learn go")
	require.NoError(t, err)

	status := goals.StatusCompleted
	_, err = service.UpdateGoal(context.Background(), bob, goal.ID, nil, &status)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrNotFound)) // existence is not revealed

	updated, err := service.UpdateGoal(context.Background(), alice, goal.ID, nil, &status)
	require.NoError(t, err)
	require.Equal(t, goals.StatusCompleted, updated.Status)

	// Admins may act on anyone's goal.
	title := "learn go deeply"
	updated, err = service.UpdateGoal(context.Background(), root, goal.ID, &title, nil)
	require.NoError(t, err)
	require.Equal(t, "learn go deeply", updated.Title)
}

func TestUpdateGoalRejectsUnknownStatus(t *testing.T) {
	service := newTestService(t)

	goal, err := service.CreateGoal(context.Background(), alice, "learn go")
	require.NoError(t, err)

	bad := goals.Status("paused")
	_, err = service.UpdateGoal(context.Background(), alice, goal.ID, nil, &bad)
	require.Error(t, err)
}

func TestDeleteGoalRemovesTodos(t *testing.T) {
	service := newTestService(t)

	goal, err := service.CreateGoal(context.Background(), alice, "learn go")
	require.NoError(t, err)
	todo, err := service.AddTodo(context.Background(), alice, goal.ID, "read the tour")
	require.NoError(t, err)

	require.NoError(t, service.DeleteGoal(context.Background(), alice, goal.ID))

	_, err = service.CompleteTodo(context.Background(), alice, todo.ID)
	require.Error(t, err)
}

func TestTodoLifecycle(t *testing.T) {
	service := newTestService(t)

	goal, err := service.CreateGoal(context.Background(), alice, "learn go")
	require.NoError(t, err)

	todo, err := service.AddTodo(context.Background(), alice, goal.ID, "read the tour")
	require.NoError(t, err)
	require.False(t, todo.Done)

	_, err = service.AddTodo(context.Background(), bob, goal.ID, "sneak in")
	require.Error(t, err)

	done, err := service.CompleteTodo(context.Background(), alice, todo.ID)
	require.NoError(t, err)
	require.True(t, done.Done)

	todos, err := service.ListTodos(context.Background(), alice, goal.ID)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	require.True(t, todos[0].Done)

	_, err = service.ListTodos(context.Background(), bob, goal.ID)
	require.Error(t, err)
}
