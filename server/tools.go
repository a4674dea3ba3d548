package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/goalkit/goalkeeper/auth"
	"github.com/goalkit/goalkeeper/goals"
	errs "github.com/goalkit/goalkeeper/internal/errors"
	"github.com/goalkit/goalkeeper/users"
)

// toolHandler is what tool bodies implement once the caller has been
// authenticated and passed the role guard.
type toolHandler func(ctx context.Context, principal *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Show the authenticated user and their role"),
	), s.protected("", s.handleWhoami))

	s.mcp.AddTool(mcp.NewTool("logout",
		mcp.WithDescription("End the current session"),
	), s.protected("", s.handleLogout))

	s.mcp.AddTool(mcp.NewTool("list_users",
		mcp.WithDescription("List all registered users"),
	), s.protected(users.RoleAdmin, s.handleListUsers))

	s.mcp.AddTool(mcp.NewTool("set_user_role",
		mcp.WithDescription("Change a user's role"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user to update")),
		mcp.WithString("role", mcp.Required(), mcp.Description("New role: READONLY, MEMBER or ADMIN")),
	), s.protected(users.RoleAdmin, s.handleSetUserRole))

	s.mcp.AddTool(mcp.NewTool("create_goal",
		mcp.WithDescription("Create a new goal"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Goal title")),
	), s.protected(users.RoleMember, s.handleCreateGoal))

	s.mcp.AddTool(mcp.NewTool("update_goal",
		mcp.WithDescription("Update a goal's title or status"),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("ID of the goal")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("status", mcp.Description("New status: active, completed or abandoned")),
	), s.protected(users.RoleMember, s.handleUpdateGoal))

	s.mcp.AddTool(mcp.NewTool("delete_goal",
		mcp.WithDescription("Delete a goal and its todos"),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("ID of the goal")),
	), s.protected(users.RoleMember, s.handleDeleteGoal))

	s.mcp.AddTool(mcp.NewTool("add_todo",
		mcp.WithDescription("Add a todo item to a goal"),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("ID of the goal")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Todo text")),
	), s.protected(users.RoleMember, s.handleAddTodo))

	s.mcp.AddTool(mcp.NewTool("complete_todo",
		mcp.WithDescription("Mark a todo item as done"),
		mcp.WithString("todo_id", mcp.Required(), mcp.Description("ID of the todo")),
	), s.protected(users.RoleMember, s.handleCompleteTodo))

	s.mcp.AddTool(mcp.NewTool("list_goals",
		mcp.WithDescription("List the caller's goals"),
	), s.protected(users.RoleReadOnly, s.handleListGoals))

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List the todo items of a goal"),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("ID of the goal")),
	), s.protected(users.RoleReadOnly, s.handleListTodos))
}

// protected wraps a tool body with authentication and the role floor. The
// credential was lifted into the context by the HTTP transport.
func (s *Server) protected(floor users.Role, handler toolHandler) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		principal, rejection := s.authn.Authenticate(ctx, auth.CredentialFromContext(ctx))
		if rejection != nil {
			return rejectionResult(rejection), nil
		}
		if rejection := auth.Require(principal, floor); rejection != nil {
			return rejectionResult(rejection), nil
		}
		return handler(ctx, principal, req)
	}
}

func rejectionResult(rejection *auth.Rejection) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", rejection.Code, rejection.Message))
}

func (s *Server) actorFor(principal *auth.Principal) goals.Actor {
	return goals.Actor{
		UserID: principal.UserID,
		Admin:  principal.Role.AtLeast(users.RoleAdmin),
	}
}

func (s *Server) handleWhoami(ctx context.Context, principal *auth.Principal, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := s.directory.GetByID(ctx, principal.UserID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(user)
}

func (s *Server) handleLogout(ctx context.Context, principal *auth.Principal, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.flow.Logout(ctx, principal.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Logged out."), nil
}

func (s *Server) handleListUsers(ctx context.Context, _ *auth.Principal, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.directory.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) handleSetUserRole(ctx context.Context, _ *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	roleArg, err := req.RequireString("role")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	role, ok := users.ParseRole(roleArg)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown role %q", roleArg)), nil
	}
	user, err := s.directory.SetRole(ctx, userID, role)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(user)
}

func (s *Server) handleCreateGoal(ctx context.Context, principal *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	goal, err := s.goals.CreateGoal(ctx, s.actorFor(principal), title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(goal)
}

func (s *Server) handleUpdateGoal(ctx context.Context, principal *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := req.RequireString("goal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var title *string
	if v := req.GetString("title", ""); v != "" {
		title = &v
	}
	var status *goals.Status
	if v := req.GetString("status", ""); v != "" {
		st := goals.Status(v)
		status = &st
	}

	goal, err := s.goals.UpdateGoal(ctx, s.actorFor(principal), goalID, title, status)
	if err != nil {
		return goalErrorResult(err), nil
	}
	return jsonResult(goal)
}

func (s *Server) handleDeleteGoal(ctx context.Context, principal *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := req.RequireString("goal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.goals.DeleteGoal(ctx, s.actorFor(principal), goalID); err != nil {
		return goalErrorResult(err), nil
	}
	return mcp.NewToolResultText("Goal deleted."), nil
}

func (s *Server) handleAddTodo(ctx context.Context, principal *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := req.RequireString("goal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	todo, err := s.goals.AddTodo(ctx, s.actorFor(principal), goalID, text)
	if err != nil {
		return goalErrorResult(err), nil
	}
	return jsonResult(todo)
}

func (s *Server) handleCompleteTodo(ctx context.Context, principal *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todoID, err := req.RequireString("todo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	todo, err := s.goals.CompleteTodo(ctx, s.actorFor(principal), todoID)
	if err != nil {
		return goalErrorResult(err), nil
	}
	return jsonResult(todo)
}

func (s *Server) handleListGoals(ctx context.Context, principal *auth.Principal, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.goals.ListGoals(ctx, s.actorFor(principal))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) handleListTodos(ctx context.Context, principal *auth.Principal, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := req.RequireString("goal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.goals.ListTodos(ctx, s.actorFor(principal), goalID)
	if err != nil {
		return goalErrorResult(err), nil
	}
	return jsonResult(list)
}

// goalErrorResult keeps not-found responses uniform so callers cannot probe
// for goals they do not own.
func goalErrorResult(err error) *mcp.CallToolResult {
	if errs.Is(err, errs.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
