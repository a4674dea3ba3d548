package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/goalkit/goalkeeper/auth"
	"github.com/goalkit/goalkeeper/auth/providerfakes"
	"github.com/goalkit/goalkeeper/goals"
	goalfakes "github.com/goalkit/goalkeeper/goals/repofakes"
	"github.com/goalkit/goalkeeper/internal/config"
	"github.com/goalkit/goalkeeper/provider"
	"github.com/goalkit/goalkeeper/sessions"
	sessionfakes "github.com/goalkit/goalkeeper/sessions/repofakes"
	"github.com/goalkit/goalkeeper/users"
	userfakes "github.com/goalkit/goalkeeper/users/repofakes"
)

type serverFixture struct {
	srv       *Server
	provider  *providerfakes.FakeProvider
	directory *users.Directory
	store     *sessions.Store
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	identityProvider := &providerfakes.FakeProvider{}
	identityProvider.ExchangeCodeFunc = func(code string) (*provider.TokenSet, error) {
		refreshToken := "rt-1"
		expiresIn := int64(3600)
		return &provider.TokenSet{AccessToken: "at-1", RefreshToken: &refreshToken, ExpiresIn: &expiresIn}, nil
	}
	identityProvider.FetchProfileFunc = func(accessToken string) (*users.Profile, error) {
		return &users.Profile{ExternalID: "ext-alice", DisplayName: "Alice", Email: "alice@admin.test"}, nil
	}

	directory, err := users.NewDirectory(userfakes.NewFakeUserRepo(), users.RolePolicy{
		DefaultRole:  users.RoleMember,
		AdminDomains: []string{"admin.test"},
	})
	require.NoError(t, err)

	store, err := sessions.NewStore(sessionfakes.NewFakeSessionRepo())
	require.NoError(t, err)

	authn, err := auth.NewAuthenticator(store, directory, identityProvider)
	require.NoError(t, err)
	flow, err := auth.NewFlow(identityProvider, directory, store)
	require.NoError(t, err)
	goalService, err := goals.NewService(goalfakes.NewFakeGoalRepo())
	require.NoError(t, err)

	return &serverFixture{
		srv:       New(config.New(), zerolog.Nop(), authn, flow, directory, goalService),
		provider:  identityProvider,
		directory: directory,
		store:     store,
	}
}

// seedSession creates a user with the given email plus a live session for it.
func (f *serverFixture) seedSession(t *testing.T, externalID, email string) (*users.User, *sessions.Session) {
	t.Helper()

	user, err := f.directory.FindOrCreate(context.Background(), users.Profile{
		ExternalID:  externalID,
		DisplayName: "Test User",
		Email:       email,
	})
	require.NoError(t, err)

	session, err := f.store.Create(context.Background(), user.ID, provider.TokenSet{AccessToken: "at"})
	require.NoError(t, err)
	return user, session
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func callTool(t *testing.T, f *serverFixture, credential string, floor users.Role, handler toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := auth.WithCredential(context.Background(), credential)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := f.srv.protected(floor, handler)(ctx, req)
	require.NoError(t, err)
	return result
}

func TestLoginRedirectsWithState(t *testing.T) {
	f := setupServer(t)

	rec := httptest.NewRecorder()
	f.srv.LoginHandler()(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)

	var state string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == stateCookieName {
			state = cookie.Value
		}
	}
	require.NotEmpty(t, state)
	require.Contains(t, rec.Header().Get("Location"), "state="+state)
}

func TestCallbackIssuesSessionCookie(t *testing.T) {
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=good&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
	rec := httptest.NewRecorder()
	f.srv.CallbackHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var sessionID string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName {
			sessionID = cookie.Value
		}
	}
	require.NotEmpty(t, sessionID)

	session, err := f.store.Get(context.Background(), sessionID)
	require.NoError(t, err)

	user, err := f.directory.GetByID(context.Background(), session.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice@admin.test", user.Email)
	require.Equal(t, users.RoleAdmin, user.Role)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=good&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
	rec := httptest.NewRecorder()
	f.srv.CallbackHandler()(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.provider.ExchangeCallCount())
}

func TestLogoutHandlerDestroysSession(t *testing.T) {
	f := setupServer(t)
	_, session := f.seedSession(t, "ext-1", "bob@example.com")

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: session.ID})
	rec := httptest.NewRecorder()
	f.srv.LogoutHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := f.store.Get(context.Background(), session.ID)
	require.Error(t, err)
}

func TestWhoamiTool(t *testing.T) {
	f := setupServer(t)
	_, session := f.seedSession(t, "ext-1", "bob@example.com")

	result := callTool(t, f, session.ID, "", f.srv.handleWhoami, nil)
	require.False(t, result.IsError)
	require.Contains(t, resultText(t, result), "bob@example.com")
}

func TestToolRejectsMissingCredential(t *testing.T) {
	f := setupServer(t)

	result := callTool(t, f, "", "", f.srv.handleWhoami, nil)
	require.True(t, result.IsError)
	require.Equal(t, "unauthenticated: authentication required", resultText(t, result))
}

func TestToolRejectsUnknownSession(t *testing.T) {
	f := setupServer(t)

	result := callTool(t, f, "bogus", "", f.srv.handleWhoami, nil)
	require.True(t, result.IsError)
	require.Equal(t, "unauthenticated: invalid or expired session", resultText(t, result))
}

func TestRoleFloorBlocksReadonly(t *testing.T) {
	f := setupServer(t)
	user, session := f.seedSession(t, "ext-1", "carol@example.com")
	_, err := f.directory.SetRole(context.Background(), user.ID, users.RoleReadOnly)
	require.NoError(t, err)

	result := callTool(t, f, session.ID, users.RoleMember, f.srv.handleCreateGoal, map[string]any{"title": "x"})
	require.True(t, result.IsError)
	require.Equal(t, "insufficient_role: insufficient role", resultText(t, result))

	// The same session still passes the READONLY floor.
	result = callTool(t, f, session.ID, users.RoleReadOnly, f.srv.handleListGoals, nil)
	require.False(t, result.IsError)
}

func TestGoalToolLifecycle(t *testing.T) {
	f := setupServer(t)
	_, session := f.seedSession(t, "ext-1", "bob@example.com")

	result := callTool(t, f, session.ID, users.RoleMember, f.srv.handleCreateGoal, map[string]any{"title": "learn go"})
	require.False(t, result.IsError)
	require.Contains(t, resultText(t, result), "learn go")

	result = callTool(t, f, session.ID, users.RoleReadOnly, f.srv.handleListGoals, nil)
	require.False(t, result.IsError)
	require.Contains(t, resultText(t, result), "learn go")
}

func TestSetUserRoleTool(t *testing.T) {
	f := setupServer(t)
	target, _ := f.seedSession(t, "ext-target", "bob@example.com")
	_, adminSession := f.seedSession(t, "ext-admin", "alice@admin.test")

	result := callTool(t, f, adminSession.ID, users.RoleAdmin, f.srv.handleSetUserRole, map[string]any{
		"user_id": target.ID,
		"role":    "READONLY",
	})
	require.False(t, result.IsError)

	updated, err := f.directory.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, users.RoleReadOnly, updated.Role)

	result = callTool(t, f, adminSession.ID, users.RoleAdmin, f.srv.handleSetUserRole, map[string]any{
		"user_id": target.ID,
		"role":    "SUPERUSER",
	})
	require.True(t, result.IsError)
}

func TestHealthEndpoint(t *testing.T) {
	f := setupServer(t)

	rec := httptest.NewRecorder()
	f.srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
