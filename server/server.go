// Package server exposes the goal tools over MCP and the login flow over
// plain HTTP. Every tool invocation passes the authenticator and the role
// guard before any business code runs.
package server

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/goalkit/goalkeeper/auth"
	"github.com/goalkit/goalkeeper/goals"
	"github.com/goalkit/goalkeeper/internal/config"
	"github.com/goalkit/goalkeeper/users"
)

const serverVersion = "1.0.0"

type Server struct {
	cfg       config.Config
	log       zerolog.Logger
	authn     *auth.Authenticator
	flow      *auth.Flow
	directory *users.Directory
	goals     *goals.Service

	mcp        *mcpserver.MCPServer
	httpServer *http.Server
}

func New(cfg config.Config, log zerolog.Logger, authn *auth.Authenticator, flow *auth.Flow, directory *users.Directory, goalService *goals.Service) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		authn:     authn,
		flow:      flow,
		directory: directory,
		goals:     goalService,
	}

	s.mcp = mcpserver.NewMCPServer(
		cfg.GetAppName(),
		serverVersion,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()

	// The transport lifts the session credential (cookie or bearer header)
	// into the context; the authenticator owns all interpretation.
	streamable := mcpserver.NewStreamableHTTPServer(
		s.mcp,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return auth.WithCredential(ctx, auth.ExtractCredential(r))
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	mux.HandleFunc("/auth/login", s.LoginHandler())
	mux.HandleFunc("/auth/callback", s.CallbackHandler())
	mux.HandleFunc("/auth/logout", s.LogoutHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Addr:    cfg.GetPort(),
		Handler: mux,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
