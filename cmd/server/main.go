package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/goalkit/goalkeeper/auth"
	"github.com/goalkit/goalkeeper/goals"
	"github.com/goalkit/goalkeeper/internal/config"
	"github.com/goalkit/goalkeeper/provider"
	"github.com/goalkit/goalkeeper/server"
	"github.com/goalkit/goalkeeper/sessions"
	"github.com/goalkit/goalkeeper/store/jsonfile"
	"github.com/goalkit/goalkeeper/users"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	logger := newLogger(c)
	displayAppname(c.GetAppName())

	srv, err := buildServer(c, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("server.ListenAndServe: %w", err)
	case <-stopSignal():
	}
	return shutdown(srv)
}

func buildServer(c config.Config, logger zerolog.Logger) (*server.Server, error) {
	if err := os.MkdirAll(c.GetDataFolder(), 0o755); err != nil {
		return nil, fmt.Errorf("MkdirAll: %w", err)
	}

	userRepo, err := jsonfile.NewUserRepo(c.GetDataFolder())
	if err != nil {
		return nil, err
	}
	sessionRepo, err := jsonfile.NewSessionRepo(c.GetDataFolder())
	if err != nil {
		return nil, err
	}
	goalRepo, err := jsonfile.NewGoalRepo(c.GetDataFolder())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	identityProvider, err := provider.New(ctx, provider.Config{
		IssuerURL:    c.GetIssuerURL(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURL(),
		Scopes:       c.GetScopes(),
	})
	if err != nil {
		return nil, err
	}

	defaultRole, ok := users.ParseRole(c.GetDefaultRole())
	if !ok {
		defaultRole = users.RoleMember
	}
	directory, err := users.NewDirectory(userRepo, users.RolePolicy{
		DefaultRole:  defaultRole,
		AdminDomains: c.GetAdminDomains(),
	})
	if err != nil {
		return nil, err
	}

	store, err := sessions.NewStore(sessionRepo, sessions.WithTTL(c.GetSessionTTL()))
	if err != nil {
		return nil, err
	}

	authn, err := auth.NewAuthenticator(store, directory, identityProvider, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	flow, err := auth.NewFlow(identityProvider, directory, store, auth.WithFlowLogger(logger))
	if err != nil {
		return nil, err
	}
	goalService, err := goals.NewService(goalRepo)
	if err != nil {
		return nil, err
	}

	return server.New(c, logger, authn, flow, directory, goalService), nil
}

func newLogger(c config.Config) zerolog.Logger {
	if c.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *server.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
