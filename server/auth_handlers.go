package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goalkit/goalkeeper/auth"
	errs "github.com/goalkit/goalkeeper/internal/errors"
)

// stateCookieName holds the anti-forgery value between the redirect to the
// provider and the callback.
const stateCookieName = "oauth_state"

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.flow.NewState()
		if err != nil {
			s.log.Error().Err(err).Msg("failed to generate login state")
			http.Error(w, "Login unavailable", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/auth",
			MaxAge:   600,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, s.flow.AuthorizationURL(state), http.StatusFound)
	}
}

func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue covers both GET query params and form_post callbacks.
		if errorParam := r.FormValue("error"); errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s", errorParam), http.StatusBadRequest)
			return
		}

		code := r.FormValue("code")
		state := r.FormValue("state")
		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		var expectedState string
		if cookie, err := r.Cookie(stateCookieName); err == nil {
			expectedState = cookie.Value
		}
		clearCookie(w, stateCookieName, "/auth")

		session, err := s.flow.HandleCallback(r.Context(), code, state, expectedState)
		if err != nil {
			switch {
			case errs.Is(err, errs.ErrStateMismatch):
				s.log.Warn().Msg("callback rejected: state mismatch")
				http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			case errs.Is(err, errs.ErrExchangeFailed):
				s.log.Warn().Err(err).Msg("callback rejected: code exchange failed")
				http.Error(w, "Login failed, please try again", http.StatusUnauthorized)
			case errs.Is(err, errs.ErrProviderUnavailable):
				s.log.Error().Err(err).Msg("callback failed: provider unavailable")
				http.Error(w, "Login temporarily unavailable", http.StatusServiceUnavailable)
			default:
				s.log.Error().Err(err).Msg("callback failed")
				http.Error(w, "Login failed", http.StatusInternalServerError)
			}
			return
		}

		cookie := &http.Cookie{
			Name:     auth.SessionCookieName,
			Value:    session.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		}
		if session.ExpiresAt != nil {
			cookie.MaxAge = int(time.Until(*session.ExpiresAt).Seconds())
		}
		http.SetCookie(w, cookie)

		fmt.Fprintln(w, "Login successful. You can close this window.")
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if credential := auth.ExtractCredential(r); credential != "" {
			if err := s.flow.Logout(r.Context(), credential); err != nil {
				s.log.Error().Err(err).Msg("logout failed")
				http.Error(w, "Logout failed", http.StatusInternalServerError)
				return
			}
		}
		clearCookie(w, auth.SessionCookieName, "/")
		fmt.Fprintln(w, "Logged out.")
	}
}

func clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
	})
}
