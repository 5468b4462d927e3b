package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/breathemate/breathemate/internal/auth"
)

const timeLayout = time.RFC3339

func nowUTC() time.Time { return time.Now().UTC() }

func newID() string { return uuid.New().String() }

type sessionKey struct{}

// SessionAuth validates the Bearer token against the session store and
// stashes the session in the request context.
func SessionAuth(a *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}

			sess, err := a.Verify(header[len(prefix):])
			if errors.Is(err, auth.ErrInvalidSession) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or expired session")
				return
			}
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to verify session: %v", err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleLogin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		sess, err := deps.Auth.Login(req.Email, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid email or password")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "login failed: %v", err)
			return
		}

		writeJSON(w, map[string]string{
			"token":     sess.Token,
			"email":     sess.Email,
			"expiresAt": sess.ExpiresAt.Format(timeLayout),
		})
	}
}

func handleLogout(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")

		if err := deps.Auth.Logout(token); err != nil && !errors.Is(err, auth.ErrInvalidSession) {
			httpError(w, http.StatusInternalServerError, "api_error", "logout failed: %v", err)
			return
		}

		writeJSON(w, map[string]string{"status": "logged_out"})
	}
}
