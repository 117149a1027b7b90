package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	gateapp "github.com/khanhnv2901/seca-suite/internal/application/gate"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	tokenKey   contextKey = "token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	User      *gateapp.SessionView `json:"user"`
}

// requireSession rejects requests without a valid bearer token
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="seca-suite"`)
			s.writeError(w, r, http.StatusUnauthorized, sharedErrors.ErrUnauthorized)
			return
		}

		sess, err := s.cfg.Gate.Authenticate(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="seca-suite", error="invalid_token"`)
			s.writeServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = context.WithValue(ctx, tokenKey, token)
		next(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	token, sess, err := s.cfg.Gate.IssueToken(r.Context(), req.Username, req.Password)
	if err != nil {
		var invalid *session.InvalidCredentialsError
		var locked *session.LockedError
		switch {
		case errors.As(err, &locked):
			s.requestLogger(r).Warn("login_locked", zap.Duration("remaining", locked.Remaining))
			writeJSON(w, http.StatusLocked, map[string]interface{}{
				"error":        locked.Error(),
				"remaining_ms": locked.RemainingMillis(),
			})
		case errors.As(err, &invalid):
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error":              "invalid credentials",
				"attempts_remaining": invalid.AttemptsRemaining,
			})
		default:
			s.writeServiceError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt(),
		User:      gateapp.NewSessionView(sess),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Gate.Revoke(r.Context(), sessionFrom(r.Context()), tokenFrom(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gateapp.NewSessionView(sessionFrom(r.Context())))
}

func (s *Server) handleLockout(w http.ResponseWriter, r *http.Request) {
	remaining, err := s.cfg.Gate.RemainingLockout(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"locked":       remaining > 0,
		"remaining_ms": remaining.Milliseconds(),
	})
}
