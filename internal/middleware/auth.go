package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/handler/dto"
	"github.com/linksnip/linksnip/internal/model"
	"github.com/linksnip/linksnip/internal/repository"
)

// UserGetter loads the account behind a session token.
// *repository.Repository satisfies it.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Sessions *auth.SessionIssuer
	Store    UserGetter
}

// Auth returns a middleware that authenticates requests with a bearer
// session token. On success the loaded user is injected into the request
// context; everything else is a 401.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, "You are not logged in. Please login to continue")
				return
			}

			userID, err := cfg.Sessions.Validate(tokenString)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, "Session expired or invalid. Please login again")
				return
			}

			user, err := cfg.Store.GetUserByID(r.Context(), userID)
			if err != nil {
				reason := "lookup_error"
				if errors.Is(err, repository.ErrUserNotFound) {
					reason = "user_not_found"
				}
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("user_id", userID),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, "The user belonging to this session no longer exists")
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken pulls the token out of the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// writeAuthError writes a 401 response in the API error shape.
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		Status:  "fail",
		Message: message,
	})
}
