package middlewares

import (
	"context"
	"net/http"
	"slices"

	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/request"
)

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=middlewares

// Error variables
var (
	ErrNotLoggedIn  = apperror.Unauthorized("You are not logged in! Please log in to get access.")
	ErrNoPermission = apperror.Forbidden("You do not have permission to perform this action")
)

// Tokener extracts the session token of a request.
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) // Reads the token from the cookie or bearer header
}

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*models.User, error) // Validates the token and loads the user
}

// Protect rejects requests without a valid session and stores the user in
// the request context.
func Protect(tokener Tokener, auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, err := tokener.GetTokenFromRequest(ctx, r)
			if err != nil {
				logger.Log.Infow("authorization failed", "err", err)
				apperror.Write(w, ErrNotLoggedIn)
				return
			}

			u, err := auth.Authenticate(ctx, tokenString)
			if err != nil {
				logger.Log.Infow("authorization failed", "err", err)
				apperror.Write(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, u)))
		})
	}
}

// Identify loads the user of a valid session but lets anonymous requests
// through.
func Identify(tokener Tokener, auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, err := tokener.GetTokenFromRequest(ctx, r)
			if err == nil {
				if u, err := auth.Authenticate(ctx, tokenString); err == nil {
					ctx = request.WithUser(ctx, u)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RestrictTo only admits users with one of roles. It runs after Protect.
func RestrictTo(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := request.User(r.Context())
			if u == nil {
				apperror.Write(w, ErrNotLoggedIn)
				return
			}
			if !slices.Contains(roles, u.Role) {
				apperror.Write(w, ErrNoPermission)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
