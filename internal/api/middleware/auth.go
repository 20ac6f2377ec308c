package middleware

import (
	"context"
	"net/http"

	"github.com/rohits-web03/estately/internal/utils"
)

type contextKey string

const UserIDKey contextKey = "userID"

// SessionCookie carries the signed session token.
const SessionCookie = "jwt"

type TokenParser interface {
	Parse(token string) (string, error)
}

// Auth requires a session cookie: 401 when it is missing, 403 when it does
// not verify. The user id is stored on the request context.
func Auth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				utils.ErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := tokens.Parse(cookie.Value)
			if err != nil {
				utils.ErrorResponse(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFrom returns the session user id, or "" outside Auth.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}
