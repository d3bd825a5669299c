package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/carteira-app/carteira/internal/platform/httpx"
	"github.com/carteira-app/carteira/internal/shared"
)

// RequireUser resolves the Authorization bearer token into a user id in the
// request context, rejecting anonymous requests. The resolved id is trusted
// downstream; services never re-derive it.
func RequireUser(logger *slog.Logger, sessions *shared.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := shared.BearerToken(r)
			if token == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			sess, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, shared.ErrSessionNotFound) {
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
					return
				}
				logger.Error("resolve session", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			ctx := shared.ContextWithUserID(r.Context(), sess.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
