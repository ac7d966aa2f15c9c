package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/themeshop/internal/server/handlers"
	"github.com/iudanet/themeshop/internal/server/token"
	"github.com/iudanet/themeshop/pkg/api"
)

// TokenVerifier проверяет access токен и возвращает subject
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthMiddleware создает middleware для проверки access токена.
// Нет заголовка или не Bearer - 401, токен не прошел проверку - 403.
func AuthMiddleware(logger *slog.Logger, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(ctx, "missing Authorization header", slog.String("path", r.URL.Path))
				handlers.SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "missing token")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				logger.WarnContext(ctx, "invalid Authorization header format", slog.String("path", r.URL.Path))
				handlers.SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "invalid token format")
				return
			}

			userID, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, token.ErrTokenExpired) {
					msg = "token expired"
				}
				logger.WarnContext(ctx, "access token rejected", slog.Any("error", err))
				handlers.SendError(w, http.StatusForbidden, api.CodeForbidden, msg)
				return
			}

			logger.DebugContext(ctx, "user authenticated", slog.String("user_id", userID))

			next.ServeHTTP(w, r.WithContext(handlers.WithUserID(ctx, userID)))
		})
	}
}
