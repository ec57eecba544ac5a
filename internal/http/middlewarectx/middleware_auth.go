// Package middlewarectx содержит HTTP middleware аутентификации
// и ограничения частоты запросов.
//
// JWTMiddleware достаёт сессионный токен из заголовка Authorization
// или cookie, проверяет его и кладёт пользователя в контекст запроса.
// При ошибке отвечает 401 Unauthorized.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glift-app/glift-billing/internal/http/response"
	"github.com/glift-app/glift-billing/internal/lib/jwt"
	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User ключ аутентифицированного пользователя в контексте.
const User Key = "user"

// TokenParser проверяет сессионный токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.SessionClaims, error)
}

// UserStore загружает пользователя по идентификатору из токена.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, User, user)
}

// UserFromContext достаёт пользователя, положенного JWTMiddleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(User).(models.User)
	if !ok || user.ID == "" {
		return models.User{}, false
	}
	return user, true
}

// JWTMiddleware возвращает middleware, который аутентифицирует запрос.
// Токен берётся из заголовка "Authorization: Bearer ..." или из cookie cookieName.
func JWTMiddleware(log *slog.Logger, tokens TokenParser, users UserStore, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr := extractToken(r, cookieName)
			if tokenStr == "" {
				log.Warn("missing session token")
				unauthorized(w, r, "missing or invalid authorization header")
				return
			}

			claims, err := tokens.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				unauthorized(w, r, "invalid or expired token")
				return
			}

			user, err := users.GetUser(r.Context(), claims.UserID())
			if errors.Is(err, models.ErrUserNotFound) {
				log.Warn("token subject is not a known user", slog.String("user_id", claims.UserID()))
				unauthorized(w, r, "unknown user")
				return
			}
			if err != nil {
				log.Error("failed to load user", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal error"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *user)))
		})
	}
}

func extractToken(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(msg))
}
