package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const ContextOwnerKey = "owner_email"

type MiddlewareConfig struct {
	// SkipAuth подставляет DevUserEmail для запросов без токена.
	SkipAuth     bool
	DevUserEmail string
}

// JWTMiddleware проверяет access-токен и сохраняет email владельца в контексте.
// При SkipAuth запросы без заголовка выполняются от имени DevUserEmail.
func JWTMiddleware(manager *TokenManager, cfg MiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if cfg.SkipAuth && cfg.DevUserEmail != "" {
					c.Set(ContextOwnerKey, cfg.DevUserEmail)
					return next(c)
				}
				return unauthorized(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return unauthorized(c)
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" || manager == nil {
				return unauthorized(c)
			}

			claims, err := manager.ParseAccessToken(tokenString)
			if err != nil {
				return unauthorized(c)
			}

			c.Set(ContextOwnerKey, strings.ToLower(strings.TrimSpace(claims.Subject)))
			return next(c)
		}
	}
}

// OwnerFromContext извлекает email владельца из контекста.
func OwnerFromContext(c echo.Context) (string, bool) {
	owner, ok := c.Get(ContextOwnerKey).(string)
	return owner, ok && owner != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}
