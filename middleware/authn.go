// Package middleware provides HTTP middleware for the authorization server
// and for resource servers embedding the token validator.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/onegate-dev/onegate/domain"
	"github.com/onegate-dev/onegate/token"
)

// principalContextKey is the echo context key the authenticated principal is
// stored under.
const principalContextKey = "auth_principal"

// RequireToken returns echo middleware that rejects requests without a valid
// bearer access token. On success the token's principal is stored on the
// request context for handlers downstream.
func RequireToken(validator *token.Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing_token"})
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			principal, err := validator.Validate(tokenParts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			c.Set(principalContextKey, principal)
			return next(c)
		}
	}
}

// PrincipalFromContext returns the principal stored by RequireToken, or nil
// when the request was not authenticated.
func PrincipalFromContext(c echo.Context) *domain.Principal {
	principal, _ := c.Get(principalContextKey).(*domain.Principal)
	return principal
}
