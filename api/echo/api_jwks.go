package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// JWKSHandler serves the public signing keys so resource servers can verify
// access tokens without calling back.
func (oa *OAuth2API) JWKSHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, oa.signingKey.JWKS())
}
