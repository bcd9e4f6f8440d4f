package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/railgate/ticketing/internal/utils"
)

// GateAuth returns an Echo middleware that authenticates gate devices
// via the x-api-key header before any handler runs. Authentication
// comes first so an unauthenticated caller can never probe ticket
// state: the 401 is produced without touching the store. The
// credential may be provisioned either as a plaintext key (compared
// in constant time) or as a bcrypt hash; when both are set the hash
// wins.
func GateAuth(plainKey, hashedKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented := c.Request().Header.Get("x-api-key")
			if presented == "" || !keyAccepted(presented, plainKey, hashedKey) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"ok": false, "err": "unauthorized"})
			}
			return next(c)
		}
	}
}

func keyAccepted(presented, plainKey, hashedKey string) bool {
	if hashedKey != "" {
		return utils.VerifyAPIKeyHash(hashedKey, presented)
	}
	return utils.EqualAPIKeys(plainKey, presented)
}
