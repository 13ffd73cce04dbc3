package http

import (
	"strings"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/labstack/echo/v4"
)

// ContextUserKey is the echo context key holding the authorized *core.UserRef
const ContextUserKey = "user"

// BearerAuth authorizes every request through gateway before the handler runs
func BearerAuth(gateway input.TokenGateway) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))

			user, err := gateway.Authorize(c.Request().Context(), token)
			if err != nil {
				return respondError(c, err, "")
			}

			c.Set(ContextUserKey, user)
			return next(c)
		}
	}
}

// UserFromContext returns the identity attached by BearerAuth
func UserFromContext(c echo.Context) (*core.UserRef, bool) {
	user, ok := c.Get(ContextUserKey).(*core.UserRef)
	return user, ok
}

// extractBearerToken returns the token of a "Bearer <token>" header, or "" for
// anything else
func extractBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
