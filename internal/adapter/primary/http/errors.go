package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/labstack/echo/v4"
)

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// statusFor maps a core error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrPaymentNotFound):
		return http.StatusNotFound
	case core.IsInvalidTransition(err), errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized), errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrConcurrentUpdate), errors.Is(err, core.ErrUserExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Internal errors are logged and replaced
// with fallback so storage details do not leak to callers.
func respondError(c echo.Context, err error, fallback string) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
		if fallback == "" {
			fallback = "Internal server error"
		}
		return c.JSON(status, errorBody(fallback))
	}
	return c.JSON(status, errorBody(err.Error()))
}
