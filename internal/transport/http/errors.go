package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every failure as {"error": message}. Unmatched routes
// read "Endpoint not found" and server faults never expose their cause.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	switch {
	case errors.Is(err, echo.ErrNotFound), errors.Is(err, echo.ErrMethodNotAllowed):
		code, msg = http.StatusNotFound, "Endpoint not found"
	case code >= 500 && code != http.StatusServiceUnavailable:
		code, msg = http.StatusInternalServerError, "Internal server error"
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}
