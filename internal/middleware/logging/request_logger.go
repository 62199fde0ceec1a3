package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/middleware/auth"
)

// RequestLogger puts a request-scoped logger into the request context and
// writes one http_request record per call. Handler errors are rendered here
// so the logged status is the one the client received.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := base.With("method", req.Method, "route", c.Path())
			if rid := requestID(c); rid != "" {
				l = l.With("request_id", rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			attrs := []any{
				"status", res.Status,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
				"latency_ms", time.Since(start).Milliseconds(),
				"bytes_out", res.Size,
			}
			if id, ok := auth.RetailerID(c); ok {
				attrs = append(attrs, "retailer_id", id, "username", auth.Username(c))
			}
			if res.Header().Get("Idempotent-Replayed") != "" {
				attrs = append(attrs, "replayed", true)
			}

			switch {
			case res.Status >= 500:
				if err != nil {
					attrs = append(attrs, "error", err.Error())
				}
				l.Error("http_request", attrs...)
			case res.Status >= 400:
				l.Warn("http_request", attrs...)
			default:
				l.Info("http_request", attrs...)
			}
			return nil
		}
	}
}

func requestID(c echo.Context) string {
	if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
