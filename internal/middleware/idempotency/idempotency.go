package idempotencymw

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/idempotency"
	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/middleware/auth"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

type captureWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped by caller, method and route; callers
// without a token are told apart by client IP. Requests without the header
// pass through untouched.
func Middleware(store idempotency.Store, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderKey)
			if key == "" || store == nil {
				return next(c)
			}

			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "idempotency")

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			scoped := scope(c, key)

			existing, err := store.Reserve(ctx, scoped, hash, ttl)
			if err != nil {
				l.Error("idempotency_reserve_error", "error", err)
				return next(c)
			}
			if existing != nil {
				switch {
				case existing.RequestHash != hash:
					l.Warn("idempotency_conflict", "status", http.StatusConflict, "reason", "body mismatch")
					return echo.NewHTTPError(http.StatusConflict, "Idempotency key reused with a different request")
				case existing.Status != idempotency.StatusCompleted:
					l.Warn("idempotency_conflict", "status", http.StatusConflict, "reason", "in flight")
					return echo.NewHTTPError(http.StatusConflict, "A request with this idempotency key is already in progress")
				}
				c.Response().Header().Set(HeaderReplayed, "true")
				return c.Blob(existing.ResponseCode, existing.ContentType, existing.ResponseBody)
			}

			res := c.Response()
			cw := &captureWriter{ResponseWriter: res.Writer}
			res.Writer = cw
			err = next(c)
			res.Writer = cw.ResponseWriter

			if err != nil || res.Status < 200 || res.Status >= 300 {
				if relErr := store.Release(ctx, scoped); relErr != nil {
					l.Error("idempotency_release_error", "error", relErr)
				}
				return err
			}

			rec := idempotency.Record{
				RequestHash:  hash,
				ResponseCode: res.Status,
				ContentType:  res.Header().Get(echo.HeaderContentType),
				ResponseBody: cw.buf.Bytes(),
			}
			if err := store.Complete(ctx, scoped, rec, ttl); err != nil {
				l.Error("idempotency_complete_error", "error", err)
			}
			return nil
		}
	}
}

func scope(c echo.Context, key string) string {
	caller := "anon@" + c.RealIP()
	if id, ok := auth.RetailerID(c); ok {
		caller = strconv.FormatUint(uint64(id), 10)
	}
	return caller + ":" + c.Request().Method + ":" + c.Path() + ":" + key
}
