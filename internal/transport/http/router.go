package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/retail_market/internal/handlers"
	"github.com/Skotchmaster/retail_market/internal/idempotency"
	"github.com/Skotchmaster/retail_market/internal/middleware/auth"
	idempotencymw "github.com/Skotchmaster/retail_market/internal/middleware/idempotency"
	loggingmw "github.com/Skotchmaster/retail_market/internal/middleware/logging"
)

type Deps struct {
	JWTSecret      []byte
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	Ready          func(ctx context.Context) error

	Retailers     *handlers.RetailerHandler
	Inventory     *handlers.InventoryHandler
	Orders        *handlers.OrderHandler
	Notifications *handlers.NotificationHandler
	Dashboard     *handlers.DashboardHandler
}

func New(base *slog.Logger, requestTimeout time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID(), loggingmw.RequestLogger(base), middleware.Recover(), middleware.CORS())
	if requestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout:      requestTimeout,
			ErrorHandler: timeoutError,
		}))
	}
	return e
}

func timeoutError(err error, c echo.Context) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Request timed out").SetInternal(err)
	}
	return err
}

// Register mounts the API at the root and again under /api.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Service not ready").SetInternal(err)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	mount(e.Group(""), d)
	mount(e.Group("/api"), d)
}

func mount(g *echo.Group, d *Deps) {
	authn := auth.RequireAuth(d.JWTSecret)
	owner := auth.RequireOwner("retailerId")
	idem := idempotencymw.Middleware(d.Idempotency, d.IdempotencyTTL)

	g.POST("/retailer/register", d.Retailers.Register)
	g.POST("/retailer/login", d.Retailers.Login)
	g.GET("/retailer/resolve-id/:username", d.Retailers.ResolveID)

	g.GET("/retailer/inventory/:retailerId", d.Inventory.List, authn, owner)
	g.GET("/retailer/inventory/:retailerId/search", d.Inventory.Search, authn, owner)
	g.POST("/retailer/inventory/update", d.Inventory.Update, authn, idem)
	g.POST("/retailer/inventory/delete", d.Inventory.Delete, authn, idem)

	g.GET("/retailer/notifications/:retailerId", d.Notifications.List, authn, owner)
	g.POST("/retailer/notifications/read/:id", d.Notifications.MarkRead, authn)

	g.GET("/retailer/orders/:retailerId", d.Orders.List, authn, owner)
	g.POST("/retailer/orders/update", d.Orders.UpdateStatus, authn, idem)

	g.GET("/retailer/dashboard/stats/:retailerId", d.Dashboard.Stats, authn, owner)

	g.POST("/orders", d.Orders.Place, idem)
}
