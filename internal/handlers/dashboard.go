package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/service"
)

type DashboardHandler struct {
	Svc *service.Service
}

func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "dashboard_stats")

	retailerID, err := parseID(c, "retailerId")
	if err != nil {
		return err
	}

	st, err := h.Svc.DashboardStats(ctx, retailerID)
	if err != nil {
		return fail(l, "dashboard_stats_error", err)
	}
	return c.JSON(http.StatusOK, st)
}
