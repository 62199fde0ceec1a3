package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/middleware/auth"
	"github.com/Skotchmaster/retail_market/internal/service"
)

type NotificationHandler struct {
	Svc *service.Service
}

func (h *NotificationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notifications_list")

	retailerID, err := parseID(c, "retailerId")
	if err != nil {
		return err
	}

	items, err := h.Svc.ListNotifications(ctx, retailerID)
	if err != nil {
		return fail(l, "notifications_list_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notifications_read")

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	callerID, _ := auth.RetailerID(c)

	if err := h.Svc.MarkNotificationRead(ctx, callerID, id); err != nil {
		return fail(l, "notification_read_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Notification marked as read"})
}
