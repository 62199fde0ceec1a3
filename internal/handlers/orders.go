package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/middleware/auth"
	"github.com/Skotchmaster/retail_market/internal/service"
	"github.com/Skotchmaster/retail_market/internal/transport"
)

type OrderHandler struct {
	Svc *service.Service
}

func (h *OrderHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders_list")

	retailerID, err := parseID(c, "retailerId")
	if err != nil {
		return err
	}

	items, err := h.Svc.ListOrders(ctx, retailerID)
	if err != nil {
		return fail(l, "orders_list_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders_update")

	var req transport.OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "order_update_error", err)
	}
	callerID, _ := auth.RetailerID(c)

	order, err := h.Svc.UpdateOrderStatus(ctx, callerID, req)
	if err != nil {
		return fail(l, "order_update_error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Order status updated to " + string(order.Status),
		"order":   order,
	})
}

// Place is the customer-facing checkout; it needs no retailer token.
func (h *OrderHandler) Place(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders_place")

	var req transport.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "order_place_error", err)
	}

	order, err := h.Svc.PlaceOrder(ctx, req)
	if err != nil {
		return fail(l, "order_place_error", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Order placed successfully", "order": order})
}
