package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/middleware/auth"
	"github.com/Skotchmaster/retail_market/internal/service"
	"github.com/Skotchmaster/retail_market/internal/transport"
	"github.com/Skotchmaster/retail_market/internal/util"
)

type InventoryHandler struct {
	Svc *service.Service
}

func (h *InventoryHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory_list")

	retailerID, err := parseID(c, "retailerId")
	if err != nil {
		return err
	}

	items, err := h.Svc.ListInventory(ctx, retailerID)
	if err != nil {
		return fail(l, "inventory_list_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *InventoryHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory_search")

	retailerID, err := parseID(c, "retailerId")
	if err != nil {
		return err
	}
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.SearchInventory(ctx, retailerID, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(l, "inventory_search_error", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory_update")

	var req transport.InventoryUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "inventory_update_error", err)
	}
	callerID, _ := auth.RetailerID(c)

	p, created, err := h.Svc.UpdateInventory(ctx, callerID, req)
	if err != nil {
		return fail(l, "inventory_update_error", err)
	}

	if created {
		l.Info("product_created", "product_id", p.ID)
		return c.JSON(http.StatusCreated, echo.Map{"message": "Product added successfully", "product": p})
	}
	l.Info("product_updated", "product_id", p.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Product updated successfully", "product": p})
}

func (h *InventoryHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory_delete")

	var req transport.InventoryDeleteRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "inventory_delete_error", err)
	}
	callerID, _ := auth.RetailerID(c)

	if err := h.Svc.DeleteProduct(ctx, callerID, req); err != nil {
		return fail(l, "inventory_delete_error", err)
	}

	l.Info("product_deleted", "product_id", *req.ProductID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product deleted successfully"})
}
