package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/service"
	"github.com/Skotchmaster/retail_market/internal/transport"
)

type RetailerHandler struct {
	Svc *service.Service
}

func (h *RetailerHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "retailer_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "register_error", err)
	}

	res, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_successful", "retailer_id", res.Retailer.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Retailer registered successfully",
		"retailer": res.Retailer,
		"token":    res.Token,
	})
}

func (h *RetailerHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "retailer_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "login_error", err)
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	l.Info("login_successful", "retailer_id", res.Retailer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Login successful",
		"retailer": res.Retailer,
		"token":    res.Token,
	})
}

func (h *RetailerHandler) ResolveID(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "retailer_resolve_id")

	id, err := h.Svc.ResolveID(ctx, c.Param("username"))
	if err != nil {
		return fail(l, "resolve_id_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"retailer_id": id})
}
