package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/retail_market/internal/handlers"
	"github.com/Skotchmaster/retail_market/internal/idempotency"
	"github.com/Skotchmaster/retail_market/internal/service"
	"github.com/Skotchmaster/retail_market/internal/store"
	"github.com/Skotchmaster/retail_market/internal/tokens"
)

var testSecret = []byte("router-secret")

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	e := New(slog.New(slog.NewJSONHandler(io.Discard, nil)), 5*time.Second)
	Register(e, testDeps())
	return e
}

func testDeps() *Deps {
	svc := &service.Service{Store: store.NewMemory(), JWTSecret: testSecret}
	return &Deps{
		JWTSecret:      testSecret,
		Idempotency:    idempotency.NewMemory(),
		IdempotencyTTL: time.Minute,
		Retailers:      &handlers.RetailerHandler{Svc: svc},
		Inventory:      &handlers.InventoryHandler{Svc: svc},
		Orders:         &handlers.OrderHandler{Svc: svc},
		Notifications:  &handlers.NotificationHandler{Svc: svc},
		Dashboard:      &handlers.DashboardHandler{Svc: svc},
	}
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func do(t *testing.T, e *echo.Echo, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func registerRetailer(t *testing.T, e *echo.Echo, username string) (uint, string) {
	t.Helper()
	rec, out := do(t, e, call{method: http.MethodPost, path: "/retailer/register", body: map[string]string{
		"username": username, "email": username + "@example.com", "password": "p1",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	retailer := out["retailer"].(map[string]any)
	return uint(retailer["id"].(float64)), out["token"].(string)
}

func TestScenario(t *testing.T) {
	e := newTestServer(t)

	id, _ := registerRetailer(t, e, "r1")

	rec, out := do(t, e, call{method: http.MethodPost, path: "/retailer/login", body: map[string]string{"username": "r1", "password": "p1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", out["message"])
	token := out["token"].(string)

	rec, out = do(t, e, call{method: http.MethodPost, path: "/retailer/inventory/update", token: token, body: map[string]any{
		"retailer_id": id, "product_name": "Tomatoes", "price": 40, "new_qty": 5,
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Product added successfully", out["message"])
	product := out["product"].(map[string]any)
	assert.EqualValues(t, 5, product["quantity"])
	productID := uint(product["id"].(float64))

	rec, _ = do(t, e, call{method: http.MethodGet, path: fmt.Sprintf("/retailer/notifications/%d", id), token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Low stock alert for Tomatoes (5 left)", notes[0]["message"])
	assert.Equal(t, "stock", notes[0]["type"])

	rec, out = do(t, e, call{method: http.MethodPost, path: "/orders", body: map[string]any{
		"retailer_id": id, "product_id": productID, "quantity": 2, "user_id": "user123", "user_name": "John Doe",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := out["order"].(map[string]any)
	orderID := uint(order["id"].(float64))
	assert.EqualValues(t, 80, order["total_price"])

	statsPath := fmt.Sprintf("/retailer/dashboard/stats/%d", id)
	_, before := do(t, e, call{method: http.MethodGet, path: statsPath, token: token})

	rec, out = do(t, e, call{method: http.MethodPost, path: "/retailer/orders/update", token: token, body: map[string]any{
		"order_id": orderID, "status": "accepted",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Order status updated to accepted", out["message"])

	rec, after := do(t, e, call{method: http.MethodGet, path: statsPath, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before["pending_orders"].(float64)-1, after["pending_orders"])
	assert.Equal(t, before["total_revenue"].(float64)+80, after["total_revenue"])
	assert.EqualValues(t, 200, after["total_inventory_value"])

	rec, _ = do(t, e, call{method: http.MethodGet, path: fmt.Sprintf("/retailer/inventory/%d", id), token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.EqualValues(t, 5, items[0]["quantity"])
	assert.NotContains(t, items[0], "deleted_at")
}

func TestErrorMapping(t *testing.T) {
	e := newTestServer(t)
	id, token := registerRetailer(t, e, "r1")
	otherID, otherToken := registerRetailer(t, e, "r2")

	rec, out := do(t, e, call{method: http.MethodPost, path: "/retailer/inventory/update", token: token, body: map[string]any{
		"retailer_id": id, "product_name": "Onions", "price": 30, "new_qty": 15,
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	productID := uint(out["product"].(map[string]any)["id"].(float64))

	_, out = do(t, e, call{method: http.MethodPost, path: "/orders", body: map[string]any{
		"retailer_id": id, "product_id": productID, "quantity": 1, "user_id": "u",
	}})
	orderID := uint(out["order"].(map[string]any)["id"].(float64))

	expired, err := tokens.Issue(testSecret, id, "r1", time.Now().Add(-48*time.Hour), 24*time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		call   call
		status int
		errMsg string
	}{
		{"unknown route", call{method: http.MethodGet, path: "/nope"}, http.StatusNotFound, "Endpoint not found"},
		{"wrong method", call{method: http.MethodDelete, path: "/retailer/login"}, http.StatusNotFound, "Endpoint not found"},
		{"missing token", call{method: http.MethodGet, path: fmt.Sprintf("/retailer/orders/%d", id)}, http.StatusUnauthorized, "Access token required"},
		{"expired token", call{method: http.MethodGet, path: fmt.Sprintf("/retailer/orders/%d", id), token: expired}, http.StatusForbidden, "Invalid or expired token"},
		{"path owner mismatch", call{method: http.MethodGet, path: fmt.Sprintf("/retailer/orders/%d", id), token: otherToken}, http.StatusForbidden, "Access denied"},
		{"body owner mismatch", call{method: http.MethodPost, path: "/retailer/inventory/update", token: otherToken, body: map[string]any{
			"retailer_id": id, "product_id": productID, "new_qty": 0,
		}}, http.StatusForbidden, "Access denied"},
		{"order of another retailer", call{method: http.MethodPost, path: "/retailer/orders/update", token: otherToken, body: map[string]any{
			"order_id": orderID, "status": "accepted",
		}}, http.StatusForbidden, "Access denied"},
		{"missing order fields", call{method: http.MethodPost, path: "/retailer/orders/update", token: token, body: map[string]any{}}, http.StatusBadRequest, "Order ID and status are required"},
		{"unknown order", call{method: http.MethodPost, path: "/retailer/orders/update", token: token, body: map[string]any{
			"order_id": 999, "status": "accepted",
		}}, http.StatusNotFound, "Order not found"},
		{"invalid transition", call{method: http.MethodPost, path: "/retailer/orders/update", token: token, body: map[string]any{
			"order_id": orderID, "status": "delivered",
		}}, http.StatusConflict, "Cannot change order status from pending to delivered"},
		{"missing create fields", call{method: http.MethodPost, path: "/retailer/inventory/update", token: token, body: map[string]any{
			"retailer_id": id, "product_name": "x",
		}}, http.StatusBadRequest, "Product name, price, and quantity are required"},
		{"unknown product", call{method: http.MethodPost, path: "/retailer/inventory/update", token: token, body: map[string]any{
			"retailer_id": id, "product_id": 999, "price": 3,
		}}, http.StatusNotFound, "Product not found"},
		{"malformed body", call{method: http.MethodPost, path: "/retailer/inventory/update", token: token, body: map[string]any{
			"retailer_id": "one",
		}}, http.StatusBadRequest, "Invalid request body"},
		{"duplicate register", call{method: http.MethodPost, path: "/retailer/register", body: map[string]string{
			"username": "r1", "email": "x@example.com", "password": "p",
		}}, http.StatusConflict, "Retailer with this username or email already exists"},
		{"bad login", call{method: http.MethodPost, path: "/retailer/login", body: map[string]string{
			"username": "r1", "password": "nope",
		}}, http.StatusUnauthorized, "Invalid credentials"},
		{"resolve unknown", call{method: http.MethodGet, path: "/retailer/resolve-id/ghost"}, http.StatusNotFound, "Retailer not found"},
		{"insufficient stock", call{method: http.MethodPost, path: "/orders", body: map[string]any{
			"retailer_id": id, "product_id": productID, "quantity": 100, "user_id": "u",
		}}, http.StatusConflict, "Insufficient stock for Onions (15 left)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, e, tt.call)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errMsg, out["error"])
		})
	}

	rec, out = do(t, e, call{method: http.MethodGet, path: "/api/retailer/resolve-id/r2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, otherID, out["retailer_id"])
}

func TestIdempotentInventoryUpdate(t *testing.T) {
	e := newTestServer(t)
	id, token := registerRetailer(t, e, "r1")

	create := call{method: http.MethodPost, path: "/retailer/inventory/update", token: token,
		headers: map[string]string{"Idempotency-Key": "create-rice"},
		body:    map[string]any{"retailer_id": id, "product_name": "Rice", "price": 3, "new_qty": 50},
	}
	first, out1 := do(t, e, create)
	require.Equal(t, http.StatusCreated, first.Code)
	second, out2 := do(t, e, create)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, out1, out2)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	rec, _ := do(t, e, call{method: http.MethodGet, path: fmt.Sprintf("/retailer/inventory/%d", id), token: token})
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	create.body = map[string]any{"retailer_id": id, "product_name": "Beans", "price": 3, "new_qty": 50}
	rec, _ = do(t, e, create)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteAndSearch(t *testing.T) {
	e := newTestServer(t)
	id, token := registerRetailer(t, e, "r1")

	for _, name := range []string{"Organic Tomatoes", "Fresh Onions"} {
		rec, _ := do(t, e, call{method: http.MethodPost, path: "/retailer/inventory/update", token: token, body: map[string]any{
			"retailer_id": id, "product_name": name, "price": 10, "new_qty": 20, "category": "Vegetables",
		}})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	searchPath := fmt.Sprintf("/retailer/inventory/%d/search?q=tomato", id)
	rec, out := do(t, e, call{method: http.MethodGet, path: searchPath, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, out["total"])

	rec, out = do(t, e, call{method: http.MethodPost, path: "/retailer/inventory/delete", token: token, body: map[string]any{
		"retailer_id": id, "product_id": 1,
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["success"])

	rec, out = do(t, e, call{method: http.MethodGet, path: searchPath, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, out["total"])
	assert.Empty(t, out["products"])

	rec, out = do(t, e, call{method: http.MethodGet, path: fmt.Sprintf("/retailer/inventory/%d/search?page=1000000000000000000", id), token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, out["total"])
	assert.Empty(t, out["products"])
}

func TestMarkNotificationRead(t *testing.T) {
	e := newTestServer(t)
	id, token := registerRetailer(t, e, "r1")
	_, otherToken := registerRetailer(t, e, "r2")

	do(t, e, call{method: http.MethodPost, path: "/retailer/inventory/update", token: token, body: map[string]any{
		"retailer_id": id, "product_name": "Tomatoes", "price": 40, "new_qty": 1,
	}})

	rec, out := do(t, e, call{method: http.MethodPost, path: "/retailer/notifications/read/1", token: otherToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", out["error"])

	rec, out = do(t, e, call{method: http.MethodPost, path: "/retailer/notifications/read/1", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Notification marked as read", out["message"])

	rec, out = do(t, e, call{method: http.MethodPost, path: "/retailer/notifications/read/42", token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Notification not found", out["error"])
}

func TestPanicBecomesGeneric500(t *testing.T) {
	e := newTestServer(t)
	e.GET("/boom", func(c echo.Context) error { panic("secret detail") })

	rec, out := do(t, e, call{method: http.MethodGet, path: "/boom"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", out["error"])
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestReadinessFailureIsNotATimeout(t *testing.T) {
	e := New(slog.New(slog.NewJSONHandler(io.Discard, nil)), time.Second)
	d := testDeps()
	d.Ready = func(context.Context) error { return errors.New("db down") }
	Register(e, d)

	rec, out := do(t, e, call{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Service not ready", out["error"])
}

func TestSlowRequestTimesOut(t *testing.T) {
	e := New(slog.New(slog.NewJSONHandler(io.Discard, nil)), 20*time.Millisecond)
	e.GET("/slow", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})

	rec, out := do(t, e, call{method: http.MethodGet, path: "/slow"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Request timed out", out["error"])
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec, _ := do(t, e, call{method: http.MethodGet, path: "/health/live"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, call{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
