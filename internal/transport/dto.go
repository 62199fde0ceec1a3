package transport

import "github.com/Skotchmaster/retail_market/internal/models"

type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	BusinessName string `json:"business_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RetailerSummary struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
}

type AuthResult struct {
	Retailer RetailerSummary `json:"retailer"`
	Token    string          `json:"token"`
}

// InventoryUpdateRequest creates a product when ProductID is absent and
// patches the present fields otherwise.
type InventoryUpdateRequest struct {
	RetailerID  *uint    `json:"retailer_id"`
	ProductID   *uint    `json:"product_id"`
	ProductName *string  `json:"product_name"`
	Price       *float64 `json:"price"`
	NewQty      *int     `json:"new_qty"`
	Category    *string  `json:"category"`
}

type InventoryDeleteRequest struct {
	RetailerID *uint `json:"retailer_id"`
	ProductID  *uint `json:"product_id"`
}

type OrderStatusRequest struct {
	OrderID *uint  `json:"order_id"`
	Status  string `json:"status"`
}

type PlaceOrderRequest struct {
	RetailerID *uint  `json:"retailer_id"`
	ProductID  *uint  `json:"product_id"`
	Quantity   *int   `json:"quantity"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
}

type SearchResult struct {
	Total    int64            `json:"total"`
	Products []models.Product `json:"products"`
}

type DashboardStats struct {
	TotalProducts       int     `json:"total_products"`
	LowStockProducts    int     `json:"low_stock_products"`
	TotalInventoryValue float64 `json:"total_inventory_value"`
	PendingOrders       int     `json:"pending_orders"`
	TotalRevenue        float64 `json:"total_revenue"`
	UnreadNotifications int     `json:"unread_notifications"`
	AverageProductPrice float64 `json:"average_product_price"`
}
