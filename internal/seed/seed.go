package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
)

// DemoPasswordHash is the bcrypt hash of "password".
const DemoPasswordHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

type demoOrder struct {
	product  int
	qty      int
	userID   string
	userName string
	status   models.OrderStatus
	placed   time.Duration
	updated  time.Duration
}

type demoNotification struct {
	message string
	typ     models.NotificationType
	read    bool
	age     time.Duration
}

// Demo loads the "retailer1" tenant with a few products, orders and
// notifications. It does nothing when retailer1 already exists.
func Demo(ctx context.Context, st store.Store, now time.Time) error {
	now = now.UTC()
	return st.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.RetailerByUsername("retailer1"); err == nil {
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		r := &models.Retailer{
			Username:     "retailer1",
			Email:        "retailer1@example.com",
			PasswordHash: DemoPasswordHash,
			BusinessName: "Fresh Groceries",
			CreatedAt:    now,
		}
		if err := tx.CreateRetailer(r); err != nil {
			return fmt.Errorf("seed retailer: %w", err)
		}

		products := []*models.Product{
			{Name: "Organic Tomatoes", Price: 40, Quantity: 25},
			{Name: "Fresh Onions", Price: 30, Quantity: 15},
			{Name: "Premium Potatoes", Price: 25, Quantity: 8},
		}
		for _, p := range products {
			p.RetailerID = r.ID
			p.Category = "Vegetables"
			p.CreatedAt, p.UpdatedAt = now, now
			if err := tx.CreateProduct(p); err != nil {
				return fmt.Errorf("seed product: %w", err)
			}
		}

		orders := []demoOrder{
			{product: 0, qty: 5, userID: "user123", userName: "John Doe", status: models.OrderPending, placed: time.Hour, updated: time.Hour},
			{product: 1, qty: 3, userID: "user456", userName: "Jane Smith", status: models.OrderAccepted, placed: 3 * time.Hour, updated: 2 * time.Hour},
			{product: 0, qty: 2, userID: "user789", userName: "Bob Wilson", status: models.OrderPending, placed: 30 * time.Minute, updated: 30 * time.Minute},
		}
		for _, o := range orders {
			p := products[o.product]
			if err := tx.CreateOrder(&models.Order{
				RetailerID:  r.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    o.qty,
				UserID:      o.userID,
				UserName:    o.userName,
				Status:      o.status,
				TotalPrice:  p.Price * float64(o.qty),
				CreatedAt:   now.Add(-o.placed),
				UpdatedAt:   now.Add(-o.updated),
			}); err != nil {
				return fmt.Errorf("seed order: %w", err)
			}
		}

		notes := []demoNotification{
			{message: "Order placed for Organic Tomatoes", typ: models.NotificationOrder, age: 2 * time.Hour},
			{message: "Stock low for Fresh Onions (only 15 left)", typ: models.NotificationStock, age: 24 * time.Hour},
			{message: "New customer review received", typ: models.NotificationReview, read: true, age: 72 * time.Hour},
		}
		for _, n := range notes {
			if err := tx.CreateNotification(&models.Notification{
				RetailerID: r.ID,
				Message:    n.message,
				Type:       n.typ,
				IsRead:     n.read,
				CreatedAt:  now.Add(-n.age),
			}); err != nil {
				return fmt.Errorf("seed notification: %w", err)
			}
		}
		return nil
	})
}
