package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/retail_market/internal/events"
	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
	"github.com/Skotchmaster/retail_market/internal/transport"
)

func (s *Service) ListOrders(ctx context.Context, retailerID uint) ([]models.Order, error) {
	var items []models.Order
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		items, err = tx.ListOrders(retailerID)
		return err
	})
	return items, err
}

// PlaceOrder creates a pending order with the product's current price and
// name fixed into it. Stock is not touched here.
func (s *Service) PlaceOrder(ctx context.Context, req transport.PlaceOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "orders.place")

	userID := strings.TrimSpace(req.UserID)
	if req.RetailerID == nil || req.ProductID == nil || req.Quantity == nil || userID == "" {
		return nil, fail(ErrValidation, "retailer_id, product_id, quantity and user_id are required")
	}
	if *req.Quantity <= 0 {
		return nil, fail(ErrValidation, "Quantity must be greater than 0")
	}

	var (
		o     outbox
		order *models.Order
	)
	err := s.Store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.RetailerByID(*req.RetailerID); err != nil {
			return notFound(err, "Retailer not found")
		}
		p, err := tx.ProductByID(*req.ProductID)
		if err != nil {
			return notFound(err, "Product not found")
		}
		if p.RetailerID != *req.RetailerID {
			return fail(ErrNotFound, "Product not found")
		}
		if *req.Quantity > p.Quantity {
			return fail(ErrInsufficientStock, fmt.Sprintf("Insufficient stock for %s (%d left)", p.Name, p.Quantity))
		}

		now := s.now()
		order = &models.Order{
			RetailerID:  p.RetailerID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    *req.Quantity,
			UserID:      userID,
			UserName:    strings.TrimSpace(req.UserName),
			Status:      models.OrderPending,
			TotalPrice:  p.Price * float64(*req.Quantity),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateOrder(order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		o.emit(events.TopicOrders, "order.placed", order.RetailerID, *order)

		orderID := order.ID
		return s.notify(tx, &o, &models.Notification{
			RetailerID: order.RetailerID,
			OrderID:    &orderID,
			Message:    fmt.Sprintf("Order #%d placed for %s (qty %d)", order.ID, order.ProductName, order.Quantity),
			Type:       models.NotificationOrder,
		})
	})
	if err != nil {
		return nil, err
	}

	l.Info("order_placed", "order_id", order.ID, "retailer_id", order.RetailerID)
	s.flush(ctx, &o)
	return order, nil
}

// UpdateOrderStatus moves an order along the status graph and records one
// notification for the move. With DeductStockOnAccept, accepting takes the
// quantity out of stock and cancelling an accepted or shipped order puts it
// back.
func (s *Service) UpdateOrderStatus(ctx context.Context, callerID uint, req transport.OrderStatusRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "orders.update_status")

	if req.OrderID == nil || strings.TrimSpace(req.Status) == "" {
		return nil, fail(ErrValidation, "Order ID and status are required")
	}
	next := models.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !next.Valid() {
		return nil, fail(ErrValidation, fmt.Sprintf("Invalid order status: %s", req.Status))
	}

	var (
		o     outbox
		order *models.Order
	)
	err := s.Store.Update(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.OrderByID(*req.OrderID)
		if err != nil {
			return notFound(err, "Order not found")
		}
		if order.RetailerID != callerID {
			return errAccessDenied
		}

		prev := order.Status
		if !prev.CanTransitionTo(next) {
			return fail(ErrInvalidTransition, fmt.Sprintf("Cannot change order status from %s to %s", prev, next))
		}

		if s.DeductStockOnAccept {
			if err := s.adjustStock(tx, &o, order, prev, next); err != nil {
				return err
			}
		}

		order.Status = next
		order.UpdatedAt = s.now()
		if err := tx.SaveOrder(order); err != nil {
			return notFound(err, "Order not found")
		}
		o.emit(events.TopicOrders, "order.status_changed", order.RetailerID, map[string]any{
			"order_id": order.ID,
			"from":     prev,
			"to":       next,
		})

		orderID := order.ID
		return s.notify(tx, &o, &models.Notification{
			RetailerID: order.RetailerID,
			OrderID:    &orderID,
			Message:    fmt.Sprintf("Order #%d status changed from %s to %s", order.ID, prev, next),
			Type:       models.NotificationOrder,
		})
	})
	if err != nil {
		return nil, err
	}

	l.Info("order_status_changed", "order_id", order.ID, "status", order.Status)
	s.flush(ctx, &o)
	return order, nil
}

func (s *Service) adjustStock(tx store.Tx, o *outbox, order *models.Order, prev, next models.OrderStatus) error {
	var delta int
	switch {
	case next == models.OrderAccepted:
		delta = -order.Quantity
	case next == models.OrderCancelled && (prev == models.OrderAccepted || prev == models.OrderShipped):
		delta = order.Quantity
	default:
		return nil
	}

	p, err := tx.ProductByID(order.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		if delta < 0 {
			return fail(ErrNotFound, "Product not found")
		}
		// deleted since the order was placed; nothing to restock
		return nil
	}
	if err != nil {
		return err
	}

	if p.Quantity+delta < 0 {
		return fail(ErrInsufficientStock, fmt.Sprintf("Insufficient stock for %s (%d left)", p.Name, p.Quantity))
	}
	p.Quantity += delta
	p.UpdatedAt = s.now()
	if err := tx.SaveProduct(p); err != nil {
		return err
	}
	o.emit(events.TopicInventory, "product.updated", p.RetailerID, *p)
	o.indexed = append(o.indexed, *p)

	if delta < 0 {
		return s.checkLowStock(tx, o, p)
	}
	return nil
}
