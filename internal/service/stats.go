package service

import (
	"context"

	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
	"github.com/Skotchmaster/retail_market/internal/transport"
)

// ComputeStats derives the dashboard figures from one retailer's records.
// Revenue counts accepted orders only.
func ComputeStats(products []models.Product, orders []models.Order, notifications []models.Notification, lowStockThreshold int) transport.DashboardStats {
	var st transport.DashboardStats

	st.TotalProducts = len(products)
	for _, p := range products {
		if p.Quantity < lowStockThreshold {
			st.LowStockProducts++
		}
		st.TotalInventoryValue += p.InventoryValue()
	}

	for _, o := range orders {
		switch o.Status {
		case models.OrderPending:
			st.PendingOrders++
		case models.OrderAccepted:
			st.TotalRevenue += o.TotalPrice
		}
	}

	for _, n := range notifications {
		if !n.IsRead {
			st.UnreadNotifications++
		}
	}

	if st.TotalProducts > 0 {
		st.AverageProductPrice = st.TotalInventoryValue / float64(st.TotalProducts)
	}
	return st
}

func (s *Service) DashboardStats(ctx context.Context, retailerID uint) (transport.DashboardStats, error) {
	var st transport.DashboardStats
	err := s.Store.View(ctx, func(tx store.Tx) error {
		products, err := tx.ListProducts(retailerID)
		if err != nil {
			return err
		}
		orders, err := tx.ListOrders(retailerID)
		if err != nil {
			return err
		}
		notifications, err := tx.ListNotifications(retailerID)
		if err != nil {
			return err
		}
		st = ComputeStats(products, orders, notifications, s.threshold())
		return nil
	})
	return st, err
}
