package service

import (
	"context"

	"github.com/Skotchmaster/retail_market/internal/events"
	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
)

func (s *Service) ListNotifications(ctx context.Context, retailerID uint) ([]models.Notification, error) {
	var items []models.Notification
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		items, err = tx.ListNotifications(retailerID)
		return err
	})
	return items, err
}

func (s *Service) MarkNotificationRead(ctx context.Context, callerID, id uint) error {
	var o outbox
	err := s.Store.Update(ctx, func(tx store.Tx) error {
		n, err := tx.NotificationByID(id)
		if err != nil {
			return notFound(err, "Notification not found")
		}
		if n.RetailerID != callerID {
			return errAccessDenied
		}
		if err := tx.MarkNotificationRead(id); err != nil {
			return notFound(err, "Notification not found")
		}
		o.emit(events.TopicNotifications, "notification.read", callerID, map[string]any{"notification_id": id})
		return nil
	})
	if err != nil {
		return err
	}
	s.flush(ctx, &o)
	return nil
}
