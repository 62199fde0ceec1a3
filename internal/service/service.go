package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Skotchmaster/retail_market/internal/events"
	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
)

const DefaultLowStockThreshold = 10

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type ProductIndex interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, retailerID uint, query string, from, size int) (int64, []models.Product, error)
}

// Service is the rule engine. Every mutating call runs in one store.Update;
// events and index writes go out after it commits.
type Service struct {
	Store     store.Store
	Publisher Publisher
	Index     ProductIndex

	JWTSecret []byte
	TokenTTL  time.Duration

	LowStockThreshold   int
	DeductStockOnAccept bool

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) threshold() int {
	if s.LowStockThreshold > 0 {
		return s.LowStockThreshold
	}
	return DefaultLowStockThreshold
}

func (s *Service) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}

type outgoing struct {
	topic string
	event events.Event
}

// outbox collects side effects of one transaction; they are dropped when it
// rolls back.
type outbox struct {
	events    []outgoing
	indexed   []models.Product
	unindexed []uint
}

func (o *outbox) emit(topic, eventType string, retailerID uint, payload any) {
	o.events = append(o.events, outgoing{topic: topic, event: events.New(eventType, retailerID, payload)})
}

func (s *Service) flush(ctx context.Context, o *outbox) {
	l := logging.FromContext(ctx).With("svc", "outbox")

	if s.Index != nil {
		for _, p := range o.indexed {
			if err := s.Index.IndexProduct(ctx, p); err != nil {
				l.Warn("index_product_error", "product_id", p.ID, "error", err)
			}
		}
		for _, id := range o.unindexed {
			if err := s.Index.DeleteProduct(ctx, id); err != nil {
				l.Warn("unindex_product_error", "product_id", id, "error", err)
			}
		}
	}

	if s.Publisher == nil {
		return
	}
	for _, e := range o.events {
		key := strconv.FormatUint(uint64(e.event.RetailerID), 10)
		if err := s.Publisher.PublishEvent(ctx, e.topic, key, e.event); err != nil {
			l.Warn("publish_event_error", "topic", e.topic, "type", e.event.Type, "error", err)
		}
	}
}

func (s *Service) notify(tx store.Tx, o *outbox, n *models.Notification) error {
	n.CreatedAt = s.now()
	if err := tx.CreateNotification(n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	o.emit(events.TopicNotifications, "notification.created", n.RetailerID, *n)
	return nil
}

// checkLowStock appends a stock notification when qty is below the threshold.
func (s *Service) checkLowStock(tx store.Tx, o *outbox, p *models.Product) error {
	if p.Quantity >= s.threshold() {
		return nil
	}
	return s.notify(tx, o, &models.Notification{
		RetailerID: p.RetailerID,
		Message:    fmt.Sprintf("Low stock alert for %s (%d left)", p.Name, p.Quantity),
		Type:       models.NotificationStock,
	})
}

func notFound(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrNotFound, msg)
	}
	return err
}
