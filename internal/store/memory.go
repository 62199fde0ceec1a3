package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/retail_market/internal/models"
)

var errReadOnly = errors.New("store: write inside View")

type Memory struct {
	mu sync.RWMutex

	retailers     map[uint]models.Retailer
	products      map[uint]models.Product
	orders        map[uint]models.Order
	notifications map[uint]models.Notification

	nextRetailer     uint
	nextProduct      uint
	nextOrder        uint
	nextNotification uint
}

func NewMemory() *Memory {
	return &Memory{
		retailers:     map[uint]models.Retailer{},
		products:      map[uint]models.Product{},
		orders:        map[uint]models.Order{},
		notifications: map[uint]models.Notification{},
	}
}

func (m *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memTx{m: m, readOnly: true})
}

type memTx struct {
	m        *Memory
	readOnly bool
	undo     []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) CreateRetailer(r *models.Retailer) error {
	if t.readOnly {
		return errReadOnly
	}
	for _, existing := range t.m.retailers {
		if existing.Username == r.Username || existing.Email == r.Email {
			return ErrConflict
		}
	}
	t.m.nextRetailer++
	r.ID = t.m.nextRetailer
	t.m.retailers[r.ID] = *r
	id := r.ID
	t.undo = append(t.undo, func() { delete(t.m.retailers, id) })
	return nil
}

func (t *memTx) RetailerByID(id uint) (*models.Retailer, error) {
	r, ok := t.m.retailers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) RetailerByUsername(username string) (*models.Retailer, error) {
	for _, r := range t.m.retailers {
		if r.Username == username {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) RetailerByEmail(email string) (*models.Retailer, error) {
	for _, r := range t.m.retailers {
		if r.Email == email {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateProduct(p *models.Product) error {
	if t.readOnly {
		return errReadOnly
	}
	t.m.nextProduct++
	p.ID = t.m.nextProduct
	t.m.products[p.ID] = *p
	id := p.ID
	t.undo = append(t.undo, func() { delete(t.m.products, id) })
	return nil
}

func (t *memTx) ProductByID(id uint) (*models.Product, error) {
	p, ok := t.m.products[id]
	if !ok || p.DeletedAt.Valid {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) ListProducts(retailerID uint) ([]models.Product, error) {
	items := make([]models.Product, 0)
	for _, p := range t.m.products {
		if p.RetailerID == retailerID && !p.DeletedAt.Valid {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (t *memTx) SaveProduct(p *models.Product) error {
	if t.readOnly {
		return errReadOnly
	}
	prev, ok := t.m.products[p.ID]
	if !ok || prev.DeletedAt.Valid {
		return ErrNotFound
	}
	t.m.products[p.ID] = *p
	t.undo = append(t.undo, func() { t.m.products[prev.ID] = prev })
	return nil
}

func (t *memTx) DeleteProduct(id uint, at time.Time) error {
	if t.readOnly {
		return errReadOnly
	}
	prev, ok := t.m.products[id]
	if !ok || prev.DeletedAt.Valid {
		return ErrNotFound
	}
	deleted := prev
	deleted.DeletedAt = gorm.DeletedAt{Time: at, Valid: true}
	t.m.products[id] = deleted
	t.undo = append(t.undo, func() { t.m.products[id] = prev })
	return nil
}

func (t *memTx) CreateOrder(o *models.Order) error {
	if t.readOnly {
		return errReadOnly
	}
	t.m.nextOrder++
	o.ID = t.m.nextOrder
	t.m.orders[o.ID] = *o
	id := o.ID
	t.undo = append(t.undo, func() { delete(t.m.orders, id) })
	return nil
}

func (t *memTx) OrderByID(id uint) (*models.Order, error) {
	o, ok := t.m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (t *memTx) ListOrders(retailerID uint) ([]models.Order, error) {
	items := make([]models.Order, 0)
	for _, o := range t.m.orders {
		if o.RetailerID == retailerID {
			items = append(items, o)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (t *memTx) SaveOrder(o *models.Order) error {
	if t.readOnly {
		return errReadOnly
	}
	prev, ok := t.m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	t.m.orders[o.ID] = *o
	t.undo = append(t.undo, func() { t.m.orders[prev.ID] = prev })
	return nil
}

func (t *memTx) CreateNotification(n *models.Notification) error {
	if t.readOnly {
		return errReadOnly
	}
	t.m.nextNotification++
	n.ID = t.m.nextNotification
	t.m.notifications[n.ID] = *n
	id := n.ID
	t.undo = append(t.undo, func() { delete(t.m.notifications, id) })
	return nil
}

func (t *memTx) NotificationByID(id uint) (*models.Notification, error) {
	n, ok := t.m.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (t *memTx) ListNotifications(retailerID uint) ([]models.Notification, error) {
	items := make([]models.Notification, 0)
	for _, n := range t.m.notifications {
		if n.RetailerID == retailerID {
			items = append(items, n)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (t *memTx) MarkNotificationRead(id uint) error {
	if t.readOnly {
		return errReadOnly
	}
	prev, ok := t.m.notifications[id]
	if !ok {
		return ErrNotFound
	}
	read := prev
	read.IsRead = true
	t.m.notifications[id] = read
	t.undo = append(t.undo, func() { t.m.notifications[id] = prev })
	return nil
}
