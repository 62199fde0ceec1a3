package store

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/retail_market/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Store is the domain store. Update runs fn exclusively: two Update calls never
// interleave, and every write fn made is undone when it returns an error.
// View runs fn against a consistent snapshot and must not write.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is bound to the context of the Update or View call that produced it.
// Create* assign the next id of the record's kind; ids are never reused.
// Lookups of absent (or soft-deleted) records return ErrNotFound.
type Tx interface {
	CreateRetailer(r *models.Retailer) error
	RetailerByID(id uint) (*models.Retailer, error)
	RetailerByUsername(username string) (*models.Retailer, error)
	RetailerByEmail(email string) (*models.Retailer, error)

	CreateProduct(p *models.Product) error
	ProductByID(id uint) (*models.Product, error)
	// ListProducts returns the retailer's live products ordered by id.
	ListProducts(retailerID uint) ([]models.Product, error)
	SaveProduct(p *models.Product) error
	DeleteProduct(id uint, at time.Time) error

	CreateOrder(o *models.Order) error
	OrderByID(id uint) (*models.Order, error)
	// ListOrders returns the retailer's orders newest first.
	ListOrders(retailerID uint) ([]models.Order, error)
	SaveOrder(o *models.Order) error

	CreateNotification(n *models.Notification) error
	NotificationByID(id uint) (*models.Notification, error)
	// ListNotifications returns the retailer's notifications newest first.
	ListNotifications(retailerID uint) ([]models.Notification, error)
	MarkNotificationRead(id uint) error
}
