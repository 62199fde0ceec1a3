package models

import (
	"time"

	"gorm.io/gorm"
)

type Retailer struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	BusinessName string    `gorm:"not null"                 json:"business_name"`
	CreatedAt    time.Time `gorm:"not null"                 json:"created_at"`
}

type Product struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	RetailerID uint           `gorm:"index;not null"           json:"retailer_id"`
	Name       string         `gorm:"not null"                 json:"name"`
	Price      float64        `gorm:"not null"                 json:"price"`
	Quantity   int            `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Category   string         `gorm:"not null"                 json:"category"`
	CreatedAt  time.Time      `gorm:"not null"                 json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index"                    json:"-"`
}

// InventoryValue is price times quantity on hand.
func (p Product) InventoryValue() float64 {
	return p.Price * float64(p.Quantity)
}

type Order struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	RetailerID  uint        `gorm:"index;not null"           json:"retailer_id"`
	ProductID   uint        `gorm:"index;not null"           json:"product_id"`
	ProductName string      `gorm:"not null"                 json:"product_name"`
	Quantity    int         `gorm:"not null"                 json:"quantity"`
	UserID      string      `gorm:"index;not null"           json:"user_id"`
	UserName    string      `json:"user_name"`
	Status      OrderStatus `gorm:"index;not null"           json:"status"`
	TotalPrice  float64     `gorm:"not null"                 json:"total_price"`
	CreatedAt   time.Time   `gorm:"index;not null"           json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

type Notification struct {
	ID         uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	RetailerID uint             `gorm:"index;not null"           json:"retailer_id"`
	OrderID    *uint            `gorm:"index"                    json:"order_id,omitempty"`
	Message    string           `gorm:"not null"                 json:"message"`
	Type       NotificationType `gorm:"not null"                 json:"type"`
	IsRead     bool             `gorm:"default:false"            json:"is_read"`
	CreatedAt  time.Time        `gorm:"index;not null"           json:"created_at"`
}

type NotificationType string

const (
	NotificationOrder  NotificationType = "order"
	NotificationStock  NotificationType = "stock"
	NotificationReview NotificationType = "review"
)

// All lists every model the SQL store migrates.
func All() []any {
	return []any{&Retailer{}, &Product{}, &Order{}, &Notification{}}
}
