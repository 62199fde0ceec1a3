package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/retail_market/internal/models"
)

// Gorm keeps the domain in a SQL database. Writers are serialized in-process
// and lock the rows they read, so the same discipline holds across replicas
// on PostgreSQL.
type Gorm struct {
	DB *gorm.DB
	mu sync.Mutex
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{DB: db}
}

func (g *Gorm) Migrate(ctx context.Context) error {
	if err := g.DB.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (g *Gorm) Update(ctx context.Context, fn func(tx Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	gtx := &gormTx{lock: true}
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gtx.db = tx
		return fn(gtx)
	})
	if err != nil && len(gtx.allocated) > 0 && g.DB.Dialector.Name() == "sqlite" {
		if burnErr := g.burnSQLiteIDs(ctx, gtx.allocated); burnErr != nil {
			return errors.Join(err, burnErr)
		}
	}
	return err
}

// burnSQLiteIDs moves sqlite_sequence past ids handed out by a rolled-back
// transaction. SQLite rolls the AUTOINCREMENT counter back with the data;
// PostgreSQL sequences are not transactional and need nothing.
func (g *Gorm) burnSQLiteIDs(ctx context.Context, allocated map[string]uint) error {
	db := g.DB.WithContext(ctx)
	for table, id := range allocated {
		res := db.Exec("UPDATE sqlite_sequence SET seq = ? WHERE name = ? AND seq < ?", id, table, id)
		if res.Error != nil {
			return fmt.Errorf("advance %s sequence: %w", table, res.Error)
		}
		if res.RowsAffected > 0 {
			continue
		}
		if err := db.Exec(
			"INSERT INTO sqlite_sequence (name, seq) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = ?)",
			table, id, table,
		).Error; err != nil {
			return fmt.Errorf("seed %s sequence: %w", table, err)
		}
	}
	return nil
}

func (g *Gorm) View(ctx context.Context, fn func(tx Tx) error) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db   *gorm.DB
	lock bool
	// allocated holds the highest id created per table in this transaction.
	allocated map[string]uint
}

func (t *gormTx) create(table string, value any, id func() uint) error {
	if err := t.db.Create(value).Error; err != nil {
		return translate(err)
	}
	if t.allocated == nil {
		t.allocated = map[string]uint{}
	}
	if v := id(); v > t.allocated[table] {
		t.allocated[table] = v
	}
	return nil
}

func (t *gormTx) forUpdate() *gorm.DB {
	if t.lock {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func (t *gormTx) CreateRetailer(r *models.Retailer) error {
	return t.create("retailers", r, func() uint { return r.ID })
}

func (t *gormTx) RetailerByID(id uint) (*models.Retailer, error) {
	var r models.Retailer
	if err := t.db.Where("id = ?", id).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (t *gormTx) RetailerByUsername(username string) (*models.Retailer, error) {
	var r models.Retailer
	if err := t.db.Where("username = ?", username).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (t *gormTx) RetailerByEmail(email string) (*models.Retailer, error) {
	var r models.Retailer
	if err := t.db.Where("email = ?", email).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (t *gormTx) CreateProduct(p *models.Product) error {
	return t.create("products", p, func() uint { return p.ID })
}

func (t *gormTx) ProductByID(id uint) (*models.Product, error) {
	var p models.Product
	if err := t.forUpdate().Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) ListProducts(retailerID uint) ([]models.Product, error) {
	items := make([]models.Product, 0)
	if err := t.db.Where("retailer_id = ?", retailerID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (t *gormTx) SaveProduct(p *models.Product) error {
	res := t.db.Model(&models.Product{}).Where("id = ?", p.ID).Select("*").Omit("id", "created_at", "deleted_at").Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) DeleteProduct(id uint, at time.Time) error {
	res := t.db.Model(&models.Product{}).Where("id = ?", id).Update("deleted_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) CreateOrder(o *models.Order) error {
	return t.create("orders", o, func() uint { return o.ID })
}

func (t *gormTx) OrderByID(id uint) (*models.Order, error) {
	var o models.Order
	if err := t.forUpdate().Where("id = ?", id).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (t *gormTx) ListOrders(retailerID uint) ([]models.Order, error) {
	items := make([]models.Order, 0)
	if err := t.db.Where("retailer_id = ?", retailerID).Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (t *gormTx) SaveOrder(o *models.Order) error {
	res := t.db.Model(&models.Order{}).Where("id = ?", o.ID).Select("*").Omit("id", "created_at").Updates(o)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) CreateNotification(n *models.Notification) error {
	return t.create("notifications", n, func() uint { return n.ID })
}

func (t *gormTx) NotificationByID(id uint) (*models.Notification, error) {
	var n models.Notification
	if err := t.forUpdate().Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (t *gormTx) ListNotifications(retailerID uint) ([]models.Notification, error) {
	items := make([]models.Notification, 0)
	if err := t.db.Where("retailer_id = ?", retailerID).Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (t *gormTx) MarkNotificationRead(id uint) error {
	res := t.db.Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
