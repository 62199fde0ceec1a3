package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/retail_market/internal/events"
	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
	"github.com/Skotchmaster/retail_market/internal/transport"
	"github.com/Skotchmaster/retail_market/internal/util"
)

const defaultCategory = "Uncategorized"

func (s *Service) ListInventory(ctx context.Context, retailerID uint) ([]models.Product, error) {
	var items []models.Product
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		items, err = tx.ListProducts(retailerID)
		return err
	})
	return items, err
}

// UpdateInventory creates a product when no product id is given and patches
// the supplied fields of an existing one otherwise. created reports which.
func (s *Service) UpdateInventory(ctx context.Context, callerID uint, req transport.InventoryUpdateRequest) (p *models.Product, created bool, err error) {
	l := logging.FromContext(ctx).With("svc", "inventory.update")

	if req.RetailerID == nil {
		return nil, false, fail(ErrValidation, "retailer_id is required")
	}
	if *req.RetailerID != callerID {
		l.Warn("inventory_update_denied", "caller", callerID, "target", *req.RetailerID)
		return nil, false, errAccessDenied
	}

	var o outbox
	if req.ProductID == nil {
		p, err = s.createProduct(ctx, &o, callerID, req)
		created = true
	} else {
		p, err = s.patchProduct(ctx, &o, callerID, *req.ProductID, req)
	}
	if err != nil {
		return nil, false, err
	}

	s.flush(ctx, &o)
	return p, created, nil
}

func (s *Service) createProduct(ctx context.Context, o *outbox, retailerID uint, req transport.InventoryUpdateRequest) (*models.Product, error) {
	name := trimmed(req.ProductName)
	if name == "" || req.Price == nil || req.NewQty == nil {
		return nil, fail(ErrValidation, "Product name, price, and quantity are required")
	}
	if err := validPrice(*req.Price); err != nil {
		return nil, err
	}
	if err := validQty(*req.NewQty); err != nil {
		return nil, err
	}
	category := trimmed(req.Category)
	if category == "" {
		category = defaultCategory
	}

	now := s.now()
	p := &models.Product{
		RetailerID: retailerID,
		Name:       name,
		Price:      *req.Price,
		Quantity:   *req.NewQty,
		Category:   category,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.Store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.RetailerByID(retailerID); err != nil {
			return notFound(err, "Retailer not found")
		}
		if err := tx.CreateProduct(p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		o.emit(events.TopicInventory, "product.created", retailerID, *p)
		return s.checkLowStock(tx, o, p)
	})
	if err != nil {
		return nil, err
	}
	o.indexed = append(o.indexed, *p)
	return p, nil
}

func (s *Service) patchProduct(ctx context.Context, o *outbox, retailerID, productID uint, req transport.InventoryUpdateRequest) (*models.Product, error) {
	if req.Price != nil {
		if err := validPrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if req.NewQty != nil {
		if err := validQty(*req.NewQty); err != nil {
			return nil, err
		}
	}

	var p *models.Product
	err := s.Store.Update(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.ProductByID(productID)
		if err != nil {
			return notFound(err, "Product not found")
		}
		if p.RetailerID != retailerID {
			return errAccessDenied
		}

		qtyChanged := req.NewQty != nil && *req.NewQty != p.Quantity
		if name := trimmed(req.ProductName); name != "" {
			p.Name = name
		}
		if req.Price != nil {
			p.Price = *req.Price
		}
		if req.NewQty != nil {
			p.Quantity = *req.NewQty
		}
		if category := trimmed(req.Category); category != "" {
			p.Category = category
		}
		p.UpdatedAt = s.now()

		if err := tx.SaveProduct(p); err != nil {
			return notFound(err, "Product not found")
		}
		o.emit(events.TopicInventory, "product.updated", retailerID, *p)
		if qtyChanged {
			return s.checkLowStock(tx, o, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.indexed = append(o.indexed, *p)
	return p, nil
}

// DeleteProduct hides a product from inventory, search and stats. Orders and
// notifications that reference it are kept.
func (s *Service) DeleteProduct(ctx context.Context, callerID uint, req transport.InventoryDeleteRequest) error {
	if req.RetailerID == nil || req.ProductID == nil {
		return fail(ErrValidation, "retailer_id and product_id are required")
	}
	if *req.RetailerID != callerID {
		return errAccessDenied
	}

	var o outbox
	err := s.Store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.ProductByID(*req.ProductID)
		if err != nil {
			return notFound(err, "Product not found")
		}
		if p.RetailerID != callerID {
			return errAccessDenied
		}
		if err := tx.DeleteProduct(p.ID, s.now()); err != nil {
			return notFound(err, "Product not found")
		}
		o.emit(events.TopicInventory, "product.deleted", callerID, map[string]any{"product_id": p.ID})
		o.unindexed = append(o.unindexed, p.ID)
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(ctx, &o)
	return nil
}

// SearchInventory matches the retailer's products by name and category. It
// uses the search index when one is configured and falls back to a
// case-insensitive substring match over the store.
func (s *Service) SearchInventory(ctx context.Context, retailerID uint, query string, page, size int) (*transport.SearchResult, error) {
	l := logging.FromContext(ctx).With("svc", "inventory.search")
	from, limit := util.Calculate(page, size)
	query = strings.TrimSpace(query)

	if s.Index != nil {
		total, prods, err := s.Index.Search(ctx, retailerID, query, from, limit)
		if err == nil {
			return &transport.SearchResult{Total: total, Products: prods}, nil
		}
		l.Warn("index_search_error", "reason", "falling back to store", "error", err)
	}

	items, err := s.ListInventory(ctx, retailerID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]models.Product, 0, len(items))
	for _, p := range items {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Category), needle) {
			matches = append(matches, p)
		}
	}

	res := &transport.SearchResult{Total: int64(len(matches)), Products: []models.Product{}}
	if from >= 0 && from < len(matches) {
		end := from + limit
		if end > len(matches) {
			end = len(matches)
		}
		res.Products = matches[from:end]
	}
	return res, nil
}

func validPrice(price float64) error {
	if price <= 0 {
		return fail(ErrValidation, "Price must be greater than 0")
	}
	return nil
}

func validQty(qty int) error {
	if qty < 0 {
		return fail(ErrValidation, "Quantity must be a non-negative integer")
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

