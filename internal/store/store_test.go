package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/retail_market/internal/db"
	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
)

type factory struct {
	name string
	open func(t *testing.T) store.Store
}

func factories() []factory {
	return []factory{
		{name: "memory", open: func(t *testing.T) store.Store { return store.NewMemory() }},
		{name: "sqlite", open: func(t *testing.T) store.Store {
			return openGorm(t, db.DriverSQLite, filepath.Join(t.TempDir(), "market.db"))
		}},
		{name: "postgres", open: func(t *testing.T) store.Store {
			dsn := os.Getenv("MARKET_TEST_DATABASE_URL")
			if dsn == "" {
				t.Skip("MARKET_TEST_DATABASE_URL is required for postgres tests")
			}
			s := openGorm(t, db.DriverPostgres, dsn)
			t.Cleanup(func() {
				s.DB.Exec("TRUNCATE TABLE notifications, orders, products, retailers RESTART IDENTITY CASCADE")
			})
			return s
		}},
	}
}

func openGorm(t *testing.T, driver, dsn string) *store.Gorm {
	t.Helper()

	gdb, err := db.Open(context.Background(), driver, dsn)
	require.NoError(t, err)
	s := store.NewGorm(gdb)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = db.Close(gdb)
	})
	return s
}

func forEachStore(t *testing.T, run func(t *testing.T, s store.Store)) {
	for _, f := range factories() {
		f := f
		t.Run(f.name, func(t *testing.T) {
			run(t, f.open(t))
		})
	}
}

func seedRetailer(t *testing.T, s store.Store, username string) models.Retailer {
	t.Helper()

	r := models.Retailer{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		BusinessName: username + "'s Store",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return tx.CreateRetailer(&r)
	}))
	return r
}

func newProduct(retailerID uint, name string, qty int) *models.Product {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Product{
		RetailerID: retailerID,
		Name:       name,
		Price:      10,
		Quantity:   qty,
		Category:   "Vegetables",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestStore_RetailerLookups(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		r := seedRetailer(t, s, "r1")
		require.NotZero(t, r.ID)

		err := s.View(ctx, func(tx store.Tx) error {
			got, err := tx.RetailerByUsername("r1")
			require.NoError(t, err)
			assert.Equal(t, r.ID, got.ID)

			got, err = tx.RetailerByEmail("r1@example.com")
			require.NoError(t, err)
			assert.Equal(t, r.ID, got.ID)

			got, err = tx.RetailerByID(r.ID)
			require.NoError(t, err)
			assert.Equal(t, "r1's Store", got.BusinessName)

			_, err = tx.RetailerByUsername("nobody")
			assert.ErrorIs(t, err, store.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_DuplicateRetailer_Conflict(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		seedRetailer(t, s, "dup")

		err := s.Update(context.Background(), func(tx store.Tx) error {
			return tx.CreateRetailer(&models.Retailer{
				Username: "dup", Email: "other@example.com", PasswordHash: "x", BusinessName: "x",
				CreatedAt: time.Now().UTC(),
			})
		})
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}

func TestStore_ProductIDsAreMonotonic(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		r := seedRetailer(t, s, "mono")
		var last uint
		for i := 0; i < 5; i++ {
			p := newProduct(r.ID, "p", i)
			require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
				return tx.CreateProduct(p)
			}))
			assert.Greater(t, p.ID, last)
			last = p.ID
		}
	})
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		r := seedRetailer(t, s, "rb")
		p := newProduct(r.ID, "Tomatoes", 5)
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateProduct(p) }))

		boom := errors.New("boom")
		err := s.Update(ctx, func(tx store.Tx) error {
			changed := *p
			changed.Quantity = 99
			if err := tx.SaveProduct(&changed); err != nil {
				return err
			}
			if err := tx.CreateNotification(&models.Notification{
				RetailerID: r.ID, Message: "m", Type: models.NotificationStock, CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			got, err := tx.ProductByID(p.ID)
			require.NoError(t, err)
			assert.Equal(t, 5, got.Quantity)

			ns, err := tx.ListNotifications(r.ID)
			require.NoError(t, err)
			assert.Empty(t, ns)
			return nil
		}))
	})
}

func TestStore_UpdateRollsBackOnPanic(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		r := seedRetailer(t, s, "panic")

		assert.PanicsWithValue(t, "boom", func() {
			_ = s.Update(ctx, func(tx store.Tx) error {
				if err := tx.CreateProduct(newProduct(r.ID, "Ghost", 3)); err != nil {
					return err
				}
				panic("boom")
			})
		})

		require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
			return tx.CreateProduct(newProduct(r.ID, "Real", 1))
		}))
		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			ps, err := tx.ListProducts(r.ID)
			require.NoError(t, err)
			require.Len(t, ps, 1)
			assert.Equal(t, "Real", ps[0].Name)
			return nil
		}))
	})
}

func TestStore_IDsNotReusedAfterRollback(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		r := seedRetailer(t, s, "burn")

		first := newProduct(r.ID, "first", 1)
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateProduct(first) }))

		failed := newProduct(r.ID, "failed", 1)
		failedOrder := &models.Order{
			RetailerID: r.ID, ProductID: first.ID, ProductName: "first", Quantity: 1, UserID: "u",
			Status: models.OrderPending, TotalPrice: 10, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.CreateProduct(failed); err != nil {
				return err
			}
			if err := tx.CreateOrder(failedOrder); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Greater(t, failed.ID, first.ID)
		require.NotZero(t, failedOrder.ID)

		next := newProduct(r.ID, "next", 1)
		nextOrder := &models.Order{
			RetailerID: r.ID, ProductID: first.ID, ProductName: "first", Quantity: 1, UserID: "u",
			Status: models.OrderPending, TotalPrice: 10, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
			if err := tx.CreateProduct(next); err != nil {
				return err
			}
			return tx.CreateOrder(nextOrder)
		}))
		assert.Greater(t, next.ID, failed.ID)
		assert.Greater(t, nextOrder.ID, failedOrder.ID)

		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			_, err := tx.ProductByID(failed.ID)
			assert.ErrorIs(t, err, store.ErrNotFound)
			return nil
		}))
	})
}

func TestStore_ListProducts_IsolatedAndOrdered(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		a := seedRetailer(t, s, "a")
		b := seedRetailer(t, s, "b")

		require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
			for _, p := range []*models.Product{
				newProduct(a.ID, "a1", 1), newProduct(b.ID, "b1", 1), newProduct(a.ID, "a2", 1),
			} {
				if err := tx.CreateProduct(p); err != nil {
					return err
				}
			}
			return nil
		}))

		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			items, err := tx.ListProducts(a.ID)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "a1", items[0].Name)
			assert.Equal(t, "a2", items[1].Name)
			for _, p := range items {
				assert.Equal(t, a.ID, p.RetailerID)
			}
			return nil
		}))
	})
}

func TestStore_DeleteProduct_IsSoft(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		r := seedRetailer(t, s, "soft")
		p := newProduct(r.ID, "Onions", 3)
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateProduct(p) }))

		require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
			return tx.DeleteProduct(p.ID, time.Now().UTC())
		}))

		err := s.Update(ctx, func(tx store.Tx) error { return tx.DeleteProduct(p.ID, time.Now().UTC()) })
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			_, err := tx.ProductByID(p.ID)
			assert.ErrorIs(t, err, store.ErrNotFound)
			items, err := tx.ListProducts(r.ID)
			require.NoError(t, err)
			assert.Empty(t, items)
			return nil
		}))

		next := newProduct(r.ID, "Carrots", 3)
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateProduct(next) }))
		assert.Greater(t, next.ID, p.ID)
	})
}

func TestStore_OrdersAndNotificationsNewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		r := seedRetailer(t, s, "newest")
		base := time.Now().UTC().Truncate(time.Second)

		require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
			for i := 0; i < 3; i++ {
				at := base.Add(time.Duration(i) * time.Minute)
				if err := tx.CreateOrder(&models.Order{
					RetailerID: r.ID, ProductID: 1, ProductName: "p", Quantity: 1, UserID: "u",
					Status: models.OrderPending, TotalPrice: 1, CreatedAt: at, UpdatedAt: at,
				}); err != nil {
					return err
				}
				if err := tx.CreateNotification(&models.Notification{
					RetailerID: r.ID, Message: "m", Type: models.NotificationOrder, CreatedAt: at,
				}); err != nil {
					return err
				}
			}
			return nil
		}))

		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			orders, err := tx.ListOrders(r.ID)
			require.NoError(t, err)
			require.Len(t, orders, 3)
			assert.True(t, orders[0].CreatedAt.After(orders[1].CreatedAt))
			assert.True(t, orders[1].CreatedAt.After(orders[2].CreatedAt))

			ns, err := tx.ListNotifications(r.ID)
			require.NoError(t, err)
			require.Len(t, ns, 3)
			assert.True(t, ns[0].CreatedAt.After(ns[2].CreatedAt))
			return nil
		}))
	})
}

func TestStore_MarkNotificationRead(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		r := seedRetailer(t, s, "reader")
		n := &models.Notification{RetailerID: r.ID, Message: "hello", Type: models.NotificationReview, CreatedAt: time.Now().UTC()}
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateNotification(n) }))

		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.MarkNotificationRead(n.ID) }))

		err := s.Update(ctx, func(tx store.Tx) error { return tx.MarkNotificationRead(n.ID + 100) })
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			got, err := tx.NotificationByID(n.ID)
			require.NoError(t, err)
			assert.True(t, got.IsRead)
			assert.Equal(t, "hello", got.Message)
			return nil
		}))
	})
}

func TestMemory_ViewRejectsWrites(t *testing.T) {
	s := store.NewMemory()
	err := s.View(context.Background(), func(tx store.Tx) error {
		return tx.CreateProduct(newProduct(1, "x", 1))
	})
	assert.Error(t, err)
}

func TestMemory_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	r := seedRetailer(t, s, "race")
	p := newProduct(r.ID, "Rice", 0)
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateProduct(p) }))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, func(tx store.Tx) error {
				cur, err := tx.ProductByID(p.ID)
				if err != nil {
					return err
				}
				cur.Quantity++
				return tx.SaveProduct(cur)
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		got, err := tx.ProductByID(p.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, got.Quantity)
		return nil
	}))
}
