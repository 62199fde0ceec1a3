package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/retail_market/internal/config"
	"github.com/Skotchmaster/retail_market/internal/db"
	"github.com/Skotchmaster/retail_market/internal/events"
	"github.com/Skotchmaster/retail_market/internal/handlers"
	"github.com/Skotchmaster/retail_market/internal/idempotency"
	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/search"
	"github.com/Skotchmaster/retail_market/internal/seed"
	"github.com/Skotchmaster/retail_market/internal/service"
	"github.com/Skotchmaster/retail_market/internal/store"
	httpserver "github.com/Skotchmaster/retail_market/internal/transport/http"
)

func main() {
	cfg := config.Load()

	l := logging.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(l)
	if err := cfg.Validate(); err != nil {
		l.Error("config_error", "error", err)
		os.Exit(1)
	}
	ctx := logging.IntoContext(context.Background(), l)

	st, gdb, err := openStore(ctx, cfg)
	if err != nil {
		l.Error("store_init_error", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	var publisher service.Publisher = events.Nop{}
	var prod *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			l.Error("kafka_init_error", "error", err)
			os.Exit(1)
		}
		publisher = prod
	}

	var index service.ProductIndex
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			l.Error("elasticsearch_init_error", "error", err)
			os.Exit(1)
		}
		index = search.NewIndex(es, cfg.ESIndex)
	}

	var idem idempotency.Store = idempotency.NewMemory()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = idempotency.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			l.Error("redis_init_error", "error", err)
			os.Exit(1)
		}
		idem = idempotency.NewRedis(rdb)
	}

	if cfg.SeedDemo {
		if err := seed.Demo(ctx, st, time.Now().UTC()); err != nil {
			l.Error("seed_error", "error", err)
			os.Exit(1)
		}
		l.Info("seed_done")
	}

	svc := &service.Service{
		Store:               st,
		Publisher:           publisher,
		Index:               index,
		JWTSecret:           cfg.JWTSecret,
		TokenTTL:            cfg.TokenTTL,
		LowStockThreshold:   cfg.LowStockThreshold,
		DeductStockOnAccept: cfg.DeductStockOnAccept,
	}

	e := httpserver.New(l, cfg.RequestTimeout)
	httpserver.Register(e, &httpserver.Deps{
		JWTSecret:      cfg.JWTSecret,
		Idempotency:    idem,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Ready:          readiness(gdb),
		Retailers:      &handlers.RetailerHandler{Svc: svc},
		Inventory:      &handlers.InventoryHandler{Svc: svc},
		Orders:         &handlers.OrderHandler{Svc: svc},
		Notifications:  &handlers.NotificationHandler{Svc: svc},
		Dashboard:      &handlers.DashboardHandler{Svc: svc},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		l.Info("http_listen", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http_server_error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		l.Warn("force_exit")
		os.Exit(1)
	}()

	l.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_error", "error", err)
	}

	if gdb != nil {
		if err := db.Close(gdb); err != nil {
			l.Error("db_close_error", "error", err)
		}
	}
	if prod != nil {
		if err := prod.Close(); err != nil {
			l.Error("kafka_close_error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			l.Error("redis_close_error", "error", err)
		}
	}

	l.Info("shutdown_complete")
}

// openStore returns the gorm handle as well when the store is SQL backed.
func openStore(ctx context.Context, cfg config.Config) (store.Store, *gorm.DB, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return store.NewMemory(), nil, nil
	case config.StoreSQLite, config.StorePostgres:
		gdb, err := db.Open(ctx, cfg.StoreDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewGorm(gdb)
		if err := s.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return s, gdb, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func readiness(gdb *gorm.DB) func(ctx context.Context) error {
	if gdb == nil {
		return nil
	}
	return func(ctx context.Context) error { return db.Ping(ctx, gdb) }
}
