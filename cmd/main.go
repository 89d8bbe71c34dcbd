// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-feed/internal/config"
	"github.com/Shivanand-hulikatti/event-feed/internal/database"
	"github.com/Shivanand-hulikatti/event-feed/internal/handler"
	"github.com/Shivanand-hulikatti/event-feed/internal/logging"
	"github.com/Shivanand-hulikatti/event-feed/internal/notify"
	"github.com/Shivanand-hulikatti/event-feed/internal/repository"
	"github.com/Shivanand-hulikatti/event-feed/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/event-feed/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// ── 1. Open the store ────────────────────────────────────────────────
	stores, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Notifications ─────────────────────────────────────────────────
	var publisher notify.Publisher = notify.Nop{}
	if cfg.Redis.URL != "" {
		rp, err := notify.NewRedisPublisher(ctx, cfg.Redis.URL, cfg.Redis.Channel)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rp.Close()
		publisher = rp
		logger.Info("publishing activity to redis", zap.String("channel", cfg.Redis.Channel))
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	svc := service.NewEventService(stores, publisher, logger)
	router := handler.NewRouter(handler.NewEventHandler(svc, logger), logger, cfg.CORSOrigins)

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStores connects to the configured database, applies the schema and
// returns the repositories together with a function releasing them.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Stores, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return service.Stores{}, nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("using sqlite", zap.String("path", cfg.Database.SQLitePath))
		return service.Stores{
			Users:   sqlite.NewUserRepository(db),
			Events:  sqlite.NewEventRepository(db),
			Joins:   sqlite.NewJoinRepository(db, cfg.JoinUnique),
			Replies: sqlite.NewReplyRepository(db),
		}, func() { db.Close() }, nil

	default:
		pool, err := database.NewPool(ctx, cfg.PostgresDSN(), logger)
		if err != nil {
			return service.Stores{}, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return service.Stores{}, nil, err
		}
		logger.Info("connected to postgres", zap.String("host", cfg.Database.Host))
		return service.Stores{
			Users:   repository.NewUserRepository(pool),
			Events:  repository.NewEventRepository(pool),
			Joins:   repository.NewJoinRepository(pool, cfg.JoinUnique),
			Replies: repository.NewReplyRepository(pool),
		}, pool.Close, nil
	}
}
