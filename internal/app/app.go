// internal/app/app.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"geekshop/internal/config"
	"geekshop/internal/storage"
	"geekshop/internal/storage/postgres"
	"geekshop/internal/storage/sqlite"
	"geekshop/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// SetupLogger ставит текстовый slog-логгер в stdout по умолчанию
func SetupLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// OpenStore открывает хранилище из конфига, применяет миграции
// и при необходимости заполняет каталог.
func OpenStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err = openPostgres(ctx, cfg.DBConn)
	default:
		store, err = sqlite.Open(ctx, cfg.SQLitePath)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SeedCatalog {
		products, err := store.SeedInitialCatalog(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		slog.Info("Catalog ready", "products", len(products))
	}
	slog.Info("Store opened", "driver", cfg.DBDriver)
	return store, nil
}

func openPostgres(ctx context.Context, conn string) (*postgres.Storage, error) {
	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// goose работает через database/sql поверх того же пула
	db := stdlib.OpenDBFromPool(pool)
	if err := migrations.Up(ctx, db, migrations.Postgres); err != nil {
		db.Close()
		pool.Close()
		return nil, err
	}
	if err := db.Close(); err != nil {
		slog.Warn("Closing migration handle failed", "error", err)
	}
	return postgres.NewStorage(pool), nil
}

// OpenSQL открывает database/sql-соединение для cmd/migrate.
func OpenSQL(ctx context.Context, cfg config.Config) (*sql.DB, string, error) {
	if cfg.DBDriver == config.DriverPostgres {
		db, err := sql.Open("pgx", cfg.DBConn)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("ping postgres: %w", err)
		}
		return db, migrations.Postgres, nil
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cfg.SQLitePath))
	if err != nil {
		return nil, "", fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, migrations.SQLite, nil
}
