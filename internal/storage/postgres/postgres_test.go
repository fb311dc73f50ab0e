package postgres

import (
	"context"
	"os"
	"testing"

	"geekshop/internal/storage"
	"geekshop/internal/storage/storagetest"
	"geekshop/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Нужен живой Postgres: TEST_DATABASE_URL=postgres://... go test ./...
func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	suite.Run(t, &storagetest.Suite{
		NewStore: func(t *testing.T) storage.Store {
			ctx := context.Background()
			pool, err := pgxpool.New(ctx, dsn)
			require.NoError(t, err)

			db := stdlib.OpenDBFromPool(pool)
			require.NoError(t, migrations.Up(ctx, db, migrations.Postgres))
			require.NoError(t, db.Close())

			_, err = pool.Exec(ctx, "TRUNCATE cart, users, products RESTART IDENTITY")
			require.NoError(t, err)
			return NewStorage(pool)
		},
	})
}
