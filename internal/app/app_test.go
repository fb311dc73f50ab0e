package app

import (
	"context"
	"path/filepath"
	"testing"

	"geekshop/internal/config"
	"geekshop/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreSQLiteSeeds(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		DBDriver:    config.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "shop.db"),
		SeedCatalog: true,
	}

	store, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	defer store.Close()

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 28)
}

func TestOpenStoreWithoutSeed(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "shop.db"),
	}

	store, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	defer store.Close()

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestOpenSQLForMigrations(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "shop.db"),
	}

	db, dialect, err := OpenSQL(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, migrations.SQLite, dialect)

	require.NoError(t, migrations.Run(ctx, db, dialect, "up"))
	require.NoError(t, migrations.Run(ctx, db, dialect, "status"))
}
