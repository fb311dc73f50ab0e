// migrations/migrations.go
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Goose dialect names, each with its own directory in FS.
const (
	SQLite   = "sqlite3"
	Postgres = "postgres"
)

var dirs = map[string]string{
	SQLite:   "sqlite",
	Postgres: "postgres",
}

// goose хранит настройки глобально
var mu sync.Mutex

// Up applies every pending migration for the dialect.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	return Run(ctx, db, dialect, "up")
}

// Run выполняет команду goose (up, down, status, version, redo, reset).
func Run(ctx context.Context, db *sql.DB, dialect, command string, args ...string) error {
	dir, ok := dirs[dialect]
	if !ok {
		return fmt.Errorf("unknown dialect %q", dialect)
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(FS)
	goose.SetLogger(slogLogger{})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

type slogLogger struct{}

func (slogLogger) Printf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "goose")
}

func (slogLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...), "component", "goose")
	os.Exit(1)
}
