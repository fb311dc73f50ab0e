// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"geekshop/internal/app"
	"geekshop/internal/config"
	"geekshop/migrations"

	"github.com/joho/godotenv"
)

// Использование: migrate [up|down|status|version|redo|reset]
func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	app.SetupLogger(cfg.LogLevel)

	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	ctx := context.Background()
	db, dialect, err := app.OpenSQL(ctx, cfg)
	if err != nil {
		slog.Error("Не удалось открыть БД", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Применяем миграции", "driver", cfg.DBDriver, "command", command)
	if err := migrations.Run(ctx, db, dialect, command, flag.Args()[min(1, flag.NArg()):]...); err != nil {
		slog.Error("Миграции завершились с ошибкой", "error", err)
		os.Exit(1)
	}

	slog.Info("✅ Миграции применены")
}
