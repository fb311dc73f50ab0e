// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geekshop/internal/app"
	"geekshop/internal/auth"
	"geekshop/internal/bot"
	"geekshop/internal/config"
	"geekshop/internal/handler"
	"geekshop/internal/middleware"
	"geekshop/internal/session"
	"geekshop/internal/shop"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	app.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("Не удалось открыть хранилище", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions := session.NewMemory()
	geekShop := shop.New(store, sessions)

	// JWT
	tokenService := auth.NewTokenService(cfg)

	// Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Telegram webhook
	if cfg.BotToken != "" && cfg.WebhookURL != "" {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			slog.Error("Не удалось инициализировать Telegram бота", "error", err)
			os.Exit(1)
		}
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			slog.Error("Некорректный адрес webhook", "error", err)
			os.Exit(1)
		}
		if _, err := api.Request(wh); err != nil {
			slog.Error("Не удалось установить webhook", "error", err)
			os.Exit(1)
		}
		slog.Info("Telegram webhook установлен", "url", cfg.WebhookURL)

		shopBot := bot.New(geekShop)
		router.POST("/telegram", func(c *gin.Context) {
			var update tgbotapi.Update
			if err := c.ShouldBindJSON(&update); err != nil {
				slog.Error("Ошибка парсинга обновления", "error", err)
				c.Status(http.StatusBadRequest)
				return
			}
			shopBot.HandleUpdate(c.Request.Context(), api, update)
			c.Status(http.StatusOK)
		})
	}

	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	handler.NewShopHandler(geekShop, tokenService).Routes(router, authMiddleware.RequireAuth())

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("🚀 Сервер запущен", "addr", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Сервер завершил работу с ошибкой", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Остановка сервера", "error", err)
	}
	slog.Info("Сервер остановлен")
}
