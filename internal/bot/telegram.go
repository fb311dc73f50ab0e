// internal/bot/telegram.go
package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of tgbotapi.BotAPI used to answer a chat.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// HandleUpdate отвечает на одно обновление; всё, кроме сообщений, пропускается.
func (b *Bot) HandleUpdate(ctx context.Context, api Sender, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	// в аргументах /login и /register пароль, поэтому пишем только команду
	cmd, args := splitCommand(update.Message.Text)
	if !strings.HasPrefix(cmd, "/") {
		cmd = ""
	}
	slog.Info("📥 Получено сообщение", "chat_id", chatID, "command", cmd, "args", len(args))

	msg := tgbotapi.NewMessage(chatID, b.Reply(ctx, chatID, update.Message.Text))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := api.Send(msg); err != nil {
		slog.Error("Не удалось отправить ответ", "error", err, "chat_id", chatID)
	}
}

// Poll читает обновления long polling'ом, пока не отменён ctx.
func (b *Bot) Poll(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, api, update)
		}
	}
}
