// internal/bot/bot.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"geekshop/internal/domain"
	"geekshop/internal/pricing"
	"geekshop/internal/shop"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "🎮 *GeekShop*\n\n" +
	"Команды:\n" +
	"`/register логин пароль Имя` — регистрация\n" +
	"`/login логин пароль` — вход\n" +
	"`/logout` — выход\n" +
	"`/categories` — категории\n" +
	"`/catalog [категория]` — товары\n" +
	"`/add id` — добавить в корзину\n" +
	"`/remove id` — убрать из корзины\n" +
	"`/cart [дни]` — корзина и срок аренды\n" +
	"`/bonus` — оплатить бонусами\n" +
	"`/nobonus` — отменить списание бонусов\n" +
	"`/checkout` — оформить заказ\n" +
	"`/pay` — оплатить\n" +
	"`/profile` — профиль и баланс"

type Bot struct {
	shop *shop.Shop
}

func New(s *shop.Shop) *Bot {
	return &Bot{shop: s}
}

func sessionKey(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// md экранирует пользовательский текст для ModeMarkdown
func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// Reply обрабатывает одно сообщение чата и возвращает текст ответа.
func (b *Bot) Reply(ctx context.Context, chatID int64, text string) string {
	text = SanitizeInput(FixEncoding(text))
	cmd, args := splitCommand(text)
	key := sessionKey(chatID)

	var (
		msg string
		err error
	)
	switch cmd {
	case "/start", "/help":
		msg = helpText
	case "/register":
		msg, err = b.register(ctx, args)
	case "/login":
		msg, err = b.login(ctx, key, args)
	case "/logout":
		b.shop.SignOut(key)
		msg = "👋 Вы вышли"
	case "/categories":
		msg = b.categories()
	case "/catalog":
		msg, err = b.catalog(ctx, strings.Join(args, " "))
	case "/add":
		msg, err = b.changeCart(ctx, key, args, b.shop.AddToCart, "✅ Добавлено в корзину")
	case "/remove":
		msg, err = b.changeCart(ctx, key, args, b.shop.RemoveFromCart, "🗑️ Убрано из корзины")
	case "/cart":
		msg, err = b.cart(ctx, key, args)
	case "/bonus":
		var view *shop.CartView
		view, err = b.shop.ApplyBonus(ctx, key)
		if err == nil {
			msg = "✅ Бонусы применены\n\n" + formatCart(view)
		}
	case "/nobonus":
		var view *shop.CartView
		view, err = b.shop.ResetBonus(ctx, key)
		if err == nil {
			msg = "↩️ Списание бонусов отменено\n\n" + formatCart(view)
		}
	case "/checkout":
		var co *shop.Checkout
		co, err = b.shop.Checkout(ctx, key)
		if err == nil {
			msg = fmt.Sprintf("🧾 К оплате: *%d ₽* (бонусами: %d)\nПодтвердите: /pay", co.PurchaseAmount, co.UsedBonus)
		}
	case "/pay":
		msg, err = b.pay(ctx, key)
	case "/profile":
		var user *domain.User
		user, err = b.shop.Profile(ctx, key)
		if err == nil {
			msg = fmt.Sprintf("👤 *%s* (%s)\n💎 Бонусы: %d", md(user.Name), md(user.Login), user.Bonus)
		}
	default:
		msg = "Неизвестная команда. Напиши /help"
	}

	if err != nil {
		return errorText(err, chatID)
	}
	return msg
}

func (b *Bot) register(ctx context.Context, args []string) (string, error) {
	if len(args) < 3 {
		return "❌ Используй: /register логин пароль Имя", nil
	}
	name := strings.Join(args[2:], " ")
	if _, err := b.shop.Accounts().Register(ctx, name, args[0], args[1]); err != nil {
		return "", err
	}
	return "✅ Регистрация прошла успешно. Теперь /login " + md(args[0]) + " пароль", nil
}

func (b *Bot) login(ctx context.Context, key string, args []string) (string, error) {
	if len(args) != 2 {
		return "❌ Используй: /login логин пароль", nil
	}
	user, err := b.shop.SignIn(ctx, key, args[0], args[1])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "❌ Неверный логин или пароль", nil
		}
		return "", err
	}
	return fmt.Sprintf("👋 Привет, %s! Бонусы: %d", md(user.Name), user.Bonus), nil
}

func (b *Bot) categories() string {
	lines := []string{"📂 *Категории*"}
	for _, c := range b.shop.Categories() {
		lines = append(lines, "- "+md(c.Name))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) catalog(ctx context.Context, category string) (string, error) {
	products, err := b.shop.Catalog(ctx, category)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return fmt.Sprintf("📭 Нет товаров в категории *%s*", md(category)), nil
	}
	lines := []string{"🛒 *Каталог*"}
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("%d. %s — %s", p.ID, md(p.Name), md(p.Cost)))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Bot) changeCart(ctx context.Context, key string, args []string,
	op func(context.Context, string, int) error, done string) (string, error) {
	if len(args) != 1 {
		return "❌ Укажи id товара", nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return "❌ id товара — положительное число", nil
	}
	if err := op(ctx, key, id); err != nil {
		return "", err
	}
	return done, nil
}

func (b *Bot) cart(ctx context.Context, key string, args []string) (string, error) {
	days := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return "❌ Срок аренды — не меньше одного дня", nil
		}
		days = n
	}
	view, err := b.shop.Cart(ctx, key, days)
	if err != nil {
		return "", err
	}
	return formatCart(view), nil
}

func (b *Bot) pay(ctx context.Context, key string) (string, error) {
	res, err := b.shop.Pay(ctx, key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Оплата прошла!\n💎 Начислено бонусов: %d\nБаланс: %d", res.Credited, res.NewBonus), nil
}

func formatCart(v *shop.CartView) string {
	if len(v.Lines) == 0 {
		return "📭 Корзина пуста"
	}
	lines := []string{"🛒 *Корзина*"}
	for _, l := range v.Lines {
		lines = append(lines, fmt.Sprintf("%d. %s × %d — %s", l.Product.ID, md(l.Product.Name), l.Quantity, md(l.Product.Cost)))
	}
	lines = append(lines, fmt.Sprintf("\nАренда: %d дн. × %d ₽", v.RentalDays, pricing.DailyRate))
	if v.BonusUsed > 0 {
		lines = append(lines, fmt.Sprintf("Сумма: %d ₽, бонусами: −%d", v.Original, v.BonusUsed))
	}
	lines = append(lines, fmt.Sprintf("*Итого: %d ₽*", v.Total), fmt.Sprintf("💎 Доступно бонусов: %d", v.Bonus))
	return strings.Join(lines, "\n")
}

func errorText(err error, chatID int64) string {
	switch {
	case errors.Is(err, shop.ErrNotSignedIn):
		return "🔒 Сначала войди: /login логин пароль"
	case errors.Is(err, domain.ErrInvalidInput):
		return "❌ Проверь данные: " + md(err.Error())
	case errors.Is(err, domain.ErrDuplicateLogin):
		return "❌ Такой логин уже занят"
	case errors.Is(err, domain.ErrNotFound):
		return "❌ Товар не найден"
	case errors.Is(err, pricing.ErrTotalZero):
		return "ℹ️ Сумма уже нулевая"
	case errors.Is(err, pricing.ErrInsufficientBonus):
		return "ℹ️ Недостаточно бонусов"
	case errors.Is(err, shop.ErrEmptyCart):
		return "📭 Корзина пуста"
	case errors.Is(err, shop.ErrNothingToPay):
		return "🧾 Сначала оформи заказ: /checkout"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "❌ Некорректная сумма"
	}
	slog.Error("Bot command failed", "error", err, "chat_id", chatID)
	return "❌ Ошибка, попробуй позже"
}
