// internal/shop/shop.go
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"geekshop/internal/account"
	"geekshop/internal/bonus"
	"geekshop/internal/catalog"
	"geekshop/internal/domain"
	"geekshop/internal/pricing"
	"geekshop/internal/session"
	"geekshop/internal/storage"
)

var (
	ErrNotSignedIn  = errors.New("not signed in")
	ErrEmptyCart    = errors.New("cart is empty")
	ErrNothingToPay = errors.New("nothing to pay")
)

// CartView — корзина с расчётом к оплате
type CartView struct {
	Lines      []domain.CartLine `json:"lines"`
	RentalDays int               `json:"rental_days"`
	Original   int               `json:"original"`
	Total      int               `json:"total"`
	BonusUsed  int               `json:"bonus_used"`
	Bonus      int               `json:"bonus"`
}

type Checkout struct {
	PurchaseAmount int `json:"purchase_amount"`
	UsedBonus      int `json:"used_bonus"`
}

type quoteEntry struct {
	quote pricing.Quote
	days  int
}

// Shop связывает сессию покупателя с корзиной, бонусами и оплатой.
// Ключ сессии выбирает фронтенд: "api:<id>" для HTTP, "tg:<chat>" для бота.
type Shop struct {
	store    storage.Store
	accounts *account.Service
	settler  *bonus.Settler
	sessions session.Store

	mu     sync.Mutex
	quotes map[string]*quoteEntry
}

func New(store storage.Store, sessions session.Store) *Shop {
	return &Shop{
		store:    store,
		accounts: account.NewService(store),
		settler:  bonus.NewSettler(store),
		sessions: sessions,
		quotes:   make(map[string]*quoteEntry),
	}
}

func (s *Shop) Accounts() *account.Service {
	return s.accounts
}

// === Каталог ===

func (s *Shop) Categories() []domain.Category {
	return catalog.Categories()
}

// Catalog отдаёт товары категории; пустая база засевается встроенным каталогом.
func (s *Shop) Catalog(ctx context.Context, category string) ([]domain.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if len(products) == 0 {
		if products, err = s.store.SeedInitialCatalog(ctx); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	return catalog.FilterByCategory(products, category), nil
}

// === Сессия ===

// SignIn проверяет логин и пароль и записывает пользователя в сессию.
func (s *Shop) SignIn(ctx context.Context, key, login, password string) (*domain.User, error) {
	user, err := s.accounts.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	s.SignOut(key)
	s.remember(key, user)
	slog.Info("Signed in", "user_id", user.ID, "session", key)
	return user, nil
}

func (s *Shop) SignOut(key string) {
	s.sessions.Clear(key)
	s.mu.Lock()
	delete(s.quotes, key)
	s.mu.Unlock()
}

// EnsureSession привязывает сессию к уже проверенному пользователю (например, по JWT).
func (s *Shop) EnsureSession(ctx context.Context, key string, userID int) error {
	if current, ok := session.UserID(s.sessions, key); ok && current == userID {
		return nil
	}
	user, err := s.accounts.Profile(ctx, userID)
	if err != nil {
		return err
	}
	s.SignOut(key)
	s.remember(key, user)
	return nil
}

func (s *Shop) remember(key string, user *domain.User) {
	s.sessions.SetInt(key, session.CurrentUserID, user.ID)
	s.sessions.SetString(key, session.UserName, user.Name)
	s.sessions.SetString(key, session.UserLogin, user.Login)
	s.sessions.SetInt(key, session.UserBonus, user.Bonus)
}

func (s *Shop) userID(key string) (int, error) {
	id, ok := session.UserID(s.sessions, key)
	if !ok {
		return 0, ErrNotSignedIn
	}
	return id, nil
}

// === Корзина ===

func (s *Shop) AddToCart(ctx context.Context, key string, productID int) error {
	userID, err := s.userID(key)
	if err != nil {
		return err
	}
	if err := s.store.UpsertCartLine(ctx, userID, productID); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	s.dropCheckout(key)
	return nil
}

func (s *Shop) RemoveFromCart(ctx context.Context, key string, productID int) error {
	userID, err := s.userID(key)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCartLine(ctx, userID, productID); err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	s.dropCheckout(key)
	return nil
}

// Cart пересчитывает корзину. days < 1 оставляет прежний срок аренды (по умолчанию 1 день).
// Скидка бонусами сохраняется, пока не изменились состав корзины и срок.
func (s *Shop) Cart(ctx context.Context, key string, days int) (*CartView, error) {
	userID, err := s.userID(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx, key, userID, days)
}

func (s *Shop) ApplyBonus(ctx context.Context, key string) (*CartView, error) {
	userID, err := s.userID(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.refresh(ctx, key, userID, 0)
	if err != nil {
		return nil, err
	}
	entry := s.quotes[key]
	if err := entry.quote.ApplyBonus(view.Bonus); err != nil {
		return view, err
	}
	s.dropCheckout(key)
	return s.view(entry, view.Lines, view.Bonus), nil
}

func (s *Shop) ResetBonus(ctx context.Context, key string) (*CartView, error) {
	userID, err := s.userID(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.refresh(ctx, key, userID, 0)
	if err != nil {
		return nil, err
	}
	entry := s.quotes[key]
	entry.quote.ResetBonus()
	s.dropCheckout(key)
	return s.view(entry, view.Lines, view.Bonus), nil
}

// refresh вызывается под s.mu
func (s *Shop) refresh(ctx context.Context, key string, userID, days int) (*CartView, error) {
	lines, err := s.store.CartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cart: %w", err)
	}
	available, err := s.store.GetBonus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cart: %w", err)
	}
	s.sessions.SetInt(key, session.UserBonus, available)

	entry, ok := s.quotes[key]
	if !ok {
		entry = &quoteEntry{days: 1}
		s.quotes[key] = entry
	}
	if days < 1 {
		days = max(1, entry.days)
	}
	if !ok || days != entry.days || pricing.ComputeTotal(lines, days) != entry.quote.Original() {
		entry.days = days
		entry.quote.Recalculate(lines, days)
		s.dropCheckout(key)
	}
	// бонусов могло стать меньше, чем было применено
	if entry.quote.BonusUsed() > available {
		entry.quote.ResetBonus()
		s.dropCheckout(key)
	}
	return s.view(entry, lines, available), nil
}

func (s *Shop) view(entry *quoteEntry, lines []domain.CartLine, available int) *CartView {
	return &CartView{
		Lines:      lines,
		RentalDays: entry.days,
		Original:   entry.quote.Original(),
		Total:      entry.quote.Total(),
		BonusUsed:  entry.quote.BonusUsed(),
		Bonus:      available,
	}
}

// === Оформление и оплата ===

// Checkout фиксирует сумму к оплате и списываемые бонусы в сессии.
// Корзина очищается только после оплаты; любое её изменение отменяет оформление.
func (s *Shop) Checkout(ctx context.Context, key string) (*Checkout, error) {
	userID, err := s.userID(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.refresh(ctx, key, userID, 0)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	s.sessions.SetInt(key, session.PurchaseAmount, view.Total)
	s.sessions.SetInt(key, session.UsedBonus, view.BonusUsed)
	slog.Info("Checkout", "user_id", userID, "amount", view.Total, "used_bonus", view.BonusUsed)
	return &Checkout{PurchaseAmount: view.Total, UsedBonus: view.BonusUsed}, nil
}

// Pay проводит оплату оформленного заказа: бонусы пересчитываются, корзина очищается.
// Если корзина разошлась с оформленной суммой (например, её поменяли из другой
// сессии того же пользователя), оформление сбрасывается и возвращается ErrNothingToPay.
// При ошибке записи сессия не меняется и оплату можно повторить.
func (s *Shop) Pay(ctx context.Context, key string) (bonus.Result, error) {
	userID, err := s.userID(key)
	if err != nil {
		return bonus.Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, ok := s.sessions.GetInt(key, session.PurchaseAmount)
	if !ok {
		return bonus.Result{}, ErrNothingToPay
	}
	if amount < 0 {
		return bonus.Result{}, fmt.Errorf("purchase amount %d: %w", amount, domain.ErrInvalidAmount)
	}
	used, _ := s.sessions.GetInt(key, session.UsedBonus)

	view, err := s.refresh(ctx, key, userID, 0)
	if err != nil {
		return bonus.Result{}, err
	}
	if len(view.Lines) == 0 || view.Total != amount || view.BonusUsed != used {
		s.dropCheckout(key)
		slog.Warn("Checkout is stale", "user_id", userID, "checked_out", amount, "total", view.Total)
		return bonus.Result{}, fmt.Errorf("cart changed since checkout: %w", ErrNothingToPay)
	}

	res, err := s.settler.Settle(ctx, userID, used, amount)
	if err != nil {
		return res, err
	}

	s.sessions.Delete(key, session.PurchaseAmount, session.UsedBonus)
	s.sessions.SetInt(key, session.UserBonus, res.NewBonus)
	delete(s.quotes, key)
	return res, nil
}

func (s *Shop) dropCheckout(key string) {
	s.sessions.Delete(key, session.PurchaseAmount, session.UsedBonus)
}

// === Профиль ===

func (s *Shop) Profile(ctx context.Context, key string) (*domain.User, error) {
	userID, err := s.userID(key)
	if err != nil {
		return nil, err
	}
	user, err := s.accounts.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.sessions.SetInt(key, session.UserBonus, user.Bonus)
	return user, nil
}
