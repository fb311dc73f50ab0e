// internal/bonus/bonus.go
package bonus

import (
	"context"
	"fmt"
	"log/slog"

	"geekshop/internal/domain"

	"github.com/shopspring/decimal"
)

// CreditRate: доля покупки, начисляемая бонусами (5%)
var CreditRate = decimal.New(5, -2)

// Settle returns the balance after spending usedBonus and crediting
// floor(purchaseAmount * 5%). The balance never drops below zero.
func Settle(currentBonus, usedBonus, purchaseAmount int) (newBonus, credited int) {
	afterDeduction := max(0, currentBonus-usedBonus)
	credited = int(decimal.NewFromInt(int64(purchaseAmount)).Mul(CreditRate).Floor().IntPart())
	return afterDeduction + credited, credited
}

// Store is what settlement needs from storage.
type Store interface {
	GetBonus(ctx context.Context, userID int) (int, error)
	CommitSettlement(ctx context.Context, userID, newBonus int) error
}

type Result struct {
	OK       bool `json:"ok"`
	NewBonus int  `json:"new_bonus"`
	Credited int  `json:"credited"`
}

type Settler struct {
	store Store
}

func NewSettler(store Store) *Settler {
	return &Settler{store: store}
}

// Settle списывает использованные бонусы, начисляет 5% и очищает корзину.
// Если запись не удалась, баланс и корзина остаются прежними.
func (s *Settler) Settle(ctx context.Context, userID, usedBonus, purchaseAmount int) (Result, error) {
	if purchaseAmount < 0 {
		return Result{}, fmt.Errorf("purchase amount %d: %w", purchaseAmount, domain.ErrInvalidAmount)
	}
	if usedBonus < 0 {
		return Result{}, fmt.Errorf("used bonus %d: %w", usedBonus, domain.ErrInvalidAmount)
	}

	current, err := s.store.GetBonus(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("settle: %w", err)
	}

	newBonus, credited := Settle(current, usedBonus, purchaseAmount)
	if err := s.store.CommitSettlement(ctx, userID, newBonus); err != nil {
		slog.Error("Settlement failed", "error", err, "user_id", userID)
		return Result{}, fmt.Errorf("settle: %w", err)
	}

	slog.Info("Purchase settled", "user_id", userID, "amount", purchaseAmount, "used", usedBonus, "credited", credited, "bonus", newBonus)
	return Result{OK: true, NewBonus: newBonus, Credited: credited}, nil
}
