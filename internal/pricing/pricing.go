// internal/pricing/pricing.go
package pricing

import (
	"errors"
	"strings"
	"unicode"

	"geekshop/internal/domain"

	"github.com/shopspring/decimal"
)

// DailyRate: плата за день аренды
const DailyRate = 200

var (
	ErrTotalZero         = errors.New("total already zero")
	ErrInsufficientBonus = errors.New("insufficient bonus")
)

// CurrencySign завершает цену в каталоге: "1999 ₽"
const CurrencySign = "₽"

// ParsePrice reads a display price such as "1999 ₽". Only the currency sign is
// stripped; anything else that is not a plain number ("ожидается", "12abc") is worth 0.
func ParsePrice(cost string) int {
	s := strings.TrimSpace(cost)
	s = strings.TrimSpace(strings.TrimSuffix(s, CurrencySign))
	s = strings.Replace(s, ",", ".", 1)
	if s == "" || strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	}) >= 0 {
		return 0
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	return int(d.Truncate(0).IntPart())
}

// ComputeTotal суммирует цены строк корзины и добавляет плату за аренду.
// Срок аренды не поправляется: минимум в один день держит вызывающий.
func ComputeTotal(lines []domain.CartLine, rentalDays int) int {
	total := 0
	for _, line := range lines {
		total += ParsePrice(line.Product.Cost) * line.Quantity
	}
	return total + rentalDays*DailyRate
}

// ApplyBonus списывает бонусы с суммы: не больше, чем есть, и не ниже нуля.
// При отказе возвращает исходную сумму и причину.
func ApplyBonus(currentTotal, availableBonus int) (newTotal, bonusUsed int, err error) {
	if currentTotal <= 0 {
		return currentTotal, 0, ErrTotalZero
	}
	if availableBonus <= 0 {
		return currentTotal, 0, ErrInsufficientBonus
	}
	bonusUsed = min(availableBonus, currentTotal)
	return max(0, currentTotal-bonusUsed), bonusUsed, nil
}
