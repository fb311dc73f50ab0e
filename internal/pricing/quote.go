// internal/pricing/quote.go
package pricing

import "geekshop/internal/domain"

// Quote tracks one purchase: the original total and the bonus discount applied to it.
type Quote struct {
	original  int
	total     int
	bonusUsed int
}

// Recalculate пересчитывает сумму по корзине и сбрасывает применённые бонусы.
func (q *Quote) Recalculate(lines []domain.CartLine, rentalDays int) {
	q.original = ComputeTotal(lines, rentalDays)
	q.total = q.original
	q.bonusUsed = 0
}

// ApplyBonus всегда считает от исходной суммы, повторный вызов не удваивает скидку.
// При ошибке состояние не меняется.
func (q *Quote) ApplyBonus(availableBonus int) error {
	total, used, err := ApplyBonus(q.original, availableBonus)
	if err != nil {
		return err
	}
	q.total = total
	q.bonusUsed = used
	return nil
}

func (q *Quote) ResetBonus() {
	q.total = q.original
	q.bonusUsed = 0
}

func (q *Quote) Total() int { return q.total }
func (q *Quote) Original() int { return q.original }
func (q *Quote) BonusUsed() int { return q.bonusUsed }
func (q *Quote) BonusApplied() bool { return q.bonusUsed > 0 }
