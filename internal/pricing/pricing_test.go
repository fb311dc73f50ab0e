package pricing

import (
	"testing"

	"geekshop/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(cost string, qty int) domain.CartLine {
	return domain.CartLine{Product: domain.Product{Cost: cost}, Quantity: qty}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]int{
		"1999 ₽":    1999,
		"0 ₽":       0,
		"ожидается": 0,
		"":          0,
		"  499₽ ":   499,
		"99.90 ₽":   99,
		"12,5 ₽":    12,
		"-5 ₽":      0,
		"₽ 100":     0,
		"12abc":     0,
		"12abc ₽":   0,
		"1e3 ₽":     0,
		"1.2.3 ₽":   0,
		"1 999 ₽":   0,
		"₽":         0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParsePrice(in), "ParsePrice(%q)", in)
	}
}

func TestComputeTotal(t *testing.T) {
	lines := []domain.CartLine{
		line("1999 ₽", 2),
		line("ожидается", 3),
		line("500 ₽", 1),
	}
	assert.Equal(t, 1999*2+500+3*DailyRate, ComputeTotal(lines, 3))
	assert.Equal(t, DailyRate, ComputeTotal(nil, 1))
	// сумма считается ровно по формуле, без поправки срока
	assert.Equal(t, 0, ComputeTotal(nil, 0))
	assert.Equal(t, 1999*2+500, ComputeTotal(lines, 0))
}

func TestApplyBonusExample(t *testing.T) {
	total, used, err := ApplyBonus(1000, 300)
	require.NoError(t, err)
	assert.Equal(t, 700, total)
	assert.Equal(t, 300, used)
}

func TestApplyBonusCapsAtTotal(t *testing.T) {
	total, used, err := ApplyBonus(250, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 250, used)
}

func TestApplyBonusReasons(t *testing.T) {
	total, used, err := ApplyBonus(0, 0)
	require.ErrorIs(t, err, ErrTotalZero)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, used)

	total, used, err = ApplyBonus(0, 100)
	require.ErrorIs(t, err, ErrTotalZero)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, used)

	total, used, err = ApplyBonus(500, 0)
	require.ErrorIs(t, err, ErrInsufficientBonus)
	assert.Equal(t, 500, total)
	assert.Equal(t, 0, used)
}

func TestApplyBonusNeverNegative(t *testing.T) {
	for currentTotal := 0; currentTotal <= 60; currentTotal += 3 {
		for available := 0; available <= 60; available += 7 {
			total, used, err := ApplyBonus(currentTotal, available)
			assert.GreaterOrEqual(t, total, 0)
			if err != nil {
				assert.Equal(t, currentTotal, total)
				assert.Zero(t, used)
				continue
			}
			assert.Equal(t, max(0, currentTotal-min(available, currentTotal)), total)
			assert.Equal(t, min(available, currentTotal), used)
		}
	}
}

func TestQuote(t *testing.T) {
	var q Quote
	q.Recalculate([]domain.CartLine{line("800 ₽", 1)}, 1)
	assert.Equal(t, 1000, q.Original())
	assert.Equal(t, 1000, q.Total())
	assert.False(t, q.BonusApplied())

	require.NoError(t, q.ApplyBonus(300))
	assert.Equal(t, 700, q.Total())
	assert.Equal(t, 300, q.BonusUsed())
	assert.True(t, q.BonusApplied())

	// повторное применение считается от исходной суммы
	require.NoError(t, q.ApplyBonus(300))
	assert.Equal(t, 700, q.Total())

	q.ResetBonus()
	assert.Equal(t, 1000, q.Total())
	assert.Zero(t, q.BonusUsed())

	require.ErrorIs(t, q.ApplyBonus(0), ErrInsufficientBonus)
	assert.Equal(t, 1000, q.Total())
}

func TestQuoteRecalculateDropsBonus(t *testing.T) {
	var q Quote
	q.Recalculate([]domain.CartLine{line("800 ₽", 1)}, 1)
	require.NoError(t, q.ApplyBonus(100))

	q.Recalculate([]domain.CartLine{line("800 ₽", 2)}, 2)
	assert.Equal(t, 2000, q.Total())
	assert.Zero(t, q.BonusUsed())
}
