package amortization

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_TwelveMonthLoan(t *testing.T) {
	// 1,000,000 at 1.4% monthly for 12 months.
	principal := decimal.NewFromInt(1_000_000)
	rate := decimal.NewFromFloat(0.014)
	disbursed := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	entries, installment, err := Schedule(principal, rate, 12, disbursed)
	require.NoError(t, err)
	require.Len(t, entries, 12)

	// Annuity payment for these terms is a bit over 91,100.
	assert.True(t, installment.GreaterThan(decimal.NewFromInt(91_000)), "installment %s", installment)
	assert.True(t, installment.LessThan(decimal.NewFromInt(91_300)), "installment %s", installment)

	first := entries[0]
	assert.Equal(t, 1, first.SequenceNumber)
	assert.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), first.DueDate)
	// First period interest = principal * rate.
	assert.True(t, first.InterestPortion.Equal(decimal.NewFromInt(14_000)),
		"first interest should be 14000, got %s", first.InterestPortion)

	last := entries[11]
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), last.DueDate)
	assert.True(t, last.RemainingPrincipal.IsZero(),
		"final balance should be zero, got %s", last.RemainingPrincipal)
}

func TestSchedule_PrincipalPortionsSumToPrincipal(t *testing.T) {
	cases := []struct {
		name string
		p    int64
		rate float64
		term int
	}{
		{"small short", 500_000, 0.014, 6},
		{"large long", 25_000_000, 0.011, 60},
		{"awkward principal", 1_234_567, 0.0185, 24},
		{"single period", 90_000, 0.02, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			principal := decimal.NewFromInt(tc.p)
			entries, _, err := Schedule(principal, decimal.NewFromFloat(tc.rate), tc.term, time.Now())
			require.NoError(t, err)
			require.Len(t, entries, tc.term)

			total := decimal.Zero
			for _, e := range entries {
				total = total.Add(e.PrincipalPortion)
			}
			assert.True(t, total.Equal(principal),
				"principal portions should sum to %s, got %s", principal, total)
			assert.True(t, entries[tc.term-1].RemainingPrincipal.IsZero())
		})
	}
}

func TestSchedule_FixedInstallmentExceptLast(t *testing.T) {
	entries, installment, err := Schedule(decimal.NewFromInt(3_000_000), decimal.NewFromFloat(0.016), 18, time.Now())
	require.NoError(t, err)

	for _, e := range entries[:len(entries)-1] {
		assert.True(t, e.Amount.Equal(installment),
			"period %d amount %s should equal flat installment %s", e.SequenceNumber, e.Amount, installment)
	}
	last := entries[len(entries)-1]
	diff := last.Amount.Sub(installment).Abs()
	assert.True(t, diff.LessThan(decimal.NewFromInt(20)),
		"final rounding adjustment should be small, got %s", diff)
}

func TestSchedule_MonotonicBalance(t *testing.T) {
	entries, _, err := Schedule(decimal.NewFromInt(2_400_000), decimal.NewFromFloat(0.0125), 36, time.Now())
	require.NoError(t, err)

	prev := decimal.NewFromInt(2_400_000)
	for _, e := range entries {
		assert.True(t, e.RemainingPrincipal.LessThan(prev),
			"balance must strictly decrease: period %d has %s after %s", e.SequenceNumber, e.RemainingPrincipal, prev)
		prev = e.RemainingPrincipal
	}
	assert.True(t, prev.IsZero())
}

func TestSchedule_ZeroRate(t *testing.T) {
	entries, installment, err := Schedule(decimal.NewFromInt(120_000), decimal.Zero, 12, time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 12)

	assert.True(t, installment.Equal(decimal.NewFromInt(10_000)))
	for _, e := range entries {
		assert.True(t, e.InterestPortion.IsZero(), "zero-rate schedule must carry no interest")
		assert.True(t, e.PrincipalPortion.Equal(decimal.NewFromInt(10_000)))
	}
}

func TestSchedule_MonthEndNormalization(t *testing.T) {
	// Jan 31 + 1 month normalizes to Mar 2 (non-leap) or Mar 3: Go's AddDate
	// keeps the arithmetic deterministic rather than clamping to month end.
	disbursed := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	entries, _, err := Schedule(decimal.NewFromInt(100_000), decimal.NewFromFloat(0.01), 3, disbursed)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC), entries[0].DueDate)
	assert.Equal(t, time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), entries[1].DueDate)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), entries[2].DueDate)
}

func TestSchedule_InvalidInputs(t *testing.T) {
	t.Run("zero term", func(t *testing.T) {
		_, _, err := Schedule(decimal.NewFromInt(1000), decimal.NewFromFloat(0.01), 0, time.Now())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("zero principal", func(t *testing.T) {
		_, _, err := Schedule(decimal.Zero, decimal.NewFromFloat(0.01), 12, time.Now())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("negative principal", func(t *testing.T) {
		_, _, err := Schedule(decimal.NewFromInt(-5000), decimal.NewFromFloat(0.01), 12, time.Now())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("negative rate", func(t *testing.T) {
		_, _, err := Schedule(decimal.NewFromInt(5000), decimal.NewFromFloat(-0.01), 12, time.Now())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
