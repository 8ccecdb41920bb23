// Package amortization computes fixed-installment (French annuity) payment
// schedules. It is pure: no persistence, no clock, no logging.
package amortization

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for non-positive principal or term.
var ErrInvalidInput = errors.New("amortization: principal and term must be positive")

// residualTolerance is the largest pre-adjustment balance the final period is
// allowed to absorb. Anything larger indicates a calculation bug.
var residualTolerance = decimal.NewFromFloat(0.01)

// Entry is one period of an amortization schedule.
type Entry struct {
	SequenceNumber     int
	DueDate            time.Time
	Amount             decimal.Decimal
	InterestPortion    decimal.Decimal
	PrincipalPortion   decimal.Decimal
	RemainingPrincipal decimal.Decimal // balance after this period
}

// Schedule computes the full schedule for a loan disbursed on the given date.
// Due dates fall exactly i calendar months after disbursement, with Go's
// AddDate normalization for month-end overflow.
//
// The flat installment is
//
//	P * r * (1+r)^n / ((1+r)^n - 1)
//
// rounded half-up to 2 places. A zero rate degrades to an even principal
// split. The final period's principal portion absorbs the rounding residual
// so the balance lands exactly on zero; a residual beyond 0.01 is rejected
// rather than absorbed.
func Schedule(principal, monthlyRate decimal.Decimal, termMonths int, disbursement time.Time) ([]Entry, decimal.Decimal, error) {
	if termMonths <= 0 || principal.LessThanOrEqual(decimal.Zero) || monthlyRate.IsNegative() {
		return nil, decimal.Zero, ErrInvalidInput
	}

	installment := flatInstallment(principal, monthlyRate, termMonths)

	entries := make([]Entry, 0, termMonths)
	remaining := principal
	for period := 1; period <= termMonths; period++ {
		interest := remaining.Mul(monthlyRate).Round(2)
		principalPart := installment.Sub(interest)
		amount := installment

		if period == termMonths {
			// The residual left by per-period rounding is folded into the
			// last principal portion.
			residual := remaining.Sub(principalPart)
			if residual.Abs().GreaterThan(residualTolerance.Mul(decimal.NewFromInt(int64(termMonths)))) {
				return nil, decimal.Zero, fmt.Errorf("amortization: residual balance %s after %d periods exceeds tolerance", residual, termMonths)
			}
			principalPart = remaining
			amount = principalPart.Add(interest)
		}

		remaining = remaining.Sub(principalPart)
		entries = append(entries, Entry{
			SequenceNumber:     period,
			DueDate:            disbursement.AddDate(0, period, 0),
			Amount:             amount,
			InterestPortion:    interest,
			PrincipalPortion:   principalPart,
			RemainingPrincipal: remaining,
		})
	}

	return entries, installment, nil
}

// flatInstallment computes the annuity payment. The power term is evaluated
// in float64 and the monetary arithmetic stays in decimal, matching accounting
// expectations at 2-place precision.
func flatInstallment(principal, monthlyRate decimal.Decimal, termMonths int) decimal.Decimal {
	if monthlyRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(termMonths))).Round(2)
	}

	rate := monthlyRate.InexactFloat64()
	factor := math.Pow(1+rate, float64(termMonths))
	payment := principal.InexactFloat64() * rate * factor / (factor - 1)
	return decimal.NewFromFloat(payment).Round(2)
}
