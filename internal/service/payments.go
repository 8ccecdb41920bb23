package service

import (
	"context"
	"errors"
	"time"

	"github.com/coopfin/loan-service/internal/models"
	"github.com/coopfin/loan-service/internal/repository"
	"github.com/shopspring/decimal"
)

// PaymentOptions carries the caller-supplied knobs for a payment. The fee
// toggles are administrative overrides and default to charging both fees.
type PaymentOptions struct {
	ExtraPrincipal    decimal.Decimal
	IncludeArrears    bool
	IncludeProtection bool
}

// DefaultPaymentOptions charges arrears and protection with no extra principal.
func DefaultPaymentOptions() PaymentOptions {
	return PaymentOptions{IncludeArrears: true, IncludeProtection: true}
}

// ApplyPayment settles a single installment. The interest and principal
// portions come straight from the persisted schedule; only the arrears fee,
// the protection fee and the optional extra principal are derived here.
//
//   - arrears  = ceil(amount * annualPenaltyRate/yearDays * daysLate)
//   - protection = previous remaining balance * protection rate
//
// The installment is marked PAGADO and the payment record appended in one
// transaction; a second payment attempt fails without creating anything.
func (s *Service) ApplyPayment(ctx context.Context, installmentID int64, paymentDate time.Time, methodID int64, opts PaymentOptions) (*models.Payment, error) {
	if opts.ExtraPrincipal.IsNegative() {
		return nil, validationf("extra principal must not be negative, got %s", opts.ExtraPrincipal)
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	inst, err := s.repo.FindInstallmentByID(installmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("installment %d not found", installmentID)
		}
		return nil, err
	}
	if inst.Status == models.InstallmentStatusPagado {
		return nil, preconditionf("installment %d is already paid", installmentID)
	}

	if _, err := s.repo.FindPaymentMethodByID(methodID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("payment method %d does not exist", methodID)
		}
		return nil, err
	}

	late := daysLate(inst.DueDate, paymentDate)

	arrears := decimal.Zero
	if opts.IncludeArrears && late > 0 {
		arrears = s.arrearsFee(inst.Amount, late)
	}

	protection := decimal.Zero
	if opts.IncludeProtection {
		protection = inst.PreviousRemainingPrincipal().Mul(s.config.ProtectionRate).Round(2)
	}

	total := inst.PrincipalPortion.
		Add(inst.InterestPortion).
		Add(arrears).
		Add(protection).
		Add(opts.ExtraPrincipal)

	payment := &models.Payment{
		InstallmentID:    installmentID,
		PaymentDate:      paymentDate,
		DaysLate:         late,
		ArrearsFee:       arrears,
		ExtraPrincipal:   opts.ExtraPrincipal,
		ProtectionFee:    protection,
		InterestPortion:  inst.InterestPortion,
		PrincipalPortion: inst.PrincipalPortion,
		TotalPaid:        total,
		PaymentMethodID:  methodID,
	}
	if err := s.repo.ApplyPayment(ctx, payment); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyPaid):
			return nil, preconditionf("installment %d is already paid", installmentID)
		case errors.Is(err, repository.ErrNotFound):
			return nil, notFoundf("installment %d not found", installmentID)
		}
		return nil, err
	}

	s.log.Infof("Payment %d applied to installment %d: total %s (%d days late, arrears %s)",
		payment.ID, installmentID, total, late, arrears)
	return payment, nil
}

// arrearsFee applies the daily penalty convention, rounded up to the nearest
// currency unit.
func (s *Service) arrearsFee(amount decimal.Decimal, late int) decimal.Decimal {
	daily := s.config.ArrearsAnnualRate.Div(decimal.NewFromInt(int64(s.config.ArrearsYearDays)))
	return amount.Mul(daily).Mul(decimal.NewFromInt(int64(late))).Ceil()
}

// daysLate counts whole calendar days between the due date and the payment
// date, clamped at zero for early or on-time payments.
func daysLate(due, paid time.Time) int {
	due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	paid = time.Date(paid.Year(), paid.Month(), paid.Day(), 0, 0, 0, 0, time.UTC)
	days := int(paid.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
