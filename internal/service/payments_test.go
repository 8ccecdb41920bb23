package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopfin/loan-service/internal/models"
)

var installmentColumns = []string{
	"id", "loan_id", "sequence_number", "due_date", "amount", "interest_portion",
	"principal_portion", "remaining_principal", "status", "created_at", "updated_at",
}

func installmentRow(id int64, due time.Time, amount, interest, principal, remaining, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(installmentColumns).
		AddRow(id, int64(42), 1, due, amount, interest, principal, remaining, status, now, now)
}

func expectMethodLookup(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery("SELECT (.+) FROM coop.payment_methods").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active"}).AddRow(id, "Ventanilla", true))
}

func expectPaymentTx(mock sqlmock.Sqlmock, installmentID, paymentID int64) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM coop.installments WHERE id (.+) FOR UPDATE").
		WithArgs(installmentID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.InstallmentStatusPendiente))
	mock.ExpectExec("UPDATE coop.installments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO coop.payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(paymentID, time.Now()))
	mock.ExpectCommit()
}

func TestApplyPayment_OnTime(t *testing.T) {
	svc, mock := newTestService(t)
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM coop.installments WHERE id").
		WithArgs(int64(101)).
		WillReturnRows(installmentRow(101, due, "91110.00", "14000.00", "77110.00", "922890.00", models.InstallmentStatusPendiente))
	expectMethodLookup(mock, 2)
	expectPaymentTx(mock, 101, 900)

	payment, err := svc.ApplyPayment(context.Background(), 101, due, 2, DefaultPaymentOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, payment.DaysLate)
	assert.True(t, payment.ArrearsFee.IsZero(), "no arrears on an on-time payment")
	assert.True(t, payment.InterestPortion.Equal(decimal.NewFromInt(14_000)))
	assert.True(t, payment.PrincipalPortion.Equal(decimal.NewFromInt(77_110)))

	// Protection is charged against the balance before this period:
	// 922890 + 77110 = 1000000, times 0.001.
	assert.True(t, payment.ProtectionFee.Equal(decimal.NewFromInt(1_000)),
		"protection fee should be 1000, got %s", payment.ProtectionFee)

	expectedTotal := decimal.NewFromInt(14_000 + 77_110 + 1_000)
	assert.True(t, payment.TotalPaid.Equal(expectedTotal),
		"total should be %s, got %s", expectedTotal, payment.TotalPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPayment_TenDaysLate(t *testing.T) {
	svc, mock := newTestService(t)
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	paid := time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM coop.installments WHERE id").
		WithArgs(int64(101)).
		WillReturnRows(installmentRow(101, due, "100000.00", "14000.00", "86000.00", "514000.00", models.InstallmentStatusPendiente))
	expectMethodLookup(mock, 2)
	expectPaymentTx(mock, 101, 901)

	payment, err := svc.ApplyPayment(context.Background(), 101, paid, 2, DefaultPaymentOptions())
	require.NoError(t, err)

	assert.Equal(t, 10, payment.DaysLate)
	// ceil(100000 * 0.18/366 * 10) = ceil(491.80...) = 492.
	assert.True(t, payment.ArrearsFee.Equal(decimal.NewFromInt(492)),
		"arrears fee should be 492, got %s", payment.ArrearsFee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPayment_ExtraPrincipalAndFeeOverrides(t *testing.T) {
	svc, mock := newTestService(t)
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	paid := due.AddDate(0, 0, 20)

	mock.ExpectQuery("SELECT (.+) FROM coop.installments WHERE id").
		WithArgs(int64(101)).
		WillReturnRows(installmentRow(101, due, "91110.00", "14000.00", "77110.00", "922890.00", models.InstallmentStatusPendiente))
	expectMethodLookup(mock, 2)
	expectPaymentTx(mock, 101, 902)

	opts := PaymentOptions{
		ExtraPrincipal:    decimal.NewFromInt(50_000),
		IncludeArrears:    false,
		IncludeProtection: false,
	}
	payment, err := svc.ApplyPayment(context.Background(), 101, paid, 2, opts)
	require.NoError(t, err)

	assert.Equal(t, 20, payment.DaysLate, "lateness is recorded even when the fee is waived")
	assert.True(t, payment.ArrearsFee.IsZero())
	assert.True(t, payment.ProtectionFee.IsZero())
	assert.True(t, payment.ExtraPrincipal.Equal(decimal.NewFromInt(50_000)))

	expectedTotal := decimal.NewFromInt(14_000 + 77_110 + 50_000)
	assert.True(t, payment.TotalPaid.Equal(expectedTotal),
		"total should be %s, got %s", expectedTotal, payment.TotalPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPayment_RejectsDoublePayment(t *testing.T) {
	svc, mock := newTestService(t)
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM coop.installments WHERE id").
		WithArgs(int64(101)).
		WillReturnRows(installmentRow(101, due, "91110.00", "14000.00", "77110.00", "922890.00", models.InstallmentStatusPagado))

	_, err := svc.ApplyPayment(context.Background(), 101, due, 2, DefaultPaymentOptions())
	var pErr *PreconditionError
	assert.ErrorAs(t, err, &pErr)
	assert.NoError(t, mock.ExpectationsWereMet(), "no payment row may be created for a paid installment")
}

func TestApplyPayment_RejectsDoublePaymentRace(t *testing.T) {
	svc, mock := newTestService(t)
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM coop.installments WHERE id").
		WithArgs(int64(101)).
		WillReturnRows(installmentRow(101, due, "91110.00", "14000.00", "77110.00", "922890.00", models.InstallmentStatusPendiente))
	expectMethodLookup(mock, 2)

	// Another teller settled the installment between the read and the lock.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM coop.installments WHERE id (.+) FOR UPDATE").
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.InstallmentStatusPagado))
	mock.ExpectRollback()

	_, err := svc.ApplyPayment(context.Background(), 101, due, 2, DefaultPaymentOptions())
	var pErr *PreconditionError
	assert.ErrorAs(t, err, &pErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPayment_RejectsUnknownMethod(t *testing.T) {
	svc, mock := newTestService(t)
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM coop.installments WHERE id").
		WithArgs(int64(101)).
		WillReturnRows(installmentRow(101, due, "91110.00", "14000.00", "77110.00", "922890.00", models.InstallmentStatusPendiente))
	mock.ExpectQuery("SELECT (.+) FROM coop.payment_methods").
		WithArgs(int64(33)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.ApplyPayment(context.Background(), 101, due, 33, DefaultPaymentOptions())
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPayment_RejectsNegativeExtraPrincipal(t *testing.T) {
	svc, mock := newTestService(t)

	opts := DefaultPaymentOptions()
	opts.ExtraPrincipal = decimal.NewFromInt(-1)
	_, err := svc.ApplyPayment(context.Background(), 101, time.Now(), 2, opts)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysLate(due, due))
	assert.Equal(t, 0, daysLate(due, due.AddDate(0, 0, -3)), "early payments clamp at zero")
	assert.Equal(t, 10, daysLate(due, time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)))
	// Time of day is irrelevant: only calendar days count.
	assert.Equal(t, 1, daysLate(due, time.Date(2024, 1, 16, 23, 55, 0, 0, time.UTC)))
}
