package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records the settlement of a single installment. Immutable after
// creation; corrections require a new record.
type Payment struct {
	ID               int64           `json:"id"`
	InstallmentID    int64           `json:"installment_id"`
	PaymentDate      time.Time       `json:"payment_date"`
	DaysLate         int             `json:"days_late"`
	ArrearsFee       decimal.Decimal `json:"arrears_fee"`
	ExtraPrincipal   decimal.Decimal `json:"extra_principal"`
	ProtectionFee    decimal.Decimal `json:"protection_fee"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	PaymentMethodID  int64           `json:"payment_method_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentMethod is a lookup entry for how a payment was collected.
type PaymentMethod struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
