package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan lifecycle statuses. VENCIDO is set by the overdue sweep and is never
// reverted automatically; catching up is an administrative action.
const (
	LoanStatusSolicitado = "SOLICITADO"
	LoanStatusAprobado   = "APROBADO"
	LoanStatusRechazado  = "RECHAZADO"
	LoanStatusVencido    = "VENCIDO"
)

// Loan represents a member's installment credit.
type Loan struct {
	ID                 int64           `json:"id"`
	MemberID           int64           `json:"member_id"`
	MemberEmail        string          `json:"member_email,omitempty"` // contact snapshot from the member registry
	Principal          decimal.Decimal `json:"principal"`
	TermMonths         int             `json:"term_months"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"` // set on approval
	RequestDate        time.Time       `json:"request_date"`
	DisbursementDate   *time.Time      `json:"disbursement_date,omitempty"`
	DueDate            *time.Time      `json:"due_date,omitempty"`
	Status             string          `json:"status"`
	RateID             int64           `json:"rate_id"`
	HasOverdue         bool            `json:"has_overdue_installments"`
	Notes              string          `json:"notes,omitempty"`
	TermsHMAC          string          `json:"terms_hmac"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
