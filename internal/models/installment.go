package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment statuses. Overdue is not a status: it is inferred from
// PENDIENTE plus an elapsed due date and surfaced at the loan level.
const (
	InstallmentStatusPendiente = "PENDIENTE"
	InstallmentStatusPagado    = "PAGADO"
)

// Installment is one scheduled period of a loan. The interest/principal
// breakdown and the balance remaining after the period are persisted at
// approval time; the payment engine reads them back instead of recomputing.
type Installment struct {
	ID                 int64           `json:"id"`
	LoanID             int64           `json:"loan_id"`
	SequenceNumber     int             `json:"sequence_number"`
	DueDate            time.Time       `json:"due_date"`
	Amount             decimal.Decimal `json:"amount"`
	InterestPortion    decimal.Decimal `json:"interest_portion"`
	PrincipalPortion   decimal.Decimal `json:"principal_portion"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// PreviousRemainingPrincipal is the loan balance before this period's
// principal portion was applied. The portfolio protection fee is charged
// against this balance.
func (i *Installment) PreviousRemainingPrincipal() decimal.Decimal {
	return i.RemainingPrincipal.Add(i.PrincipalPortion)
}
