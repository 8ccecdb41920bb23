package models

import "time"

// Review decisions.
const (
	ReviewDecisionAprobado  = "APROBADO"
	ReviewDecisionRechazado = "RECHAZADO"
)

// LoanReview is an immutable audit entry for an approval or rejection.
type LoanReview struct {
	ID         int64     `json:"id"`
	LoanID     int64     `json:"loan_id"`
	ReviewerID int64     `json:"reviewer_id"`
	Decision   string    `json:"decision"`
	Comments   string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
