package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestRate is the single active lending rate for a calendar year.
// Immutable once a loan references it.
type InterestRate struct {
	ID          int64           `json:"id"`
	Year        int             `json:"year"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
	CreatedAt   time.Time       `json:"created_at"`
}
