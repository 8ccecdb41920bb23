package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/coopfin/loan-service/internal/models"
)

// Sentinel errors the service layer maps onto its own taxonomy.
var (
	ErrNotFound        = errors.New("record not found")
	ErrLoanNotPending  = errors.New("loan is not in SOLICITADO status")
	ErrAlreadyPaid     = errors.New("installment is already paid")
	ErrDuplicateYear   = errors.New("a rate already exists for that year")
	ErrHasInstallments = errors.New("loan already has installments")
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateRate creates the yearly interest rate. At most one rate per year.
func (r *Repository) CreateRate(rate *models.InterestRate) error {
	query := `
		INSERT INTO coop.interest_rates (year, monthly_rate, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (year) DO NOTHING
		RETURNING id, created_at`
	err := r.db.QueryRow(query, rate.Year, rate.MonthlyRate).
		Scan(&rate.ID, &rate.CreatedAt)
	if err == sql.ErrNoRows {
		return ErrDuplicateYear
	}
	if err != nil {
		return fmt.Errorf("failed to create rate: %w", err)
	}
	return nil
}

// FindRateByYear retrieves the rate for an exact calendar year.
func (r *Repository) FindRateByYear(year int) (*models.InterestRate, error) {
	rate := &models.InterestRate{}
	query := `
		SELECT id, year, monthly_rate, created_at
		FROM coop.interest_rates
		WHERE year = $1`
	err := r.db.QueryRow(query, year).
		Scan(&rate.ID, &rate.Year, &rate.MonthlyRate, &rate.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rate: %w", err)
	}
	return rate, nil
}

// FindRateByID retrieves a rate by its id.
func (r *Repository) FindRateByID(id int64) (*models.InterestRate, error) {
	rate := &models.InterestRate{}
	query := `
		SELECT id, year, monthly_rate, created_at
		FROM coop.interest_rates
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&rate.ID, &rate.Year, &rate.MonthlyRate, &rate.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rate: %w", err)
	}
	return rate, nil
}

// FindPaymentMethodByID retrieves an active payment method.
func (r *Repository) FindPaymentMethodByID(id int64) (*models.PaymentMethod, error) {
	method := &models.PaymentMethod{}
	query := `
		SELECT id, name, active
		FROM coop.payment_methods
		WHERE id = $1 AND active`
	err := r.db.QueryRow(query, id).
		Scan(&method.ID, &method.Name, &method.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment method: %w", err)
	}
	return method, nil
}
