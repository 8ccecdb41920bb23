package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coopfin/loan-service/internal/models"
	"github.com/shopspring/decimal"
)

// CreateLoan creates a loan in SOLICITADO status. No installments exist yet.
func (r *Repository) CreateLoan(loan *models.Loan) error {
	query := `
		INSERT INTO coop.loans
			(member_id, member_email, principal, term_months, request_date, status, rate_id, notes, terms_hmac, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query,
		loan.MemberID, loan.MemberEmail, loan.Principal, loan.TermMonths,
		loan.RequestDate, loan.Status, loan.RateID, loan.Notes, loan.TermsHMAC).
		Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// FindLoanByID retrieves a loan by id.
func (r *Repository) FindLoanByID(id int64) (*models.Loan, error) {
	loan := &models.Loan{}
	var disbursed, due sql.NullTime
	query := `
		SELECT id, member_id, member_email, principal, term_months, monthly_installment,
		       request_date, disbursement_date, due_date, status, rate_id,
		       has_overdue_installments, notes, terms_hmac, created_at, updated_at
		FROM coop.loans
		WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&loan.ID, &loan.MemberID, &loan.MemberEmail, &loan.Principal, &loan.TermMonths,
		&loan.MonthlyInstallment, &loan.RequestDate, &disbursed, &due, &loan.Status,
		&loan.RateID, &loan.HasOverdue, &loan.Notes, &loan.TermsHMAC,
		&loan.CreatedAt, &loan.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	if disbursed.Valid {
		loan.DisbursementDate = &disbursed.Time
	}
	if due.Valid {
		loan.DueDate = &due.Time
	}
	return loan, nil
}

// FindInstallmentsByLoan returns a loan's installments ordered by sequence.
func (r *Repository) FindInstallmentsByLoan(loanID int64) ([]models.Installment, error) {
	query := `
		SELECT id, loan_id, sequence_number, due_date, amount, interest_portion,
		       principal_portion, remaining_principal, status, created_at, updated_at
		FROM coop.installments
		WHERE loan_id = $1
		ORDER BY sequence_number`
	rows, err := r.db.Query(query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var installments []models.Installment
	for rows.Next() {
		var inst models.Installment
		if err := rows.Scan(
			&inst.ID, &inst.LoanID, &inst.SequenceNumber, &inst.DueDate, &inst.Amount,
			&inst.InterestPortion, &inst.PrincipalPortion, &inst.RemainingPrincipal,
			&inst.Status, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	return installments, nil
}

// FindInstallmentByID retrieves a single installment.
func (r *Repository) FindInstallmentByID(id int64) (*models.Installment, error) {
	inst := &models.Installment{}
	query := `
		SELECT id, loan_id, sequence_number, due_date, amount, interest_portion,
		       principal_portion, remaining_principal, status, created_at, updated_at
		FROM coop.installments
		WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&inst.ID, &inst.LoanID, &inst.SequenceNumber, &inst.DueDate, &inst.Amount,
		&inst.InterestPortion, &inst.PrincipalPortion, &inst.RemainingPrincipal,
		&inst.Status, &inst.CreatedAt, &inst.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find installment: %w", err)
	}
	return inst, nil
}

// ApproveLoan commits an approval in a single transaction: the loan row is
// locked and re-checked, the loan is updated, the full installment schedule
// is inserted and the review entry is recorded. A crash before commit leaves
// the loan in SOLICITADO with no installments.
func (r *Repository) ApproveLoan(ctx context.Context, loan *models.Loan, installments []models.Installment, review *models.LoanReview) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin approval transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := lockLoanStatus(tx, loan.ID)
	if err != nil {
		return err
	}
	if status != models.LoanStatusSolicitado {
		return ErrLoanNotPending
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM coop.installments WHERE loan_id = $1`, loan.ID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count installments: %w", err)
	}
	if count > 0 {
		return ErrHasInstallments
	}

	updateQuery := `
		UPDATE coop.loans
		SET status = $2, monthly_installment = $3, disbursement_date = $4,
		    due_date = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	if err := tx.QueryRow(updateQuery, loan.ID, loan.Status, loan.MonthlyInstallment,
		loan.DisbursementDate, loan.DueDate).Scan(&loan.UpdatedAt); err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}

	insertQuery := `
		INSERT INTO coop.installments
			(loan_id, sequence_number, due_date, amount, interest_portion,
			 principal_portion, remaining_principal, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	for i := range installments {
		inst := &installments[i]
		if err := tx.QueryRow(insertQuery,
			inst.LoanID, inst.SequenceNumber, inst.DueDate, inst.Amount,
			inst.InterestPortion, inst.PrincipalPortion, inst.RemainingPrincipal,
			inst.Status).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert installment %d: %w", inst.SequenceNumber, err)
		}
	}

	if err := insertReview(tx, review); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}
	return nil
}

// RejectLoan commits a rejection and its review entry in one transaction.
func (r *Repository) RejectLoan(ctx context.Context, loanID int64, review *models.LoanReview) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rejection transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := lockLoanStatus(tx, loanID)
	if err != nil {
		return err
	}
	if status != models.LoanStatusSolicitado {
		return ErrLoanNotPending
	}

	if _, err := tx.Exec(`
		UPDATE coop.loans
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, loanID, models.LoanStatusRechazado); err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}

	if err := insertReview(tx, review); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rejection: %w", err)
	}
	return nil
}

// ApplyPayment marks the installment PAGADO and appends the payment record in
// one transaction. The installment row is locked so a concurrent sweep or a
// duplicate submission cannot interleave.
func (r *Repository) ApplyPayment(ctx context.Context, payment *models.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin payment transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`SELECT status FROM coop.installments WHERE id = $1 FOR UPDATE`,
		payment.InstallmentID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock installment: %w", err)
	}
	if status == models.InstallmentStatusPagado {
		return ErrAlreadyPaid
	}

	if _, err := tx.Exec(`
		UPDATE coop.installments
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, payment.InstallmentID, models.InstallmentStatusPagado); err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}

	insertQuery := `
		INSERT INTO coop.payments
			(installment_id, payment_date, days_late, arrears_fee, extra_principal,
			 protection_fee, interest_portion, principal_portion, total_paid,
			 payment_method_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	if err := tx.QueryRow(insertQuery,
		payment.InstallmentID, payment.PaymentDate, payment.DaysLate, payment.ArrearsFee,
		payment.ExtraPrincipal, payment.ProtectionFee, payment.InterestPortion,
		payment.PrincipalPortion, payment.TotalPaid, payment.PaymentMethodID).
		Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	return nil
}

// OverdueLoan is a sweep work item: a serviced loan together with its oldest
// unpaid, past-due installment.
type OverdueLoan struct {
	LoanID         int64
	MemberID       int64
	MemberEmail    string
	Status         string
	SequenceNumber int
	DueDate        time.Time
	Amount         decimal.Decimal
}

// ListOverdueLoans returns every serviced loan holding at least one unpaid
// installment whose due date elapsed before asOf.
func (r *Repository) ListOverdueLoans(asOf time.Time) ([]OverdueLoan, error) {
	query := `
		SELECT l.id, l.member_id, l.member_email, l.status,
		       i.sequence_number, i.due_date, i.amount
		FROM coop.loans l
		JOIN LATERAL (
			SELECT sequence_number, due_date, amount
			FROM coop.installments
			WHERE loan_id = l.id AND status = $1 AND due_date < $2
			ORDER BY due_date
			LIMIT 1
		) i ON TRUE
		WHERE l.status IN ($3, $4)
		ORDER BY l.id`
	rows, err := r.db.Query(query, models.InstallmentStatusPendiente, asOf,
		models.LoanStatusAprobado, models.LoanStatusVencido)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	defer rows.Close()

	var overdue []OverdueLoan
	for rows.Next() {
		var o OverdueLoan
		if err := rows.Scan(&o.LoanID, &o.MemberID, &o.MemberEmail, &o.Status,
			&o.SequenceNumber, &o.DueDate, &o.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan overdue loan: %w", err)
		}
		overdue = append(overdue, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	return overdue, nil
}

// MarkLoanOverdue promotes a serviced loan to VENCIDO and raises the derived
// overdue flag. Re-running against an already-VENCIDO loan changes nothing.
func (r *Repository) MarkLoanOverdue(ctx context.Context, loanID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE coop.loans
		SET status = $2, has_overdue_installments = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ($2, $3)`,
		loanID, models.LoanStatusVencido, models.LoanStatusAprobado)
	if err != nil {
		return fmt.Errorf("failed to mark loan overdue: %w", err)
	}
	return nil
}

// ClearOverdueFlags lowers the derived flag on loans whose members caught up.
// The VENCIDO status itself is never reverted here.
func (r *Repository) ClearOverdueFlags(ctx context.Context, asOf time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE coop.loans l
		SET has_overdue_installments = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE l.has_overdue_installments
		  AND NOT EXISTS (
			SELECT 1 FROM coop.installments i
			WHERE i.loan_id = l.id AND i.status = $1 AND i.due_date < $2
		  )`, models.InstallmentStatusPendiente, asOf)
	if err != nil {
		return fmt.Errorf("failed to clear overdue flags: %w", err)
	}
	return nil
}

func lockLoanStatus(tx *sql.Tx, loanID int64) (string, error) {
	var status string
	err := tx.QueryRow(`SELECT status FROM coop.loans WHERE id = $1 FOR UPDATE`, loanID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock loan: %w", err)
	}
	return status, nil
}

func insertReview(tx *sql.Tx, review *models.LoanReview) error {
	query := `
		INSERT INTO coop.loan_reviews (loan_id, reviewer_id, decision, comments, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	if err := tx.QueryRow(query, review.LoanID, review.ReviewerID, review.Decision, review.Comments).
		Scan(&review.ID, &review.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert loan review: %w", err)
	}
	return nil
}
