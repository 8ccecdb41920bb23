package service

import (
	"context"
	"errors"
	"time"

	"github.com/coopfin/loan-service/internal/amortization"
	"github.com/coopfin/loan-service/internal/config"
	"github.com/coopfin/loan-service/internal/models"
	"github.com/coopfin/loan-service/internal/repository"
	"github.com/coopfin/loan-service/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ArrearsNotifier delivers overdue notices to members. Implemented by the
// email sender; nil disables notification.
type ArrearsNotifier interface {
	SendArrearsNotice(to string, loanID int64, sequence int, dueDate time.Time, amount decimal.Decimal, daysLate int) error
}

// Service handles business logic
type Service struct {
	repo     *repository.Repository
	log      *logrus.Logger
	config   *config.Config
	notifier ArrearsNotifier
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config, notifier ArrearsNotifier) *Service {
	return &Service{repo: repo, log: log, config: cfg, notifier: notifier}
}

// CreateRate registers the lending rate for a calendar year. At most one rate
// may exist per year; the rate is immutable once a loan references it.
func (s *Service) CreateRate(year int, monthlyRate decimal.Decimal) (*models.InterestRate, error) {
	if year < 1900 || year > 2200 {
		return nil, validationf("year %d is out of range", year)
	}
	if monthlyRate.IsNegative() {
		return nil, validationf("monthly rate must not be negative")
	}

	rate := &models.InterestRate{Year: year, MonthlyRate: monthlyRate}
	if err := s.repo.CreateRate(rate); err != nil {
		if errors.Is(err, repository.ErrDuplicateYear) {
			return nil, preconditionf("a rate already exists for year %d", year)
		}
		return nil, err
	}

	s.log.Infof("Rate created for year %d: %s monthly", year, monthlyRate)
	return rate, nil
}

// RateForYear looks up the rate for an exact calendar year. There is no
// interpolation and no implicit fallback to the current year.
func (s *Service) RateForYear(year int) (*models.InterestRate, error) {
	rate, err := s.repo.FindRateByYear(year)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("no rate registered for year %d", year)
		}
		return nil, err
	}
	return rate, nil
}

// RequestLoan creates a loan in SOLICITADO status. The rate is fixed on the
// loan at request time and is never re-resolved during approval.
func (s *Service) RequestLoan(ctx context.Context, memberID int64, memberEmail string, principal decimal.Decimal, termMonths int, rateID int64, notes string) (*models.Loan, error) {
	if memberID <= 0 {
		return nil, validationf("member id is required")
	}
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, validationf("principal must be positive, got %s", principal)
	}
	if termMonths <= 0 {
		return nil, validationf("term must be a positive number of months, got %d", termMonths)
	}
	if _, err := s.repo.FindRateByID(rateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("interest rate %d does not exist", rateID)
		}
		return nil, err
	}

	loan := &models.Loan{
		MemberID:    memberID,
		MemberEmail: memberEmail,
		Principal:   principal,
		TermMonths:  termMonths,
		RequestDate: time.Now(),
		Status:      models.LoanStatusSolicitado,
		RateID:      rateID,
		Notes:       notes,
		TermsHMAC:   utils.LoanTermsHMAC(memberID, principal, termMonths, rateID, s.config.HMACSecret),
	}
	if err := s.repo.CreateLoan(loan); err != nil {
		return nil, err
	}

	s.log.Infof("Loan %d requested by member %d: %s over %d months", loan.ID, memberID, principal, termMonths)
	return loan, nil
}

// ApproveLoan drives a SOLICITADO loan to APROBADO: it resolves the loan's
// rate, computes the amortization schedule and persists the status change,
// the installments and the review entry atomically. Approving a loan that is
// not SOLICITADO, or that already has installments, fails without side
// effects, so a repeated approval can never generate a second schedule.
func (s *Service) ApproveLoan(ctx context.Context, loanID, reviewerID int64, comments string, disbursement time.Time) (*models.Loan, []models.Installment, error) {
	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFoundf("loan %d not found", loanID)
		}
		return nil, nil, err
	}
	if loan.Status != models.LoanStatusSolicitado {
		return nil, nil, preconditionf("loan %d is %s, only SOLICITADO loans can be approved", loanID, loan.Status)
	}

	rate, err := s.repo.FindRateByID(loan.RateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, preconditionf("loan %d references interest rate %d which no longer exists", loanID, loan.RateID)
		}
		return nil, nil, err
	}

	if disbursement.IsZero() {
		disbursement = time.Now()
	}
	entries, installment, err := amortization.Schedule(loan.Principal, rate.MonthlyRate, loan.TermMonths, disbursement)
	if err != nil {
		if errors.Is(err, amortization.ErrInvalidInput) {
			return nil, nil, validationf("cannot amortize loan %d: %v", loanID, err)
		}
		return nil, nil, consistencyf("amortization failed for loan %d: %v", loanID, err)
	}
	if len(entries) != loan.TermMonths {
		return nil, nil, consistencyf("schedule for loan %d has %d periods, expected %d", loanID, len(entries), loan.TermMonths)
	}

	dueDate := disbursement.AddDate(0, loan.TermMonths, 0)
	loan.Status = models.LoanStatusAprobado
	loan.MonthlyInstallment = installment
	loan.DisbursementDate = &disbursement
	loan.DueDate = &dueDate

	installments := make([]models.Installment, len(entries))
	for i, e := range entries {
		installments[i] = models.Installment{
			LoanID:             loan.ID,
			SequenceNumber:     e.SequenceNumber,
			DueDate:            e.DueDate,
			Amount:             e.Amount,
			InterestPortion:    e.InterestPortion,
			PrincipalPortion:   e.PrincipalPortion,
			RemainingPrincipal: e.RemainingPrincipal,
			Status:             models.InstallmentStatusPendiente,
		}
	}

	review := &models.LoanReview{
		LoanID:     loan.ID,
		ReviewerID: reviewerID,
		Decision:   models.ReviewDecisionAprobado,
		Comments:   comments,
	}
	if err := s.repo.ApproveLoan(ctx, loan, installments, review); err != nil {
		switch {
		case errors.Is(err, repository.ErrLoanNotPending):
			return nil, nil, preconditionf("loan %d was already decided", loanID)
		case errors.Is(err, repository.ErrHasInstallments):
			return nil, nil, preconditionf("loan %d already has a generated schedule", loanID)
		}
		return nil, nil, err
	}

	s.log.Infof("Loan %d approved by reviewer %d: installment %s over %d months", loanID, reviewerID, installment, loan.TermMonths)
	return loan, installments, nil
}

// RejectLoan drives a SOLICITADO loan to the terminal RECHAZADO status. No
// installments are generated.
func (s *Service) RejectLoan(ctx context.Context, loanID, reviewerID int64, comments string) (*models.Loan, error) {
	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("loan %d not found", loanID)
		}
		return nil, err
	}
	if loan.Status != models.LoanStatusSolicitado {
		return nil, preconditionf("loan %d is %s, only SOLICITADO loans can be rejected", loanID, loan.Status)
	}

	review := &models.LoanReview{
		LoanID:     loanID,
		ReviewerID: reviewerID,
		Decision:   models.ReviewDecisionRechazado,
		Comments:   comments,
	}
	if err := s.repo.RejectLoan(ctx, loanID, review); err != nil {
		if errors.Is(err, repository.ErrLoanNotPending) {
			return nil, preconditionf("loan %d was already decided", loanID)
		}
		return nil, err
	}

	loan.Status = models.LoanStatusRechazado
	s.log.Infof("Loan %d rejected by reviewer %d", loanID, reviewerID)
	return loan, nil
}

// GetLoan returns a loan together with its installment schedule.
func (s *Service) GetLoan(loanID int64) (*models.Loan, []models.Installment, error) {
	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFoundf("loan %d not found", loanID)
		}
		return nil, nil, err
	}
	installments, err := s.repo.FindInstallmentsByLoan(loanID)
	if err != nil {
		return nil, nil, err
	}
	return loan, installments, nil
}
