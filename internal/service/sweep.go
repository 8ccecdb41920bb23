package service

import (
	"context"
	"time"

	"github.com/coopfin/loan-service/internal/models"
)

// SweepResult summarizes one overdue sweep run.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Marked   int `json:"marked"`
	Notified int `json:"notified"`
}

// RunOverdueSweep scans every serviced loan and promotes those holding an
// unpaid installment past its due date to VENCIDO, raising the derived
// overdue flag. The sweep is idempotent: re-running it with no intervening
// payments changes nothing after the first run. It never demotes VENCIDO
// back to APROBADO; it only lowers the derived flag once the member catches
// up. A failure on one loan is logged and the sweep continues.
func (s *Service) RunOverdueSweep(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	overdue, err := s.repo.ListOverdueLoans(asOf)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(overdue)}
	for _, o := range overdue {
		if err := s.repo.MarkLoanOverdue(ctx, o.LoanID); err != nil {
			s.log.Errorf("Sweep: failed to mark loan %d overdue: %v", o.LoanID, err)
			continue
		}
		if o.Status != models.LoanStatusVencido {
			// Newly flagged this run.
			result.Marked++
			s.log.Warnf("Loan %d marked VENCIDO: installment %d due %s unpaid",
				o.LoanID, o.SequenceNumber, o.DueDate.Format("2006-01-02"))

			if s.notifier != nil && o.MemberEmail != "" {
				late := daysLate(o.DueDate, asOf)
				if err := s.notifier.SendArrearsNotice(o.MemberEmail, o.LoanID, o.SequenceNumber, o.DueDate, o.Amount, late); err != nil {
					s.log.Errorf("Sweep: failed to notify member %d for loan %d: %v", o.MemberID, o.LoanID, err)
				} else {
					result.Notified++
				}
			}
		}
	}

	if err := s.repo.ClearOverdueFlags(ctx, asOf); err != nil {
		s.log.Errorf("Sweep: failed to clear overdue flags: %v", err)
	}

	s.log.Infof("Overdue sweep done: %d scanned, %d newly marked, %d notified", result.Scanned, result.Marked, result.Notified)
	return result, nil
}
