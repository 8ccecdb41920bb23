package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/coopfin/loan-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendArrearsNotice tells a member that an installment is overdue and the
// loan has been flagged.
func (s *Sender) SendArrearsNotice(to string, loanID int64, sequence int, dueDate time.Time, amount decimal.Decimal, daysLate int) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Overdue Installment Notice"

	body := fmt.Sprintf(
		"Dear member,\n\n"+
			"Installment %d of your loan %d for %s was due on %s and is now %d day(s) overdue.\n"+
			"An arrears penalty accrues for each additional day late.\n"+
			"Please make the payment as soon as possible to avoid further penalties.\n"+
			"\nBest regards,\nCredit & Collections",
		sequence, loanID, amount.StringFixed(2), dueDate.Format("2006-01-02"), daysLate,
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// SendUpcomingReminder warns a member about an installment falling due soon.
func (s *Sender) SendUpcomingReminder(to string, loanID int64, sequence int, dueDate time.Time, amount decimal.Decimal) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Upcoming Installment Reminder"

	body := fmt.Sprintf(
		"Dear member,\n\n"+
			"This is a reminder that installment %d of your loan %d for %s is due on %s.\n"+
			"Please ensure the payment reaches us by that date.\n"+
			"\nBest regards,\nCredit & Collections",
		sequence, loanID, amount.StringFixed(2), dueDate.Format("2006-01-02"),
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
