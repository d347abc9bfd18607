package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/oakline/ledger-core/internal/config"
	"github.com/oakline/ledger-core/internal/ledger"
)

// Directory resolves an account identifier to a recipient address and display
// name. The user directory lives with the registration collaborator, so the
// sender only holds a callback into it.
type Directory func(accountID string) (address, name string, err error)

// FixedDirectory routes every receipt to one mailbox, e.g. an operations
// copy, when no per-account directory is wired.
func FixedDirectory(address string) Directory {
	return func(string) (string, string, error) {
		return address, "Account Holder", nil
	}
}

// EmailSender sends a receipt email for each committed operation via SMTP.
type EmailSender struct {
	cfg    *config.Config
	logger *logrus.Logger
	lookup Directory
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg *config.Config, logger *logrus.Logger, lookup Directory) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		logger: logger,
		lookup: lookup,
	}
}

// Notify sends a receipt for the committed event.
func (s *EmailSender) Notify(ctx context.Context, ev ledger.Event) error {
	to, name, err := s.lookup(ev.AccountID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient for account %s: %w", ev.AccountID, err)
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subjectFor(ev.Kind)
	e.Text = []byte(receiptBody(ev, name, time.Now()))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send receipt to %s: %v", to, err)
		return fmt.Errorf("failed to send receipt: %w", err)
	}

	s.logger.Infof("Receipt sent to %s: %s", to, e.Subject)
	return nil
}

var _ ledger.Notifier = (*EmailSender)(nil)

func subjectFor(kind ledger.OperationKind) string {
	switch kind {
	case ledger.OpDeposit:
		return "Deposit Notification"
	case ledger.OpWithdrawal:
		return "Withdrawal Notification"
	case ledger.OpTransferOut:
		return "Outgoing Transfer Notification"
	case ledger.OpTransferIn:
		return "Incoming Transfer Notification"
	default:
		return "Account Notification"
	}
}

func receiptBody(ev ledger.Event, name string, now time.Time) string {
	body := fmt.Sprintf("Dear %s,\n\n", name)
	switch ev.Kind {
	case ledger.OpDeposit, ledger.OpTransferIn:
		body += fmt.Sprintf("Your account %s has been credited with %s.\n", ev.AccountID, ev.Amount.StringFixed(2))
	default:
		body += fmt.Sprintf("An amount of %s has been debited from your account %s.\n", ev.Amount.StringFixed(2), ev.AccountID)
	}
	body += fmt.Sprintf(
		"Reference: %s\nTransaction time: %s\nCurrent balance: %s\n",
		ev.Reference, now.Format("2006-01-02 15:04:05"), ev.NewBalance.StringFixed(2),
	)
	body += "\nBest regards,\nOakline Ledger"
	return body
}
