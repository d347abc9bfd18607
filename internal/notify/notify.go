// Package notify consumes the engine's post-commit events. Delivery runs
// outside the ledger's atomic unit: a failed notification is logged and never
// rolls back the committed operation.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oakline/ledger-core/internal/ledger"
)

// LogNotifier writes every committed operation to the structured log.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify records the event at info level.
func (n *LogNotifier) Notify(ctx context.Context, ev ledger.Event) error {
	n.log.WithFields(logrus.Fields{
		"kind":        string(ev.Kind),
		"account_id":  ev.AccountID,
		"amount":      ev.Amount.StringFixed(2),
		"reference":   ev.Reference,
		"new_balance": ev.NewBalance.StringFixed(2),
	}).Info("Ledger operation committed")
	return nil
}

var _ ledger.Notifier = (*LogNotifier)(nil)
