package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Event describes one committed balance change. A transfer produces two
// events, one per side. Events are emitted strictly after the operation has
// committed; a notifier failure is logged and never rolls the operation back.
type Event struct {
	Kind       OperationKind
	AccountID  string
	Amount     decimal.Decimal
	Reference  string
	NewBalance decimal.Decimal
}

// Notifier consumes post-commit events, typically to send receipts.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	for _, n := range e.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			e.log.Warnf("Notifier failed for %s on account %s: %v", ev.Kind, ev.AccountID, err)
		}
	}
}
