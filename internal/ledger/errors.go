package ledger

import "errors"

// Domain errors returned by engine operations. Validation errors are
// deterministic and checked before any mutation; ErrBusy is transient and the
// caller may retry with backoff.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAccountNotFound   = errors.New("account not found")
	ErrUnauthorized      = errors.New("account does not belong to caller")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountClosed     = errors.New("account is closed")
	ErrSameAccount       = errors.New("source and destination accounts are the same")
	ErrBusy              = errors.New("account is busy, retry later")
)

// SuspendedError rejects an outflow from a suspended account. It carries the
// user-facing reason recorded when the hold was placed.
type SuspendedError struct {
	Reason string
}

func (e *SuspendedError) Error() string {
	return "account suspended: " + e.Reason
}
