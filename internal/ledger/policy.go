package ledger

import "github.com/oakline/ledger-core/internal/models"

// OperationKind classifies an engine operation for policy decisions and
// post-commit events.
type OperationKind string

const (
	OpDeposit     OperationKind = "DEPOSIT"
	OpWithdrawal  OperationKind = "WITHDRAWAL"
	OpTransferOut OperationKind = "TRANSFER_OUT"
	OpTransferIn  OperationKind = "TRANSFER_IN"
)

// DefaultSuspensionReason is shown when a hold was placed without a message.
const DefaultSuspensionReason = "Your account has been suspended. Please contact support."

// Decision is the outcome of a suspension policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Decide applies the suspension policy to one operation. Inflows (deposits,
// incoming transfer legs) are always allowed: a hold blocks money leaving the
// account, never money arriving. Outflows are denied while the account is
// suspended.
func Decide(acct *models.Account, kind OperationKind) Decision {
	switch kind {
	case OpWithdrawal, OpTransferOut:
		if acct.Suspended {
			reason := acct.SuspensionReason
			if reason == "" {
				reason = DefaultSuspensionReason
			}
			return Decision{Allowed: false, Reason: reason}
		}
	}
	return Decision{Allowed: true}
}
