package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction record.
type Kind string

const (
	KindCredit   Kind = "CREDIT"
	KindDebit    Kind = "DEBIT"
	KindTransfer Kind = "TRANSFER"
)

// Direction records which way money moved for the owning account. A transfer
// is persisted as two mirrored records, one per side, distinguished only by
// their direction.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// StatusSuccess is the only status ever persisted: operations that cannot
// complete are rejected before any record is written.
const StatusSuccess = "SUCCESS"

// Transaction is a committed ledger record. Records are immutable once
// written; the sole mutation path is creation.
type Transaction struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	AccountID     string          `json:"account_id"`
	CounterpartID string          `json:"counterpart_id,omitempty"`
	Kind          Kind            `json:"kind"`
	Direction     Direction       `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Status        string          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Signed returns the amount with the record's direction applied, so that
// summing Signed over an account's history yields its balance.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Direction == DirectionOut {
		return t.Amount.Neg()
	}
	return t.Amount
}
