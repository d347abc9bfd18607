package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents the durable state of a single ledger account. It is
// created at registration time by the account-opening flow and mutated
// exclusively by the ledger engine afterwards. Accounts are never deleted
// while transactions reference them; they are soft-closed instead.
type Account struct {
	ID               string          `json:"id"`
	OwnerID          string          `json:"owner_id"`
	Balance          decimal.Decimal `json:"balance"`
	Suspended        bool            `json:"suspended"`
	SuspensionReason string          `json:"suspension_reason,omitempty"`
	Closed           bool            `json:"closed"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Clone returns a copy of the account so callers cannot reach into
// store-owned state.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
