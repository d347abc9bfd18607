// Package store defines the persistence contracts the ledger engine writes
// through. Implementations must make Apply all-or-nothing: either every
// balance delta and transaction record inside one call commits, or none do.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/oakline/ledger-core/internal/models"
)

var (
	// ErrAccountNotFound means no account exists under the given identifier.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating an account whose identifier
	// is already taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrInsufficientFunds is returned by UpdateBalance when the delta would
	// drive the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference is returned by AppendTransaction when a record
	// with the same (reference, account) pair is already committed. The
	// engine treats it as retryable and never surfaces it to callers.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)

// Store is the durable home of accounts and their transaction history.
type Store interface {
	// CreateAccount registers a new account. Used by the account-opening
	// collaborator and by seeding; the engine itself never creates accounts.
	CreateAccount(ctx context.Context, acct *models.Account) error

	// GetAccount returns a copy of the account state, closed or not.
	GetAccount(ctx context.Context, id string) (*models.Account, error)

	// ListAccountIDs returns every known account identifier.
	ListAccountIDs(ctx context.Context) ([]string, error)

	// History returns the account and its transactions newest-first, read
	// from a single consistent snapshot.
	History(ctx context.Context, id string) (*models.Account, []models.Transaction, error)

	// FindByReference returns all committed records sharing a reference
	// identifier (both legs of a transfer). An empty slice means the
	// reference was never used.
	FindByReference(ctx context.Context, ref string) ([]models.Transaction, error)

	// Apply runs fn against a transactional view of the store. If fn returns
	// an error nothing it did is visible afterwards.
	Apply(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the mutable view handed to Apply callbacks.
type Tx interface {
	// UpdateBalance adjusts an account's balance by delta, atomically with
	// respect to concurrent deltas on the same account, and returns the new
	// balance. The balance is never allowed to go negative.
	UpdateBalance(id string, delta decimal.Decimal) (decimal.Decimal, error)

	// SetSuspension flips the administrative hold on an account.
	SetSuspension(id string, suspended bool, reason string) error

	// SetClosed soft-closes or reopens an account.
	SetClosed(id string, closed bool) error

	// AppendTransaction writes one immutable record. The commit timestamp is
	// assigned here and is monotonic non-decreasing per account.
	AppendTransaction(rec *models.Transaction) error
}
