package ledger

import "github.com/shopspring/decimal"

// Request constructors validate up front, so a request that reaches the
// engine is already structurally sound. All mutating requests accept an
// optional client-supplied idempotency key which becomes the transaction
// reference; re-sending a request with the same key returns the original
// result without mutating the ledger again.

// DepositRequest credits an account.
type DepositRequest struct {
	AccountID      string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// NewDepositRequest validates and builds a deposit request.
func NewDepositRequest(accountID string, amount decimal.Decimal) (*DepositRequest, error) {
	if accountID == "" {
		return nil, ErrAccountNotFound
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return &DepositRequest{AccountID: accountID, Amount: amount}, nil
}

// WithdrawRequest debits an account.
type WithdrawRequest struct {
	AccountID      string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// NewWithdrawRequest validates and builds a withdrawal request.
func NewWithdrawRequest(accountID string, amount decimal.Decimal) (*WithdrawRequest, error) {
	if accountID == "" {
		return nil, ErrAccountNotFound
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return &WithdrawRequest{AccountID: accountID, Amount: amount}, nil
}

// TransferRequest moves money between two accounts atomically.
type TransferRequest struct {
	SourceID       string
	DestinationID  string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// NewTransferRequest validates and builds a transfer request.
func NewTransferRequest(sourceID, destinationID string, amount decimal.Decimal) (*TransferRequest, error) {
	if sourceID == "" || destinationID == "" {
		return nil, ErrAccountNotFound
	}
	if sourceID == destinationID {
		return nil, ErrSameAccount
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return &TransferRequest{SourceID: sourceID, DestinationID: destinationID, Amount: amount}, nil
}

// Result is returned by every mutating operation.
type Result struct {
	Reference  string
	NewBalance decimal.Decimal
}
