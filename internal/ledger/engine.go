// Package ledger implements the core ledger engine: deposits, withdrawals and
// transfers applied atomically against the account store and transaction log,
// with per-account serialization, suspension policy and post-commit events.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oakline/ledger-core/internal/models"
	"github.com/oakline/ledger-core/internal/refid"
	"github.com/oakline/ledger-core/internal/store"
)

const (
	defaultLockTimeout = 3 * time.Second

	// A generated reference colliding with an existing one is astronomically
	// unlikely; a handful of retries is plenty.
	referenceAttempts = 3
)

// Engine orchestrates all balance-affecting operations. Callers pass the
// authenticated principal's owner identifier; authentication itself happens
// upstream, the engine only checks ownership.
type Engine struct {
	store     store.Store
	locks     *lockTable
	log       *logrus.Logger
	notifiers []Notifier

	newRef func() string // reference generator, swappable in tests
}

// Option configures an Engine.
type Option func(*Engine)

// WithLockTimeout bounds how long an operation waits for its account locks
// before failing with ErrBusy.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.locks = newLockTable(d) }
}

// WithNotifier registers a post-commit event consumer.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifiers = append(e.notifiers, n) }
}

// New initializes the engine over a store.
func New(st store.Store, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		locks:  newLockTable(defaultLockTimeout),
		log:    log,
		newRef: refid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deposit credits an account and records one CREDIT transaction. Deposits
// are permitted even on a suspended account: suspension blocks outflow, not
// inflow.
func (e *Engine) Deposit(ctx context.Context, principal string, req *DepositRequest) (*Result, error) {
	if req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	release, err := e.locks.acquire(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	acct, err := e.resolveOwned(ctx, req.AccountID, principal)
	if err != nil {
		return nil, err
	}
	// The current policy never denies inflow; the check keeps deposits on
	// the same pipeline as every other mutating operation.
	if d := Decide(acct, OpDeposit); !d.Allowed {
		return nil, &SuspendedError{Reason: d.Reason}
	}

	out, err := e.commit(ctx, req.IdempotencyKey, []leg{{
		accountID:   req.AccountID,
		kind:        models.KindCredit,
		direction:   models.DirectionIn,
		amount:      req.Amount,
		description: orDefault(req.Description, "Deposit"),
	}})
	if err != nil {
		return nil, err
	}
	if !out.replayed {
		e.log.Infof("Deposit of %s committed to account %s (ref %s)",
			req.Amount.StringFixed(2), req.AccountID, out.result.Reference)
		e.emit(ctx, Event{
			Kind:       OpDeposit,
			AccountID:  req.AccountID,
			Amount:     req.Amount,
			Reference:  out.result.Reference,
			NewBalance: out.result.NewBalance,
		})
	}
	return out.result, nil
}

// Withdraw debits an account and records one DEBIT transaction. Fails while
// the account is suspended or when the amount exceeds the balance.
func (e *Engine) Withdraw(ctx context.Context, principal string, req *WithdrawRequest) (*Result, error) {
	if req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	release, err := e.locks.acquire(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	acct, err := e.resolveOwned(ctx, req.AccountID, principal)
	if err != nil {
		return nil, err
	}
	if d := Decide(acct, OpWithdrawal); !d.Allowed {
		return nil, &SuspendedError{Reason: d.Reason}
	}
	if acct.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientFunds
	}

	out, err := e.commit(ctx, req.IdempotencyKey, []leg{{
		accountID:   req.AccountID,
		kind:        models.KindDebit,
		direction:   models.DirectionOut,
		amount:      req.Amount,
		description: orDefault(req.Description, "Withdrawal"),
	}})
	if err != nil {
		return nil, err
	}
	if !out.replayed {
		e.log.Infof("Withdrawal of %s committed on account %s (ref %s)",
			req.Amount.StringFixed(2), req.AccountID, out.result.Reference)
		e.emit(ctx, Event{
			Kind:       OpWithdrawal,
			AccountID:  req.AccountID,
			Amount:     req.Amount,
			Reference:  out.result.Reference,
			NewBalance: out.result.NewBalance,
		})
	}
	return out.result, nil
}

// Transfer atomically moves money from a source to a destination account,
// recording two mirrored TRANSFER rows that share one reference. Both
// accounts are validated before any mutation; suspension is enforced on the
// source only, since a hold blocks outgoing money but not incoming.
func (e *Engine) Transfer(ctx context.Context, principal string, req *TransferRequest) (*Result, error) {
	if req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.SourceID == req.DestinationID {
		return nil, ErrSameAccount
	}
	release, err := e.locks.acquire(ctx, req.SourceID, req.DestinationID)
	if err != nil {
		return nil, err
	}
	defer release()

	src, err := e.resolveOwned(ctx, req.SourceID, principal)
	if err != nil {
		return nil, err
	}
	dst, err := e.store.GetAccount(ctx, req.DestinationID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if dst.Closed {
		return nil, ErrAccountClosed
	}
	if d := Decide(src, OpTransferOut); !d.Allowed {
		return nil, &SuspendedError{Reason: d.Reason}
	}
	if src.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientFunds
	}

	out, err := e.commit(ctx, req.IdempotencyKey, []leg{
		{
			accountID:     req.SourceID,
			counterpartID: req.DestinationID,
			kind:          models.KindTransfer,
			direction:     models.DirectionOut,
			amount:        req.Amount,
			description:   orDefault(req.Description, "Transfer to account "+req.DestinationID),
		},
		{
			accountID:     req.DestinationID,
			counterpartID: req.SourceID,
			kind:          models.KindTransfer,
			direction:     models.DirectionIn,
			amount:        req.Amount,
			description:   orDefault(req.Description, "Transfer from account "+req.SourceID),
		},
	})
	if err != nil {
		return nil, err
	}
	if !out.replayed {
		e.log.Infof("Transfer of %s committed from %s to %s (ref %s)",
			req.Amount.StringFixed(2), req.SourceID, req.DestinationID, out.result.Reference)
		e.emit(ctx, Event{
			Kind:       OpTransferOut,
			AccountID:  req.SourceID,
			Amount:     req.Amount,
			Reference:  out.result.Reference,
			NewBalance: out.balances[0],
		})
		e.emit(ctx, Event{
			Kind:       OpTransferIn,
			AccountID:  req.DestinationID,
			Amount:     req.Amount,
			Reference:  out.result.Reference,
			NewBalance: out.balances[1],
		})
	}
	return out.result, nil
}

// History returns the caller's account state and transactions newest-first,
// read from one consistent snapshot. Read-only, no locks taken.
func (e *Engine) History(ctx context.Context, principal, accountID string) (*models.Account, []models.Transaction, error) {
	acct, recs, err := e.store.History(ctx, accountID)
	if err != nil {
		return nil, nil, mapStoreErr(err)
	}
	if acct.OwnerID != principal {
		return nil, nil, ErrUnauthorized
	}
	return acct, recs, nil
}

// HistoryAsAdmin is the administrative override of History: same snapshot
// semantics, no ownership check. Exposed as a distinct operation so the
// bypass is always an explicit choice at the call site.
func (e *Engine) HistoryAsAdmin(ctx context.Context, accountID string) (*models.Account, []models.Transaction, error) {
	acct, recs, err := e.store.History(ctx, accountID)
	if err != nil {
		return nil, nil, mapStoreErr(err)
	}
	return acct, recs, nil
}

// Suspend places an administrative hold on an account. Outflows are rejected
// with the given reason until the hold is lifted; inflows keep working.
func (e *Engine) Suspend(ctx context.Context, accountID, reason string) error {
	if reason == "" {
		reason = DefaultSuspensionReason
	}
	return e.adminMutate(ctx, accountID, "suspended", func(tx store.Tx) error {
		return tx.SetSuspension(accountID, true, reason)
	})
}

// Reinstate lifts an administrative hold.
func (e *Engine) Reinstate(ctx context.Context, accountID string) error {
	return e.adminMutate(ctx, accountID, "reinstated", func(tx store.Tx) error {
		return tx.SetSuspension(accountID, false, "")
	})
}

// Close soft-closes an account: mutating operations are rejected from then
// on, but the account and its history remain readable forever.
func (e *Engine) Close(ctx context.Context, accountID string) error {
	return e.adminMutate(ctx, accountID, "closed", func(tx store.Tx) error {
		return tx.SetClosed(accountID, true)
	})
}

func (e *Engine) adminMutate(ctx context.Context, accountID, verb string, fn func(tx store.Tx) error) error {
	release, err := e.locks.acquire(ctx, accountID)
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.Apply(ctx, fn); err != nil {
		return mapStoreErr(err)
	}
	e.log.Infof("Account %s %s", accountID, verb)
	return nil
}

// resolveOwned loads an account and enforces ownership and the soft-close
// rule shared by every mutating operation.
func (e *Engine) resolveOwned(ctx context.Context, accountID, principal string) (*models.Account, error) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if acct.OwnerID != principal {
		return nil, ErrUnauthorized
	}
	if acct.Closed {
		return nil, ErrAccountClosed
	}
	return acct, nil
}

// leg is one balance delta plus its transaction record.
type leg struct {
	accountID     string
	counterpartID string
	kind          models.Kind
	direction     models.Direction
	amount        decimal.Decimal
	description   string
}

// commitOutcome carries the result plus per-leg balances; replayed marks an
// idempotent hit, in which case no mutation happened and no events are due.
type commitOutcome struct {
	result   *Result
	balances []decimal.Decimal
	replayed bool
}

// commit applies every leg as one all-or-nothing unit. The first leg's
// post-commit balance becomes the result. A client-supplied idempotency key
// doubles as the reference; replays are answered from the recorded rows.
// Generated references that collide are retried with a fresh identifier.
func (e *Engine) commit(ctx context.Context, idemKey string, legs []leg) (*commitOutcome, error) {
	if idemKey != "" {
		out, err := e.replay(ctx, idemKey, legs[0].accountID)
		if err != nil || out != nil {
			return out, err
		}
	}

	for attempt := 0; ; attempt++ {
		ref := idemKey
		if ref == "" {
			ref = e.newRef()
		}
		out, err := e.applyLegs(ctx, ref, legs)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, store.ErrDuplicateReference) {
			return nil, mapStoreErr(err)
		}
		if idemKey != "" {
			// Lost a race against a concurrent request carrying the same key.
			out, rerr := e.replay(ctx, idemKey, legs[0].accountID)
			if rerr != nil {
				return nil, rerr
			}
			if out != nil {
				return out, nil
			}
			return nil, fmt.Errorf("storage failure: replaying reference %q: %w", idemKey, err)
		}
		if attempt+1 >= referenceAttempts {
			return nil, fmt.Errorf("storage failure: allocating transaction reference: %w", err)
		}
		e.log.Warnf("Reference collision on generated id, retrying (attempt %d)", attempt+1)
	}
}

func (e *Engine) applyLegs(ctx context.Context, ref string, legs []leg) (*commitOutcome, error) {
	balances := make([]decimal.Decimal, len(legs))
	err := e.store.Apply(ctx, func(tx store.Tx) error {
		for i, l := range legs {
			delta := l.amount
			if l.direction == models.DirectionOut {
				delta = delta.Neg()
			}
			balance, err := tx.UpdateBalance(l.accountID, delta)
			if err != nil {
				return err
			}
			balances[i] = balance
			rec := &models.Transaction{
				Reference:     ref,
				AccountID:     l.accountID,
				CounterpartID: l.counterpartID,
				Kind:          l.kind,
				Direction:     l.direction,
				Amount:        l.amount,
				Description:   l.description,
				BalanceAfter:  balance,
			}
			if err := tx.AppendTransaction(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &commitOutcome{
		result:   &Result{Reference: ref, NewBalance: balances[0]},
		balances: balances,
	}, nil
}

// replay answers a repeated idempotent request from the recorded rows. A nil
// outcome with nil error means the reference has never been used. A reference
// recorded only against other accounts is a client error: references are
// unique across the whole log, so the key cannot start a fresh commit.
func (e *Engine) replay(ctx context.Context, ref, accountID string) (*commitOutcome, error) {
	recs, err := e.store.FindByReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("storage failure: looking up reference %q: %w", ref, err)
	}
	for _, rec := range recs {
		if rec.AccountID == accountID {
			return &commitOutcome{
				result:   &Result{Reference: rec.Reference, NewBalance: rec.BalanceAfter},
				replayed: true,
			}, nil
		}
	}
	if len(recs) > 0 {
		return nil, fmt.Errorf("idempotency key %q already used by another account", ref)
	}
	return nil, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, store.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrDuplicateReference):
		return err
	default:
		return fmt.Errorf("storage failure: %w", err)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
