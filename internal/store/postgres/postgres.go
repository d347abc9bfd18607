// Package postgres implements the ledger store on PostgreSQL via database/sql
// and lib/pq. Apply maps to a SQL transaction, so the engine's all-or-nothing
// contract falls out of the database's own atomicity.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oakline/ledger-core/internal/models"
	"github.com/oakline/ledger-core/internal/store"
)

// uniqueViolation is the PostgreSQL error code raised by the
// (reference_id, account_id) uniqueness constraint.
const uniqueViolation = "23505"

// Store provides ledger persistence on PostgreSQL.
type Store struct {
	db  *sql.DB
	log *logrus.Logger
}

// New wraps an open database handle.
func New(db *sql.DB, log *logrus.Logger) *Store {
	return &Store{db: db, log: log}
}

// Migrate creates the ledger schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id                TEXT PRIMARY KEY,
			owner_id          TEXT NOT NULL,
			balance           NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			suspended         BOOLEAN NOT NULL DEFAULT FALSE,
			suspension_reason TEXT NOT NULL DEFAULT '',
			closed            BOOLEAN NOT NULL DEFAULT FALSE,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id             BIGSERIAL PRIMARY KEY,
			reference_id   TEXT NOT NULL,
			account_id     TEXT NOT NULL REFERENCES accounts(id),
			counterpart_id TEXT NOT NULL DEFAULT '',
			kind           TEXT NOT NULL,
			direction      TEXT NOT NULL,
			amount         NUMERIC(20,2) NOT NULL CHECK (amount > 0),
			description    TEXT NOT NULL DEFAULT '',
			balance_after  NUMERIC(20,2) NOT NULL,
			status         TEXT NOT NULL DEFAULT 'SUCCESS',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (reference_id, account_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_created
			ON transactions (account_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate ledger schema: %w", err)
		}
	}
	s.log.Info("Ledger schema is up to date")
	return nil
}

// CreateAccount registers a new account row.
func (s *Store) CreateAccount(ctx context.Context, acct *models.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, balance, suspended, suspension_reason, closed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		acct.ID, acct.OwnerID, acct.Balance, acct.Suspended, acct.SuspensionReason, acct.Closed).
		Scan(&acct.CreatedAt, &acct.UpdatedAt)
	if isUniqueViolation(err) {
		return store.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves one account by identifier.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, accountQuery+` WHERE id = $1`, id)
	return scanAccount(row)
}

// ListAccountIDs returns every account identifier.
func (s *Store) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// History reads the account and its transactions newest-first inside one
// repeatable-read transaction, so both come from the same snapshot.
func (s *Store) History(ctx context.Context, id string) (*models.Account, []models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin snapshot read: %w", err)
	}
	defer tx.Rollback()

	acct, err := scanAccount(tx.QueryRowContext(ctx, accountQuery+` WHERE id = $1`, id))
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx, transactionQuery+`
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	recs, err := collectTransactions(rows)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to finish snapshot read: %w", err)
	}
	return acct, recs, nil
}

// FindByReference returns every record sharing a reference identifier.
func (s *Store) FindByReference(ctx context.Context, ref string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, transactionQuery+` WHERE reference_id = $1 ORDER BY id`, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to look up reference: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// Apply runs fn inside a SQL transaction.
func (s *Store) Apply(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)

// pgTx adapts one sql.Tx to the store.Tx contract.
type pgTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// UpdateBalance applies the delta conditionally so the balance can never go
// negative, then disambiguates a miss into not-found vs insufficient funds.
func (t *pgTx) UpdateBalance(id string, delta decimal.Decimal) (decimal.Decimal, error) {
	const upd = `
		UPDATE accounts
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance`
	var balance decimal.Decimal
	err := t.tx.QueryRowContext(t.ctx, upd, delta, id).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := t.tx.QueryRowContext(t.ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return decimal.Zero, fmt.Errorf("failed to check account: %w", err)
		}
		if !exists {
			return decimal.Zero, store.ErrAccountNotFound
		}
		return decimal.Zero, store.ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}
	return balance, nil
}

func (t *pgTx) SetSuspension(id string, suspended bool, reason string) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE accounts
		SET suspended = $1, suspension_reason = $2, updated_at = now()
		WHERE id = $3`, suspended, reason, id)
	if err != nil {
		return fmt.Errorf("failed to update suspension: %w", err)
	}
	return requireOneRow(res)
}

func (t *pgTx) SetClosed(id string, closed bool) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE accounts SET closed = $1, updated_at = now() WHERE id = $2`, closed, id)
	if err != nil {
		return fmt.Errorf("failed to update closed flag: %w", err)
	}
	return requireOneRow(res)
}

func (t *pgTx) AppendTransaction(rec *models.Transaction) error {
	const ins = `
		INSERT INTO transactions
			(reference_id, account_id, counterpart_id, kind, direction, amount, description, balance_after, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	err := t.tx.QueryRowContext(t.ctx, ins,
		rec.Reference, rec.AccountID, rec.CounterpartID, string(rec.Kind), string(rec.Direction),
		rec.Amount, rec.Description, rec.BalanceAfter, models.StatusSuccess).
		Scan(&rec.ID, &rec.Timestamp)
	if isUniqueViolation(err) {
		return store.ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	rec.Status = models.StatusSuccess
	return nil
}

const accountQuery = `
	SELECT id, owner_id, balance, suspended, suspension_reason, closed, created_at, updated_at
	FROM accounts`

const transactionQuery = `
	SELECT id, reference_id, account_id, counterpart_id, kind, direction, amount, description,
	       balance_after, status, created_at
	FROM transactions`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Balance, &a.Suspended, &a.SuspensionReason,
		&a.Closed, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %w", err)
	}
	return &a, nil
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var recs []models.Transaction
	for rows.Next() {
		var rec models.Transaction
		var kind, direction string
		if err := rows.Scan(&rec.ID, &rec.Reference, &rec.AccountID, &rec.CounterpartID,
			&kind, &direction, &rec.Amount, &rec.Description,
			&rec.BalanceAfter, &rec.Status, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to read transaction: %w", err)
		}
		rec.Kind = models.Kind(kind)
		rec.Direction = models.Direction(direction)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}
