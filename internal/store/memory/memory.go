// Package memory implements the ledger store as mutex-guarded maps. Apply
// stages every mutation against working copies and swaps them in only when
// the whole unit succeeds, so a failing operation leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oakline/ledger-core/internal/models"
	"github.com/oakline/ledger-core/internal/store"
)

// Store keeps all ledger state in process memory.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	history  map[string][]models.Transaction
	byRef    map[string][]models.Transaction
	refs     map[string]map[string]bool
	lastTS   map[string]time.Time
	nextID   int64

	now func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*models.Account),
		history:  make(map[string][]models.Transaction),
		byRef:    make(map[string][]models.Transaction),
		refs:     make(map[string]map[string]bool),
		lastTS:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// CreateAccount registers a new account under its identifier.
func (s *Store) CreateAccount(ctx context.Context, acct *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.ID]; ok {
		return store.ErrAccountExists
	}
	cp := acct.Clone()
	now := s.now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.accounts[cp.ID] = cp
	return nil
}

// GetAccount returns a copy of the account state.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return acct.Clone(), nil
}

// ListAccountIDs returns every account identifier in lexicographic order.
func (s *Store) ListAccountIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// History returns the account and its transactions newest-first. Both are
// copies taken under one lock, so balance and history come from the same
// point in time.
func (s *Store) History(ctx context.Context, id string) (*models.Account, []models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, nil, store.ErrAccountNotFound
	}
	recs := s.history[id]
	out := make([]models.Transaction, len(recs))
	// Commit order is oldest-first with non-decreasing timestamps, so the
	// reverse is newest-first.
	for i, rec := range recs {
		out[len(recs)-1-i] = rec
	}
	return acct.Clone(), out, nil
}

// FindByReference returns copies of every record sharing the reference.
func (s *Store) FindByReference(ctx context.Context, ref string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.byRef[ref]
	out := make([]models.Transaction, len(recs))
	copy(out, recs)
	return out, nil
}

// Apply runs fn against staged copies and commits them only if fn succeeds.
func (s *Store) Apply(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, staged: make(map[string]*models.Account)}
	if err := fn(tx); err != nil {
		return err
	}

	now := s.now()
	for id, acct := range tx.staged {
		acct.UpdatedAt = now
		s.accounts[id] = acct
	}
	for _, rec := range tx.appended {
		s.nextID++
		rec.ID = s.nextID
		ts := now
		if last := s.lastTS[rec.AccountID]; ts.Before(last) {
			ts = last
		}
		rec.Timestamp = ts
		s.lastTS[rec.AccountID] = ts
		s.history[rec.AccountID] = append(s.history[rec.AccountID], rec)
		s.byRef[rec.Reference] = append(s.byRef[rec.Reference], rec)
		set, ok := s.refs[rec.Reference]
		if !ok {
			set = make(map[string]bool)
			s.refs[rec.Reference] = set
		}
		set[rec.AccountID] = true
	}
	return nil
}

var _ store.Store = (*Store)(nil)

// memTx stages mutations while the store lock is held.
type memTx struct {
	s        *Store
	staged   map[string]*models.Account
	appended []models.Transaction
}

func (t *memTx) account(id string) (*models.Account, error) {
	if acct, ok := t.staged[id]; ok {
		return acct, nil
	}
	acct, ok := t.s.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	cp := acct.Clone()
	t.staged[id] = cp
	return cp, nil
}

func (t *memTx) UpdateBalance(id string, delta decimal.Decimal) (decimal.Decimal, error) {
	acct, err := t.account(id)
	if err != nil {
		return decimal.Zero, err
	}
	next := acct.Balance.Add(delta)
	if next.Sign() < 0 {
		return decimal.Zero, store.ErrInsufficientFunds
	}
	acct.Balance = next
	return next, nil
}

func (t *memTx) SetSuspension(id string, suspended bool, reason string) error {
	acct, err := t.account(id)
	if err != nil {
		return err
	}
	acct.Suspended = suspended
	acct.SuspensionReason = reason
	return nil
}

func (t *memTx) SetClosed(id string, closed bool) error {
	acct, err := t.account(id)
	if err != nil {
		return err
	}
	acct.Closed = closed
	return nil
}

func (t *memTx) AppendTransaction(rec *models.Transaction) error {
	if t.s.refs[rec.Reference][rec.AccountID] {
		return store.ErrDuplicateReference
	}
	for _, staged := range t.appended {
		if staged.Reference == rec.Reference && staged.AccountID == rec.AccountID {
			return store.ErrDuplicateReference
		}
	}
	cp := *rec
	cp.Status = models.StatusSuccess
	t.appended = append(t.appended, cp)
	return nil
}
