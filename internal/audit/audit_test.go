package audit

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oakline/ledger-core/internal/models"
	"github.com/oakline/ledger-core/internal/store"
	"github.com/oakline/ledger-core/internal/store/memory"
)

func testAuditor(t *testing.T) (*Auditor, *memory.Store) {
	t.Helper()
	st := memory.New()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(st, log), st
}

func credit(t *testing.T, st *memory.Store, account, ref, amount string) {
	t.Helper()
	err := st.Apply(context.Background(), func(tx store.Tx) error {
		amt := decimal.RequireFromString(amount)
		balance, err := tx.UpdateBalance(account, amt)
		if err != nil {
			return err
		}
		return tx.AppendTransaction(&models.Transaction{
			Reference:    ref,
			AccountID:    account,
			Kind:         models.KindCredit,
			Direction:    models.DirectionIn,
			Amount:       amt,
			BalanceAfter: balance,
		})
	})
	if err != nil {
		t.Fatalf("credit(%s) err=%v", account, err)
	}
}

func TestCheckAccountConsistent(t *testing.T) {
	a, st := testAuditor(t)
	ctx := context.Background()

	if err := st.CreateAccount(ctx, &models.Account{ID: "ACC-1", OwnerID: "alice"}); err != nil {
		t.Fatal(err)
	}
	credit(t, st, "ACC-1", "TXN-1", "100.00")
	credit(t, st, "ACC-1", "TXN-2", "25.50")

	drift, err := a.CheckAccount(ctx, "ACC-1")
	if err != nil {
		t.Fatal(err)
	}
	if drift != nil {
		t.Fatalf("unexpected drift: %+v", drift)
	}
}

func TestCheckAccountDetectsDrift(t *testing.T) {
	a, st := testAuditor(t)
	ctx := context.Background()

	// A balance with no history behind it is exactly the drift the audit
	// exists to catch.
	err := st.CreateAccount(ctx, &models.Account{
		ID:      "ACC-1",
		OwnerID: "alice",
		Balance: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatal(err)
	}

	drift, err := a.CheckAccount(ctx, "ACC-1")
	if err != nil {
		t.Fatal(err)
	}
	if drift == nil {
		t.Fatal("drift not detected")
	}
	if !drift.Recorded.Equal(decimal.RequireFromString("100.00")) || !drift.Computed.IsZero() {
		t.Fatalf("drift=%+v", drift)
	}
}

func TestRunReportsOnlyDriftedAccounts(t *testing.T) {
	a, st := testAuditor(t)
	ctx := context.Background()

	if err := st.CreateAccount(ctx, &models.Account{ID: "ACC-1", OwnerID: "alice"}); err != nil {
		t.Fatal(err)
	}
	credit(t, st, "ACC-1", "TXN-1", "10.00")
	err := st.CreateAccount(ctx, &models.Account{
		ID:      "ACC-2",
		OwnerID: "bob",
		Balance: decimal.RequireFromString("5.00"),
	})
	if err != nil {
		t.Fatal(err)
	}

	drifts, err := a.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(drifts) != 1 || drifts[0].AccountID != "ACC-2" {
		t.Fatalf("drifts=%+v", drifts)
	}
}
