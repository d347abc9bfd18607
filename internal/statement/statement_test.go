package statement

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/oakline/ledger-core/internal/models"
)

func TestRender(t *testing.T) {
	generated := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	acct := &models.Account{
		ID:      "ACC-1",
		OwnerID: "alice",
		Balance: decimal.RequireFromString("120.00"),
	}
	recs := []models.Transaction{
		{
			Reference:     "TXN-2",
			AccountID:     "ACC-1",
			CounterpartID: "ACC-2",
			Kind:          models.KindTransfer,
			Direction:     models.DirectionOut,
			Amount:        decimal.RequireFromString("30.00"),
			Description:   "Rent share",
			BalanceAfter:  decimal.RequireFromString("120.00"),
			Timestamp:     generated.Add(-time.Hour),
		},
		{
			Reference:    "TXN-1",
			AccountID:    "ACC-1",
			Kind:         models.KindCredit,
			Direction:    models.DirectionIn,
			Amount:       decimal.RequireFromString("150.00"),
			BalanceAfter: decimal.RequireFromString("150.00"),
			Timestamp:    generated.Add(-2 * time.Hour),
		},
	}

	out, err := Render(acct, recs, generated)
	if err != nil {
		t.Fatal(err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(out); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	root := doc.SelectElement("Statement")
	if root == nil {
		t.Fatal("missing Statement root")
	}
	if got := root.SelectAttrValue("generatedAt", ""); got != "2026-04-02T09:30:00Z" {
		t.Fatalf("generatedAt=%q", got)
	}
	if got := root.FindElement("./Account/Balance").Text(); got != "120.00" {
		t.Fatalf("balance=%q", got)
	}

	entries := root.FindElements("./Entries/Entry")
	if len(entries) != 2 {
		t.Fatalf("entries=%d want=2", len(entries))
	}
	first := entries[0]
	if got := first.SelectAttrValue("reference", ""); got != "TXN-2" {
		t.Fatalf("first entry reference=%q", got)
	}
	if got := first.FindElement("./Counterpart").Text(); got != "ACC-2" {
		t.Fatalf("counterpart=%q", got)
	}
	if got := first.FindElement("./Direction").Text(); got != "OUT" {
		t.Fatalf("direction=%q", got)
	}
	// The credit entry has no counterpart and must not render an empty node.
	if entries[1].FindElement("./Counterpart") != nil {
		t.Fatal("credit entry rendered a counterpart")
	}
}

func TestRenderSuspendedAccount(t *testing.T) {
	acct := &models.Account{
		ID:               "ACC-1",
		Balance:          decimal.Zero,
		Suspended:        true,
		SuspensionReason: "fraud review",
	}
	out, err := Render(acct, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(out); err != nil {
		t.Fatal(err)
	}
	el := doc.FindElement("//Account/Suspended")
	if el == nil || el.Text() != "fraud review" {
		t.Fatalf("suspension not rendered: %v", el)
	}
}
