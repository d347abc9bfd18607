// Package statement renders an account's transaction history as an XML
// statement suitable for export or end-user download.
package statement

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/oakline/ledger-core/internal/models"
)

// Render builds an indented XML statement for the account. Transactions are
// expected newest-first, as returned by the history operation, and each entry
// carries the running balance recorded at commit time.
func Render(acct *models.Account, recs []models.Transaction, generatedAt time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Statement")
	root.CreateAttr("generatedAt", generatedAt.UTC().Format(time.RFC3339))

	accEl := root.CreateElement("Account")
	accEl.CreateElement("ID").SetText(acct.ID)
	accEl.CreateElement("Balance").SetText(acct.Balance.StringFixed(2))
	if acct.Suspended {
		susEl := accEl.CreateElement("Suspended")
		susEl.SetText(acct.SuspensionReason)
	}

	entries := root.CreateElement("Entries")
	entries.CreateAttr("count", fmt.Sprintf("%d", len(recs)))
	for i := range recs {
		rec := &recs[i]
		entry := entries.CreateElement("Entry")
		entry.CreateAttr("reference", rec.Reference)
		entry.CreateElement("Kind").SetText(string(rec.Kind))
		entry.CreateElement("Direction").SetText(string(rec.Direction))
		entry.CreateElement("Amount").SetText(rec.Amount.StringFixed(2))
		entry.CreateElement("BalanceAfter").SetText(rec.BalanceAfter.StringFixed(2))
		entry.CreateElement("Timestamp").SetText(rec.Timestamp.UTC().Format(time.RFC3339))
		if rec.Description != "" {
			entry.CreateElement("Description").SetText(rec.Description)
		}
		if rec.CounterpartID != "" {
			entry.CreateElement("Counterpart").SetText(rec.CounterpartID)
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}
