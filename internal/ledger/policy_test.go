package ledger

import (
	"testing"

	"github.com/oakline/ledger-core/internal/models"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name       string
		suspended  bool
		reason     string
		kind       OperationKind
		wantAllow  bool
		wantReason string
	}{
		{"deposit on active account", false, "", OpDeposit, true, ""},
		{"withdrawal on active account", false, "", OpWithdrawal, true, ""},
		{"deposit on suspended account", true, "hold", OpDeposit, true, ""},
		{"incoming transfer on suspended account", true, "hold", OpTransferIn, true, ""},
		{"withdrawal on suspended account", true, "hold", OpWithdrawal, false, "hold"},
		{"outgoing transfer on suspended account", true, "hold", OpTransferOut, false, "hold"},
		{"suspended without reason uses default", true, "", OpWithdrawal, false, DefaultSuspensionReason},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acct := &models.Account{Suspended: tc.suspended, SuspensionReason: tc.reason}
			d := Decide(acct, tc.kind)
			if d.Allowed != tc.wantAllow {
				t.Fatalf("allowed=%v want=%v", d.Allowed, tc.wantAllow)
			}
			if d.Reason != tc.wantReason {
				t.Fatalf("reason=%q want=%q", d.Reason, tc.wantReason)
			}
		})
	}
}
