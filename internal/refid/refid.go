// Package refid produces the externally visible reference identifiers
// attached to ledger transactions. A reference is assigned once at creation
// and never regenerated; uniqueness is ultimately enforced by the transaction
// log's uniqueness constraint.
package refid

import (
	"strings"

	"github.com/google/uuid"
)

const prefix = "TXN-"

// New returns a fresh reference identifier: a v4 UUID rendered as 32 upper
// case hex characters behind a fixed prefix, compact enough to read over the
// phone to support staff.
func New() string {
	id := uuid.New()
	return prefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}
