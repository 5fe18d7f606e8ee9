// Package ledger defines the boundary to the external durable balance ledger.
// The core only moves funds through it; it never implements balances itself.
package ledger

import (
	"context"

	"streamrent/internal/domain"
)

// BalanceLedger is the external account-balance system. Transfer is assumed
// atomic: it either fully moves the amount or fails without a partial write.
type BalanceLedger interface {
	Transfer(ctx context.Context, from, to domain.Account, amount int64) error
	Balance(ctx context.Context, account domain.Account) (int64, error)
}
