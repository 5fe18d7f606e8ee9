package ledger

import (
	"context"
	"fmt"
	"sync"

	"streamrent/internal/domain"
)

// MemoryLedger is an in-process BalanceLedger used by dev mode and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[domain.Account]int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[domain.Account]int64)}
}

// Mint credits an account out of thin air. Test and dev seeding only.
func (l *MemoryLedger) Mint(account domain.Account, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

func (l *MemoryLedger) Transfer(_ context.Context, from, to domain.Account, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("ledger transfer: %w", domain.ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fmt.Errorf("ledger transfer from %s: %w", from, domain.ErrInsufficientBalance)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *MemoryLedger) Balance(_ context.Context, account domain.Account) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}
