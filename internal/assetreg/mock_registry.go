package assetreg

import (
	"context"
	"fmt"
	"sync"

	"streamrent/internal/domain"
)

// MockRegistry is an in-process AssetRegistry for dev mode and tests. Owners
// are seeded explicitly; temporary users are kept in memory.
type MockRegistry struct {
	mu        sync.Mutex
	owners    map[domain.AssetRef]domain.Account
	tempUsers map[domain.AssetRef]tempGrant
}

type tempGrant struct {
	Account domain.Account
	Until   int64
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{
		owners:    make(map[domain.AssetRef]domain.Account),
		tempUsers: make(map[domain.AssetRef]tempGrant),
	}
}

// SetOwner seeds ownership of an asset.
func (m *MockRegistry) SetOwner(asset domain.AssetRef, owner domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[asset] = owner
}

func (m *MockRegistry) OwnerOf(_ context.Context, asset domain.AssetRef) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[asset]
	if !ok {
		return "", fmt.Errorf("asset %s: %w", asset, domain.ErrNotFound)
	}
	return owner, nil
}

func (m *MockRegistry) SetTemporaryUser(_ context.Context, asset domain.AssetRef, account domain.Account, until int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owners[asset]; !ok {
		return fmt.Errorf("asset %s: %w", asset, domain.ErrNotFound)
	}
	m.tempUsers[asset] = tempGrant{Account: account, Until: until}
	return nil
}

func (m *MockRegistry) ClearTemporaryUser(_ context.Context, asset domain.AssetRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tempUsers, asset)
	return nil
}

// TemporaryUser reports the current temporary user of an asset, if any.
func (m *MockRegistry) TemporaryUser(asset domain.AssetRef) (domain.Account, int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.tempUsers[asset]
	return g.Account, g.Until, ok
}
