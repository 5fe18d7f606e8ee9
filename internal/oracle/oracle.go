// Package oracle defines the advisory price oracle boundary. Oracle output
// never gates the rental flow; on any failure callers fall back to the
// listing's stored price.
package oracle

import (
	"context"
	"fmt"
	"sync"

	"streamrent/internal/domain"
)

type PriceOracle interface {
	// SuggestedPrice returns an advisory per-second price for an asset.
	SuggestedPrice(ctx context.Context, asset domain.AssetRef) (int64, error)
}

// StaticOracle serves prices from a fixed table; assets without an entry
// return an error, exercising the fallback path.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[domain.AssetRef]int64
}

func NewStaticOracle() *StaticOracle {
	return &StaticOracle{prices: make(map[domain.AssetRef]int64)}
}

func (o *StaticOracle) SetPrice(asset domain.AssetRef, pricePerSecond int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[asset] = pricePerSecond
}

func (o *StaticOracle) SuggestedPrice(_ context.Context, asset domain.AssetRef) (int64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[asset]
	if !ok {
		return 0, fmt.Errorf("no oracle price for %s: %w", asset, domain.ErrNotFound)
	}
	return price, nil
}
