// Package assetreg defines the boundary to the external asset-ownership
// registry, which exposes a "set temporary user" capability. The core calls
// it; it never implements ownership itself.
package assetreg

import (
	"context"

	"streamrent/internal/domain"
)

type AssetRegistry interface {
	OwnerOf(ctx context.Context, asset domain.AssetRef) (domain.Account, error)
	// SetTemporaryUser grants temporary-use rights to an account until the
	// given unix time.
	SetTemporaryUser(ctx context.Context, asset domain.AssetRef, account domain.Account, until int64) error
	ClearTemporaryUser(ctx context.Context, asset domain.AssetRef) error
}
