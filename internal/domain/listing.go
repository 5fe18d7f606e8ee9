package domain

import "time"

// Listing is an offer to rent an asset at a fixed per-second price within a
// duration range. Listings are only ever deactivated, never deleted, so rental
// history stays queryable.
type Listing struct {
	ID                 string    `json:"id"`
	Asset              AssetRef  `json:"asset"`
	Owner              Account   `json:"owner"`
	PricePerSecond     int64     `json:"price_per_second"`
	MinDurationSeconds int64     `json:"min_duration_seconds"`
	MaxDurationSeconds int64     `json:"max_duration_seconds"`
	CollateralRequired int64     `json:"collateral_required"`
	Active             bool      `json:"active"`
	CreatedOn          time.Time `json:"created_on"`
	UpdatedOn          time.Time `json:"updated_on"`
}
