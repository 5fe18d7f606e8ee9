package domain

import "time"

type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "ACTIVE"
	RentalStatusCompleted RentalStatus = "COMPLETED"
	RentalStatusDisputed  RentalStatus = "DISPUTED"
	RentalStatusResolved  RentalStatus = "RESOLVED"
	RentalStatusRecovered RentalStatus = "RECOVERED"
)

// Terminal reports whether no further transition can be applied to a rental
// in this status.
func (s RentalStatus) Terminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusResolved || s == RentalStatusRecovered
}

// Rental is an accepted, time-bounded grant of temporary use over an asset.
// It is created atomically with a payment stream and a collateral escrow.
// The price field is a snapshot taken from the listing at creation time.
type Rental struct {
	ID             string   `json:"id"`
	ListingID      string   `json:"listing_id"`
	StreamID       string   `json:"stream_id"`
	Asset          AssetRef `json:"asset"`
	Owner          Account  `json:"owner"`
	Renter         Account  `json:"renter"`
	PricePerSecond int64    `json:"price_per_second"`
	StartTime      int64    `json:"start_time"` // unix seconds
	EndTime        int64    `json:"end_time"`   // unix seconds
	// CollateralAmount is escrowed under this rental, separate from the
	// renter's free collateral balance, until a terminal transition.
	CollateralAmount int64        `json:"collateral_amount"`
	Status           RentalStatus `json:"status"`
	DisputedBy       Account      `json:"disputed_by,omitempty"`
	DisputeReason    string       `json:"dispute_reason,omitempty"`
	CreatedOn        time.Time    `json:"created_on"`
	UpdatedOn        time.Time    `json:"updated_on"`
}

// TotalCost is the full streaming cost for the rental window.
func (r *Rental) TotalCost() int64 {
	return r.PricePerSecond * (r.EndTime - r.StartTime)
}
