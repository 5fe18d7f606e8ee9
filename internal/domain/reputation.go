package domain

import "time"

// ReputationRecord tracks the rental reliability of an account. Score is a
// bounded integer; only the rental session manager may write outcomes.
type ReputationRecord struct {
	Account           Account   `json:"account"`
	TotalRentals      int64     `json:"total_rentals"`
	SuccessfulRentals int64     `json:"successful_rentals"`
	Score             int64     `json:"score"`
	Blacklisted       bool      `json:"blacklisted"`
	UpdatedOn         time.Time `json:"updated_on"`
}

// SuccessRatePercent returns the historical success rate in whole percent,
// or 100 for an account with no history.
func (r *ReputationRecord) SuccessRatePercent() int64 {
	if r.TotalRentals == 0 {
		return 100
	}
	return r.SuccessfulRentals * 100 / r.TotalRentals
}
