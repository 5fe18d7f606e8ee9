package policy

import (
	"streamrent/internal/domain"
)

// Params are the reputation and collateral tuning knobs. They are loaded from
// configuration once and treated as immutable afterwards so that sizing stays
// auditable.
type Params struct {
	MaxScore            int64 // upper bound of the reputation score
	InitialScore        int64 // score assigned to an account with no history
	Gain                int64 // score added on a successful completion
	Loss                int64 // score removed on a failure
	BlacklistFloor      int64 // falling below this score blacklists the account
	TrustThreshold      int64 // at or above this score collateral is waived
	BlacklistMultiplier int64 // collateral multiplier for blacklisted accounts
	MinSuccessPercent   int64 // below this success rate, full collateral applies
}

// DefaultParams mirror the documented protocol constants.
func DefaultParams() Params {
	return Params{
		MaxScore:            100,
		InitialScore:        50,
		Gain:                5,
		Loss:                15,
		BlacklistFloor:      20,
		TrustThreshold:      80,
		BlacklistMultiplier: 3,
		MinSuccessPercent:   50,
	}
}

// SizeCollateral returns the collateral required from an account given its
// reputation record and the listing's base requirement. Pure and
// deterministic given the record.
//
// Blacklisted accounts are charged base * BlacklistMultiplier rather than
// refused outright; the rent flow stays uniform and the penalty is priced in.
// Accounts at or above TrustThreshold pay nothing. In between, the multiplier
// interpolates linearly with score, except that an account whose historical
// success rate is below MinSuccessPercent pays the full base regardless of
// score. Required collateral is monotonically non-increasing in score for any
// fixed history.
func SizeCollateral(rec *domain.ReputationRecord, base int64, p Params) int64 {
	if base <= 0 {
		return 0
	}
	if rec.Blacklisted {
		return base * p.BlacklistMultiplier
	}
	score := rec.Score
	if score >= p.TrustThreshold {
		return 0
	}
	if score < 0 {
		score = 0
	}
	if rec.TotalRentals > 0 && rec.SuccessRatePercent() < p.MinSuccessPercent {
		return base
	}
	// Linear interpolation: score 0 -> full base, TrustThreshold -> 0.
	pct := (p.TrustThreshold - score) * 100 / p.TrustThreshold
	return base * pct / 100
}

// ApplyOutcome folds one rental outcome into a reputation record, keeping the
// score within [0, MaxScore] and setting the blacklist flag when the score
// falls below the floor. The record is mutated in place.
func ApplyOutcome(rec *domain.ReputationRecord, success bool, p Params) {
	rec.TotalRentals++
	if success {
		rec.SuccessfulRentals++
		rec.Score += p.Gain
		if rec.Score > p.MaxScore {
			rec.Score = p.MaxScore
		}
		return
	}
	rec.Score -= p.Loss
	if rec.Score < 0 {
		rec.Score = 0
	}
	if rec.Score < p.BlacklistFloor {
		rec.Blacklisted = true
	}
}
