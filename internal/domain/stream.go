package domain

import "time"

// Stream is a continuously vesting fund transfer between two accounts over a
// fixed time window. The deposit is custodied by the payment stream engine,
// not by either party. Invariant: Withdrawn <= VestedAt(now) <= Deposit.
type Stream struct {
	ID        string  `json:"id"`
	Sender    Account `json:"sender"`
	Recipient Account `json:"recipient"`
	Deposit   int64   `json:"deposit"`
	// RatePerSecond is Deposit / (StopTime - StartTime) using integer
	// division; Remainder carries the division leftover and is paid out at
	// StopTime so no funds are silently dropped.
	RatePerSecond int64     `json:"rate_per_second"`
	Remainder     int64     `json:"remainder"`
	StartTime     int64     `json:"start_time"` // unix seconds
	StopTime      int64     `json:"stop_time"`  // unix seconds
	Withdrawn     int64     `json:"withdrawn"`
	Active        bool      `json:"active"`
	CreatedOn     time.Time `json:"created_on"`
	UpdatedOn     time.Time `json:"updated_on"`
}

// VestedAt returns the amount vested to the recipient at the given unix time.
// Pure function of stored state; the caller supplies the clock reading, which
// keeps vesting math deterministic under test.
func (s *Stream) VestedAt(at int64) int64 {
	if at <= s.StartTime {
		return 0
	}
	if at >= s.StopTime {
		return s.Deposit
	}
	return s.RatePerSecond * (at - s.StartTime)
}
