package utils

import "fmt"

// CostBreakdown decomposes a rental quote into calendar tiers for display.
// All costs are in the ledger's integer units; the tiers always sum to
// TotalCost exactly.
type CostBreakdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`

	DaysCost    int64 `json:"days_cost"`
	HoursCost   int64 `json:"hours_cost"`
	MinutesCost int64 `json:"minutes_cost"`
	SecondsCost int64 `json:"seconds_cost"`
	TotalCost   int64 `json:"total_cost"`
}

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// CalculateCostBreakdown prices a duration at a per-second rate and splits
// the result into day/hour/minute/second tiers.
func CalculateCostBreakdown(pricePerSecond, durationSeconds int64) (CostBreakdown, error) {
	if pricePerSecond <= 0 {
		return CostBreakdown{}, fmt.Errorf("price per second must be positive, got %d", pricePerSecond)
	}
	if durationSeconds <= 0 {
		return CostBreakdown{}, fmt.Errorf("duration must be positive, got %d", durationSeconds)
	}

	days := durationSeconds / secondsPerDay
	rem := durationSeconds % secondsPerDay
	hours := rem / secondsPerHour
	rem %= secondsPerHour
	minutes := rem / secondsPerMinute
	seconds := rem % secondsPerMinute

	b := CostBreakdown{
		Days:    days,
		Hours:   hours,
		Minutes: minutes,
		Seconds: seconds,

		DaysCost:    days * secondsPerDay * pricePerSecond,
		HoursCost:   hours * secondsPerHour * pricePerSecond,
		MinutesCost: minutes * secondsPerMinute * pricePerSecond,
		SecondsCost: seconds * pricePerSecond,
	}
	b.TotalCost = b.DaysCost + b.HoursCost + b.MinutesCost + b.SecondsCost
	return b, nil
}

// StreamTerms computes the per-second rate and the integer-division remainder
// for a deposit vested over a duration. The remainder is the part of the
// deposit that only becomes payable when the stream reaches its stop time.
func StreamTerms(deposit, durationSeconds int64) (rate, remainder int64, err error) {
	if deposit <= 0 {
		return 0, 0, fmt.Errorf("deposit must be positive, got %d", deposit)
	}
	if durationSeconds <= 0 {
		return 0, 0, fmt.Errorf("duration must be positive, got %d", durationSeconds)
	}
	return deposit / durationSeconds, deposit % durationSeconds, nil
}

// FormatDuration renders a second count as a compact "2d4h5m30s" string,
// omitting zero tiers.
func FormatDuration(durationSeconds int64) string {
	if durationSeconds <= 0 {
		return "0s"
	}

	days := durationSeconds / secondsPerDay
	rem := durationSeconds % secondsPerDay
	hours := rem / secondsPerHour
	rem %= secondsPerHour
	minutes := rem / secondsPerMinute
	seconds := rem % secondsPerMinute

	out := ""
	if days > 0 {
		out += fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		out += fmt.Sprintf("%dh", hours)
	}
	if minutes > 0 {
		out += fmt.Sprintf("%dm", minutes)
	}
	if seconds > 0 || out == "" {
		out += fmt.Sprintf("%ds", seconds)
	}
	return out
}
