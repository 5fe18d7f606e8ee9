package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamVestedAt(t *testing.T) {
	s := &Stream{
		Deposit:       1000,
		RatePerSecond: 10,
		StartTime:     100,
		StopTime:      200,
	}

	t.Run("NothingBeforeStart", func(t *testing.T) {
		assert.Equal(t, int64(0), s.VestedAt(50))
		assert.Equal(t, int64(0), s.VestedAt(100))
	})

	t.Run("LinearWhileRunning", func(t *testing.T) {
		assert.Equal(t, int64(10), s.VestedAt(101))
		assert.Equal(t, int64(400), s.VestedAt(140))
		assert.Equal(t, int64(990), s.VestedAt(199))
	})

	t.Run("FullDepositAtStop", func(t *testing.T) {
		assert.Equal(t, int64(1000), s.VestedAt(200))
		assert.Equal(t, int64(1000), s.VestedAt(10_000))
	})

	t.Run("RemainderPaidAtStop", func(t *testing.T) {
		// 1000 over 300s: rate 3, remainder 100. The second before stop
		// vests rate*299; the stop boundary releases the leftover too.
		r := &Stream{Deposit: 1000, RatePerSecond: 3, Remainder: 100, StartTime: 0, StopTime: 300}
		assert.Equal(t, int64(897), r.VestedAt(299))
		assert.Equal(t, int64(1000), r.VestedAt(300))
	})
}

func TestRentalStatusTerminal(t *testing.T) {
	assert.False(t, RentalStatusActive.Terminal())
	assert.False(t, RentalStatusDisputed.Terminal())
	assert.True(t, RentalStatusCompleted.Terminal())
	assert.True(t, RentalStatusResolved.Terminal())
	assert.True(t, RentalStatusRecovered.Terminal())
}

func TestReputationSuccessRatePercent(t *testing.T) {
	assert.Equal(t, int64(100), (&ReputationRecord{}).SuccessRatePercent())
	assert.Equal(t, int64(50), (&ReputationRecord{TotalRentals: 4, SuccessfulRentals: 2}).SuccessRatePercent())
	assert.Equal(t, int64(33), (&ReputationRecord{TotalRentals: 3, SuccessfulRentals: 1}).SuccessRatePercent())
}
