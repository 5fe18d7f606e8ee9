package clock

import "time"

// Clock abstracts the time source so expiry checks, vesting math and grace
// periods are evaluated against an explicit "now" and stay deterministic
// under test. There is no background scheduler anywhere in the system; time
// dependent transitions are computed lazily when a call arrives.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by the wall clock.
func System() Clock { return systemClock{} }

// Fixed is a settable Clock for tests.
type Fixed struct {
	Current time.Time
}

func NewFixed(at time.Time) *Fixed { return &Fixed{Current: at} }

func (f *Fixed) Now() time.Time { return f.Current }

// Advance moves the fixed clock forward.
func (f *Fixed) Advance(d time.Duration) { f.Current = f.Current.Add(d) }

// SetUnix positions the clock at a unix second.
func (f *Fixed) SetUnix(sec int64) { f.Current = time.Unix(sec, 0).UTC() }
