package loop

import (
	"sync/atomic"
	"time"
)

// A TimeTeller can be used to get the current simulated time.
type TimeTeller interface {
	Now() time.Duration
}

// A VirtualClock is the single simulated time source that every loop in the
// process reads from. It never moves on its own: a driver advances it
// explicitly, and a dispatch aligns it with the message being run.
type VirtualClock struct {
	nowMillis atomic.Int64
}

var clockInstance = &VirtualClock{}

// GetClock returns the process-wide virtual clock.
func GetClock() *VirtualClock {
	return clockInstance
}

// Now returns the current simulated time as an offset from the clock epoch.
// It is safe to call from any goroutine.
func (c *VirtualClock) Now() time.Duration {
	return time.Duration(c.nowMillis.Load()) * time.Millisecond
}

// AdvanceBy moves the clock forward by d. The clock has millisecond
// resolution and never decreases; a non-positive d leaves it untouched.
func (c *VirtualClock) AdvanceBy(d time.Duration) {
	if d <= 0 {
		return
	}
	c.nowMillis.Add(d.Milliseconds())
}

// SetTime sets the clock to the absolute instant t. It reports whether the
// clock changed; an instant earlier than the current time is refused, which
// keeps the clock monotonic when a front-inserted message dispatches.
func (c *VirtualClock) SetTime(t time.Duration) bool {
	millis := t.Milliseconds()
	for {
		cur := c.nowMillis.Load()
		if millis < cur {
			return false
		}
		if c.nowMillis.CompareAndSwap(cur, millis) {
			return true
		}
	}
}

// Reset returns the clock to the epoch. It is meant to be called at test
// boundaries only, after every loop has been torn down or cleared.
func (c *VirtualClock) Reset() {
	c.nowMillis.Store(0)
}
