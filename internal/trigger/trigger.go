// Package trigger provides drift-free periodic triggers for a polled main loop.
//
// An Interval is checked, never slept on. Each fire advances the reference
// point by exactly one period, so a caller that falls behind sees the
// interval stay due until it has caught up, and long-run cadence is kept.
package trigger

// Clock returns a free-running counter in arbitrary units (milliseconds,
// microseconds). It may wrap; Interval uses wrap-safe arithmetic.
type Clock func() uint32

// Interval answers "has at least one period elapsed since the last fire?".
// Not safe for concurrent use; each Interval belongs to one loop.
type Interval struct {
	period uint32
	last   uint32
	repeat bool
	done   bool
	now    Clock
}

// New creates an Interval of the given period in clock units. The first fire
// happens one period after construction. A non-repeating Interval fires once
// and then stays quiet until Reset.
func New(period uint32, repeat bool, now Clock) *Interval {
	if period == 0 {
		period = 1
	}
	return &Interval{
		period: period,
		last:   now(),
		repeat: repeat,
		now:    now,
	}
}

// NewMillis creates an Interval on the process millisecond clock.
func NewMillis(periodMs uint32, repeat bool) *Interval {
	return New(periodMs, repeat, MillisClock)
}

// NewMicros creates an Interval on the process microsecond clock. Use it when
// the period can be shorter than a millisecond.
func NewMicros(periodUs uint32, repeat bool) *Interval {
	return New(periodUs, repeat, MicrosClock)
}

// Check reports whether the interval is due, and if so consumes one period.
func (i *Interval) Check() bool {
	if i.done {
		return false
	}
	if i.now()-i.last < i.period {
		return false
	}
	i.last += i.period
	if !i.repeat {
		i.done = true
	}
	return true
}

// Reset re-arms the interval so the next fire is one period from now.
func (i *Interval) Reset() {
	i.last = i.now()
	i.done = false
}

// Period returns the configured period in clock units.
func (i *Interval) Period() uint32 {
	return i.period
}

// Behind returns how many whole periods are currently pending.
func (i *Interval) Behind() uint32 {
	if i.done {
		return 0
	}
	return (i.now() - i.last) / i.period
}
