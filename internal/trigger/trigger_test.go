package trigger

import (
	"math"
	"testing"
)

// manualClock is a settable clock for tests.
type manualClock struct {
	t uint32
}

func (c *manualClock) now() uint32 { return c.t }

func TestNotDueBeforePeriod(t *testing.T) {
	c := &manualClock{}
	iv := New(100, true, c.now)

	c.t = 99
	if iv.Check() {
		t.Error("should not fire before one period has elapsed")
	}

	c.t = 100
	if !iv.Check() {
		t.Error("should fire at exactly one period")
	}
	if iv.Check() {
		t.Error("should fire at most once per elapsed period")
	}
}

func TestFastPollingFiresOncePerPeriod(t *testing.T) {
	c := &manualClock{}
	iv := New(10, true, c.now)

	fires := 0
	for c.t = 0; c.t < 1000; c.t++ {
		if iv.Check() {
			fires++
		}
	}
	// t=999 covers 99 whole periods
	if fires != 99 {
		t.Errorf("expected 99 fires, got %d", fires)
	}
}

func TestCatchUpAfterStall(t *testing.T) {
	c := &manualClock{}
	iv := New(10, true, c.now)

	// Stall for 55 units: five whole periods are pending.
	c.t = 55
	if got := iv.Behind(); got != 5 {
		t.Errorf("Behind: got %d, want 5", got)
	}

	fires := 0
	for iv.Check() {
		fires++
	}
	if fires != 5 {
		t.Errorf("expected 5 catch-up fires, got %d", fires)
	}

	// Reference advanced by whole periods, not to "now": 5 units of phase remain.
	c.t = 59
	if iv.Check() {
		t.Error("should not fire at 59")
	}
	c.t = 60
	if !iv.Check() {
		t.Error("should fire at 60, keeping the original phase")
	}
}

func TestNoLongRunDrift(t *testing.T) {
	tests := []struct {
		name   string
		period uint32
		step   uint32
	}{
		{"poll faster than period", 1000, 7},
		{"poll slower than period", 1000, 2300},
		{"poll at period", 1000, 1000},
		{"sub-millisecond music tick", 250, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &manualClock{}
			iv := New(tt.period, true, c.now)

			const span = 1_000_000
			fires := 0
			for c.t = 0; c.t <= span; c.t += tt.step {
				for iv.Check() {
					fires++
				}
			}
			elapsed := c.t - tt.step
			want := int(elapsed / tt.period)
			if fires < want-1 || fires > want+1 {
				t.Errorf("fires: got %d, want %d ±1", fires, want)
			}
		})
	}
}

func TestClockWraparound(t *testing.T) {
	c := &manualClock{t: math.MaxUint32 - 50}
	iv := New(100, true, c.now)

	c.t += 99 // wraps past zero
	if iv.Check() {
		t.Error("should not fire before period across wraparound")
	}
	c.t++
	if !iv.Check() {
		t.Error("should fire at period across wraparound")
	}
}

func TestOneShot(t *testing.T) {
	c := &manualClock{}
	iv := New(20, false, c.now)

	c.t = 100
	if !iv.Check() {
		t.Fatal("one-shot should fire once when due")
	}
	if iv.Check() {
		t.Error("one-shot should not fire again")
	}
	if iv.Behind() != 0 {
		t.Error("spent one-shot should report nothing pending")
	}

	iv.Reset()
	c.t = 119
	if iv.Check() {
		t.Error("re-armed one-shot fired early")
	}
	c.t = 120
	if !iv.Check() {
		t.Error("re-armed one-shot should fire one period after Reset")
	}
}

func TestZeroPeriodCoerced(t *testing.T) {
	c := &manualClock{}
	iv := New(0, true, c.now)
	if iv.Period() != 1 {
		t.Errorf("expected period 1, got %d", iv.Period())
	}
}

func TestProcessClocksAdvance(t *testing.T) {
	a := MicrosClock()
	for i := 0; i < 1_000_000 && MicrosClock() == a; i++ {
	}
	if MicrosClock() == a {
		t.Error("micros clock did not advance")
	}
	if MillisClock() > MicrosClock()/1000+1 {
		t.Error("millis clock ahead of micros clock")
	}
}
