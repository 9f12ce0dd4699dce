// Package servo positions the head's pan (X) and tilt (Y) servos.
package servo

import (
	"fmt"
	"sync"
)

// Axis drives one servo to an absolute angle in degrees.
type Axis interface {
	SetDegrees(deg float64) error
}

// Nop is an Axis that accepts and ignores every command. It stands in for
// servos that failed to attach.
type Nop struct{}

func (Nop) SetDegrees(float64) error { return nil }

// Range limits the angles an Axis will accept.
type Range struct {
	Min, Max float64
}

// Limited wraps an Axis, rejecting angles outside r.
func Limited(a Axis, r Range) Axis {
	return limited{axis: a, r: r}
}

type limited struct {
	axis Axis
	r    Range
}

func (l limited) SetDegrees(deg float64) error {
	if deg < l.r.Min || deg > l.r.Max {
		return fmt.Errorf("set servo: %.1f° outside [%.0f, %.0f]", deg, l.r.Min, l.r.Max)
	}
	return l.axis.SetDegrees(deg)
}

// FakeAxis records every commanded angle.
type FakeAxis struct {
	mu sync.Mutex

	// Angles holds every accepted angle, in order.
	Angles []float64

	// SetError, if set, will be returned by SetDegrees.
	SetError error
}

// NewFakeAxis creates a FakeAxis.
func NewFakeAxis() *FakeAxis {
	return &FakeAxis{}
}

// SetDegrees records deg.
func (f *FakeAxis) SetDegrees(deg float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Angles = append(f.Angles, deg)
	return nil
}

// Last returns the last accepted angle and whether there was one.
func (f *FakeAxis) Last() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Angles) == 0 {
		return 0, false
	}
	return f.Angles[len(f.Angles)-1], true
}

// History returns a copy of the accepted angles.
func (f *FakeAxis) History() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.Angles...)
}
