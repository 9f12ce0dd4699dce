package input

import "time"

// DefaultDoubleClickWindow is the maximum gap between a release and the next
// press for the pair to count as a double click.
const DefaultDoubleClickWindow = 300 * time.Millisecond

// Button derives press, hold and double-click facts from one level sample
// per poll. Facts are valid until the next Update.
type Button struct {
	Edge

	doubleClickWindow time.Duration
	pressedAt         time.Time
	releasedAt        time.Time
	holdReported      time.Duration
	doubleClicked     bool
	pairDone          bool
	heldFor           time.Duration
}

// NewButton creates a Button with the given double-click window.
// A window <= 0 uses DefaultDoubleClickWindow.
func NewButton(doubleClickWindow time.Duration) *Button {
	if doubleClickWindow <= 0 {
		doubleClickWindow = DefaultDoubleClickWindow
	}
	return &Button{doubleClickWindow: doubleClickWindow}
}

// Update samples the button level at time now.
func (b *Button) Update(level bool, now time.Time) {
	b.Observe(level)
	b.doubleClicked = false

	switch {
	case b.Rose():
		if !b.releasedAt.IsZero() && now.Sub(b.releasedAt) <= b.doubleClickWindow {
			b.doubleClicked = true
		}
		// A completed pair does not chain into a third press.
		b.pairDone = b.doubleClicked
		b.releasedAt = time.Time{}
		b.pressedAt = now
		b.holdReported = 0
		b.heldFor = 0
	case b.Fell():
		if !b.pairDone {
			b.releasedAt = now
		}
		b.heldFor = 0
	case b.Cur:
		b.heldFor = now.Sub(b.pressedAt)
	default:
		b.heldFor = 0
	}
}

// WasPressed reports a press edge on the last sample.
func (b *Button) WasPressed() bool {
	return b.Rose()
}

// WasReleased reports a release edge on the last sample.
func (b *Button) WasReleased() bool {
	return b.Fell()
}

// WasDoubleClicked reports that the last press completed a double click.
func (b *Button) WasDoubleClicked() bool {
	return b.doubleClicked
}

// PressedFor reports, once per hold, that the button has been held for at
// least d. A hold that crosses several thresholds reports each of them once.
func (b *Button) PressedFor(d time.Duration) bool {
	if !b.Cur || b.heldFor < d || b.holdReported >= d {
		return false
	}
	b.holdReported = d
	return true
}

// IsPressed reports the current level.
func (b *Button) IsPressed() bool {
	return b.Cur
}
