// Package input turns sampled button levels into edge facts.
// This package has NO hardware dependencies. Time is always injected via
// time.Time parameters.
package input

// Edge is the previous/current level pair for one watched button.
// The zero value starts released.
type Edge struct {
	Prev bool
	Cur  bool
}

// Observe shifts a new sample in.
func (e *Edge) Observe(level bool) {
	e.Prev = e.Cur
	e.Cur = level
}

// Rose reports whether the last sample was a released→pressed transition.
// A level held steady never reports Rose twice.
func (e Edge) Rose() bool {
	return !e.Prev && e.Cur
}

// Fell reports whether the last sample was a pressed→released transition.
func (e Edge) Fell() bool {
	return e.Prev && !e.Cur
}

// Held reports whether the button is pressed and was pressed before.
func (e Edge) Held() bool {
	return e.Prev && e.Cur
}
