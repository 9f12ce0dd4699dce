package power

import (
	"fmt"

	"github.com/sweeney/deskbot/internal/gpio"
)

// Rail is the switched auxiliary power output. It starts off.
// Not safe for concurrent use.
type Rail struct {
	out gpio.Output
	on  bool
}

// NewRail wraps out.
func NewRail(out gpio.Output) *Rail {
	return &Rail{out: out}
}

// Toggle flips the rail and returns the new state. On error the state is
// unchanged.
func (r *Rail) Toggle() (bool, error) {
	if err := r.out.Set(!r.on); err != nil {
		return r.on, fmt.Errorf("toggle aux rail: %w", err)
	}
	r.on = !r.on
	return r.on, nil
}

// On reports the rail state.
func (r *Rail) On() bool {
	return r.on
}
