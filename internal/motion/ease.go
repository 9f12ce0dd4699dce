package motion

import (
	"context"
	"time"

	"github.com/sweeney/deskbot/internal/mathx"
)

// StepInterval is the servo update period during a move.
const StepInterval = 20 * time.Millisecond

// EaseInOutQuad maps linear progress t in [0, 1] to eased progress.
func EaseInOutQuad(t float64) float64 {
	t = mathx.Clamp(t, 0, 1)
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

// Wait blocks for d and reports whether to continue (false = cancelled).
type Wait func(ctx context.Context, d time.Duration) bool

// SleepWait is the real-time Wait.
func SleepWait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ramp is a caller-driven eased move from (fx, fy) to (tx, ty) over dur.
// set receives every intermediate pose; the final pose is always exact
// unless the wait is cancelled. A non-positive dur snaps to the target.
func ramp(ctx context.Context, fx, fy, tx, ty float64, dur time.Duration, wait Wait, set func(x, y float64)) bool {
	steps := int(dur / StepInterval)
	if steps <= 0 {
		set(tx, ty)
		return true
	}
	for i := 1; i < steps; i++ {
		if !wait(ctx, StepInterval) {
			return false
		}
		f := EaseInOutQuad(float64(i) / float64(steps))
		set(fx+(tx-fx)*f, fy+(ty-fy)*f)
	}
	if !wait(ctx, StepInterval) {
		return false
	}
	set(tx, ty)
	return true
}
