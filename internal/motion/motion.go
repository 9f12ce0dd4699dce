// Package motion runs the background head animation: random glances with
// eased servo moves, plus neutral-pose and calibration commands from the
// main cycle.
package motion

import (
	"context"
	"log"
	"math/rand/v2"
	"time"

	"github.com/sweeney/deskbot/internal/face"
	"github.com/sweeney/deskbot/internal/input"
	"github.com/sweeney/deskbot/internal/mathx"
	"github.com/sweeney/deskbot/internal/power"
	"github.com/sweeney/deskbot/internal/servo"
)

// Pose limits and timing.
const (
	Neutral = 90.0

	minX, spanX = 45, 90 // x in [45, 135)
	minY, spanY = 60, 30 // y in [60, 90)

	baseMove  = 1000 * time.Millisecond
	stepMove  = 100 * time.Millisecond
	baseDwell = 2000 * time.Millisecond
	stepDwell = 500 * time.Millisecond

	// HomeSpeed is degrees per second for moves without a duration.
	HomeSpeed = 60.0

	// MaxOffset bounds the calibration trim.
	MaxOffset = 30

	commandQueue = 8
)

// Config wires a Task. X and Y are required; the rest default.
type Config struct {
	X, Y servo.Axis

	// Face receives battery updates and has its speech cleared after each
	// glance. May be nil.
	Face *face.Surface

	// Gauge is read after each glance. Defaults to power.None.
	Gauge power.Gauge

	// Stop samples the stop button; a press ends the task. May be nil.
	Stop func() bool

	// Rand picks poses. Defaults to a time-seeded PCG source.
	Rand *rand.Rand

	// Wait paces moves and dwells. Defaults to SleepWait.
	Wait Wait
}

// Task is the background motion loop. Run it on its own goroutine; other
// goroutines talk to it only through Send.
type Task struct {
	cfg  Config
	cmds chan Command

	x, y        float64
	offX, offY  int
	calibrating bool
	stopEdge    input.Edge
	glances     int
}

// New creates a Task with the head assumed at the neutral pose.
func New(cfg Config) *Task {
	if cfg.X == nil {
		cfg.X = servo.Nop{}
	}
	if cfg.Y == nil {
		cfg.Y = servo.Nop{}
	}
	if cfg.Gauge == nil {
		cfg.Gauge = power.None{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d6f74696f6e))
	}
	if cfg.Wait == nil {
		cfg.Wait = SleepWait
	}
	return &Task{
		cfg:  cfg,
		cmds: make(chan Command, commandQueue),
		x:    Neutral,
		y:    Neutral,
	}
}

// Send queues c without blocking. It reports false when the queue is full
// and the command was dropped.
func (t *Task) Send(c Command) bool {
	select {
	case t.cmds <- c:
		return true
	default:
		log.Printf("motion: command queue full, dropping %T", c)
		return false
	}
}

// Run animates until the stop button is pressed (returns nil) or ctx ends
// (returns ctx.Err()).
func (t *Task) Run(ctx context.Context) error {
	t.set(t.x, t.y)
	log.Printf("motion: started")

	for {
		if !t.drain(ctx) {
			return t.exit(ctx)
		}

		if t.calibrating {
			t.pollStop()
			if !t.pause(ctx, StepInterval) {
				return t.exit(ctx)
			}
			continue
		}

		x := float64(minX + t.cfg.Rand.IntN(spanX))
		y := float64(minY + t.cfg.Rand.IntN(spanY))
		if t.pollStop() {
			log.Printf("motion: stop button pressed after %d glances", t.glances)
			return nil
		}
		k := time.Duration(t.cfg.Rand.IntN(10))

		if !t.moveTo(ctx, x, y, baseMove+stepMove*k) {
			return t.exit(ctx)
		}
		if !t.pause(ctx, baseDwell+stepDwell*k) {
			return t.exit(ctx)
		}
		t.glances++

		if t.cfg.Face != nil {
			if r, err := t.cfg.Gauge.Read(); err == nil {
				t.cfg.Face.SetBatteryStatus(r.Charging, r.Level)
			}
			t.cfg.Face.SetSpeechText("")
		}
	}
}

// Glances returns the number of completed random moves.
func (t *Task) Glances() int {
	return t.glances
}

func (t *Task) exit(ctx context.Context) error {
	log.Printf("motion: stopped: %v", ctx.Err())
	return ctx.Err()
}

func (t *Task) pollStop() bool {
	level := false
	if t.cfg.Stop != nil {
		level = t.cfg.Stop()
	}
	t.stopEdge.Observe(level)
	return t.stopEdge.Rose() && !t.calibrating
}

// drain applies every queued command.
func (t *Task) drain(ctx context.Context) bool {
	for {
		select {
		case c := <-t.cmds:
			if !t.apply(ctx, c) {
				return false
			}
		default:
			return true
		}
	}
}

func (t *Task) apply(ctx context.Context, c Command) bool {
	switch c := c.(type) {
	case Home:
		return t.home(ctx)
	case Calibrate:
		t.calibrating = c.On
		if c.On {
			t.offX, t.offY = 0, 0
			log.Printf("motion: calibration started")
			return t.home(ctx)
		}
		log.Printf("motion: calibration finished: offset x=%d y=%d", t.offX, t.offY)
	case Offset:
		t.offX = mathx.Clamp(c.X, -MaxOffset, MaxOffset)
		t.offY = mathx.Clamp(c.Y, -MaxOffset, MaxOffset)
		if t.calibrating {
			t.set(Neutral, Neutral)
		}
	}
	return true
}

// home moves to the neutral pose at HomeSpeed.
func (t *Task) home(ctx context.Context) bool {
	dist := max(mathx.Abs(Neutral-t.x), mathx.Abs(Neutral-t.y))
	dur := time.Duration(dist / HomeSpeed * float64(time.Second))
	return t.moveTo(ctx, Neutral, Neutral, dur)
}

func (t *Task) moveTo(ctx context.Context, x, y float64, dur time.Duration) bool {
	return ramp(ctx, t.x, t.y, x, y, dur, t.cfg.Wait, t.set)
}

// pause waits for d in StepInterval slices, ending early when a command is
// queued.
func (t *Task) pause(ctx context.Context, d time.Duration) bool {
	for d > 0 {
		if len(t.cmds) > 0 {
			return true
		}
		slice := min(d, StepInterval)
		if !t.cfg.Wait(ctx, slice) {
			return false
		}
		d -= slice
	}
	return true
}

// set writes the pose plus trim, clamped to the servo range.
func (t *Task) set(x, y float64) {
	t.x, t.y = x, y
	if err := t.cfg.X.SetDegrees(mathx.Clamp(x+float64(t.offX), 0, 180)); err != nil {
		log.Printf("motion: %v", err)
	}
	if err := t.cfg.Y.SetDegrees(mathx.Clamp(y+float64(t.offY), 0, 180)); err != nil {
		log.Printf("motion: %v", err)
	}
}
