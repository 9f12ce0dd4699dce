// Package cycle is the main cooperative loop: one non-blocking pass runs
// the music tick (with catch-up), button handling, the status LED and the
// screen refresh, each on its own drift-free interval.
package cycle

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/sweeney/deskbot/internal/face"
	"github.com/sweeney/deskbot/internal/gpio"
	"github.com/sweeney/deskbot/internal/input"
	"github.com/sweeney/deskbot/internal/mathx"
	"github.com/sweeney/deskbot/internal/motion"
	"github.com/sweeney/deskbot/internal/power"
	"github.com/sweeney/deskbot/internal/status"
	"github.com/sweeney/deskbot/internal/trigger"
)

// Defaults.
const (
	DefaultTick            = time.Millisecond
	DefaultMaxCatchUp      = 256
	DefaultIdle            = 200 * time.Microsecond
	DefaultUIPeriod        = 100 * time.Millisecond
	DefaultIndicatorPeriod = 100 * time.Millisecond
	DefaultScreenPeriod    = 500 * time.Millisecond

	// IndicatorPattern is the LED blink pattern while playing, one bit per
	// indicator period.
	IndicatorPattern uint16 = 0x0f0f

	calibrateHold = 2 * time.Second
	imageHold     = 5 * time.Second
	noticeTimeout = 2 * time.Second
)

// Player is the playback controller as seen by the loop.
type Player interface {
	TickAdvance() bool
	TogglePlayStop()
	SwitchTrack()
	Playing() bool
	Available() bool
	Track() string
}

// Mover accepts motion commands without blocking.
type Mover interface {
	Send(c motion.Command) bool
}

// Clocks are the time sources of the loop.
type Clocks struct {
	Micros trigger.Clock
	Millis trigger.Clock
	Now    func() time.Time
}

// Config sets the loop timing. Zero values select the defaults, except
// MaxCatchUp where a negative value means unbounded.
type Config struct {
	Tick            time.Duration
	MaxCatchUp      int
	UIPeriod        time.Duration
	IndicatorPeriod time.Duration
	ScreenPeriod    time.Duration

	// Idle runs between passes. Defaults to sleeping IdleSleep
	// (DefaultIdle when zero), or runtime.Gosched when IdleSleep is
	// negative.
	Idle      func()
	IdleSleep time.Duration

	Clocks Clocks
}

// Deps are the loop's collaborators. Every field may be nil except
// Buttons.
type Deps struct {
	Player  Player
	Buttons gpio.Reader
	LED     gpio.Output
	Rail    *power.Rail
	Face    *face.Surface
	Motion  Mover
	Tracker *status.Tracker

	// SaveImage is started when C is held for five seconds.
	SaveImage func()
}

// Loop owns the periodic duties of the main goroutine.
// Not safe for concurrent use.
type Loop struct {
	deps Deps
	cfg  Config

	tick        *trigger.Interval
	ui          *trigger.Interval
	indicator   *trigger.Interval
	screen      *trigger.Interval
	notice      *trigger.Interval
	noticeArmed bool

	buttons    [gpio.NumButtons]*input.Button
	pattern    uint16
	ledOn      bool
	ledSet     bool
	readFailed bool
	overloaded bool

	calibrating bool
	calibrateX  bool
	offX, offY  int

	counters status.Counters
}

// New creates a Loop. Intervals start counting from now.
func New(deps Deps, cfg Config) *Loop {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.MaxCatchUp == 0 {
		cfg.MaxCatchUp = DefaultMaxCatchUp
	}
	if cfg.UIPeriod <= 0 {
		cfg.UIPeriod = DefaultUIPeriod
	}
	if cfg.IndicatorPeriod <= 0 {
		cfg.IndicatorPeriod = DefaultIndicatorPeriod
	}
	if cfg.ScreenPeriod <= 0 {
		cfg.ScreenPeriod = DefaultScreenPeriod
	}
	if cfg.Clocks.Micros == nil {
		cfg.Clocks.Micros = trigger.MicrosClock
	}
	if cfg.Clocks.Millis == nil {
		cfg.Clocks.Millis = trigger.MillisClock
	}
	if cfg.Clocks.Now == nil {
		cfg.Clocks.Now = time.Now
	}
	if cfg.Idle == nil {
		if d := idleSleep(cfg.IdleSleep); d > 0 {
			cfg.Idle = func() { time.Sleep(d) }
		} else {
			cfg.Idle = runtime.Gosched
		}
	}

	ms := func(d time.Duration) uint32 { return uint32(d.Milliseconds()) }
	l := &Loop{
		deps:      deps,
		cfg:       cfg,
		tick:      trigger.New(uint32(cfg.Tick.Microseconds()), true, cfg.Clocks.Micros),
		ui:        trigger.New(ms(cfg.UIPeriod), true, cfg.Clocks.Millis),
		indicator: trigger.New(ms(cfg.IndicatorPeriod), true, cfg.Clocks.Millis),
		screen:    trigger.New(ms(cfg.ScreenPeriod), true, cfg.Clocks.Millis),
		notice:    trigger.New(ms(noticeTimeout), false, cfg.Clocks.Millis),
		pattern:   IndicatorPattern,
	}
	for i := range l.buttons {
		l.buttons[i] = input.NewButton(0)
	}
	return l
}

// Run calls Step until ctx ends, idling between passes.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("cycle: started: tick=%v max-catch-up=%d", l.cfg.Tick, l.cfg.MaxCatchUp)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.Step()
		l.cfg.Idle()
	}
}

// Step is one non-blocking pass. Duties run in a fixed order: music tick,
// buttons, indicator, screen, notice timeout.
func (l *Loop) Step() {
	l.counters.Passes++

	l.tickMusic()
	if l.ui.Check() {
		l.pollButtons()
	}
	if l.indicator.Check() {
		l.updateIndicator()
	}
	if l.screen.Check() {
		l.Refresh()
	}
	if l.noticeArmed && l.notice.Check() {
		l.noticeArmed = false
		l.say("")
	}
}

// tickMusic processes the first due tick and then every tick that is still
// pending, up to the catch-up budget. Ticks over budget stay due and are
// processed on the next pass.
func (l *Loop) tickMusic() {
	if !l.tick.Check() {
		return
	}

	n := 0
	for {
		n++
		l.counters.Ticks++
		if l.deps.Player != nil && l.deps.Player.TickAdvance() {
			l.counters.SongsEnded++
		}
		if l.cfg.MaxCatchUp > 0 && n >= l.cfg.MaxCatchUp {
			break
		}
		if !l.tick.Check() {
			break
		}
	}

	l.counters.CatchUpTicks += uint64(n - 1)
	if n > l.counters.MaxBurst {
		l.counters.MaxBurst = n
	}

	if l.cfg.MaxCatchUp > 0 && n >= l.cfg.MaxCatchUp {
		if behind := l.tick.Behind(); behind > 0 {
			l.counters.Overloads++
			if !l.overloaded {
				l.overloaded = true
				log.Printf("cycle: music tick behind by %d periods after %d ticks in one pass", behind, n)
			}
			return
		}
	}
	if l.overloaded {
		l.overloaded = false
		log.Printf("cycle: music tick caught up")
	}
}

func (l *Loop) pollButtons() {
	levels, err := l.deps.Buttons.Read()
	if err != nil {
		if !l.readFailed {
			log.Printf("cycle: button read error: %v", err)
			l.readFailed = true
		}
		return
	}
	if l.readFailed {
		log.Printf("cycle: button read recovered")
		l.readFailed = false
	}

	now := l.cfg.Clocks.Now()
	for i, b := range l.buttons {
		b.Update(levels[i], now)
	}

	if l.calibrating {
		l.calibrationButtons()
		return
	}
	l.normalButtons()
}

func (l *Loop) normalButtons() {
	a, b, c := l.buttons[gpio.ButtonA], l.buttons[gpio.ButtonB], l.buttons[gpio.ButtonC]

	if a.PressedFor(calibrateHold) {
		l.startCalibration()
	} else if a.WasPressed() {
		l.send(motion.Home{})
	}

	if b.WasPressed() && l.deps.Player != nil {
		l.counters.Toggles++
		l.deps.Player.TogglePlayStop()
	}
	if b.WasDoubleClicked() {
		l.toggleRail()
	}

	if c.PressedFor(imageHold) {
		if l.deps.SaveImage != nil {
			log.Printf("cycle: saving program image")
			go l.deps.SaveImage()
		}
	} else if c.WasPressed() && l.deps.Player != nil {
		l.counters.Skips++
		l.deps.Player.SwitchTrack()
	}
}

func (l *Loop) calibrationButtons() {
	a, b, c := l.buttons[gpio.ButtonA], l.buttons[gpio.ButtonB], l.buttons[gpio.ButtonC]

	if b.PressedFor(calibrateHold) {
		l.stopCalibration()
		return
	}

	changed := false
	if a.WasPressed() {
		l.nudge(-1)
		changed = true
	}
	if b.WasPressed() {
		l.calibrateX = !l.calibrateX
		changed = true
	}
	if c.WasPressed() {
		l.nudge(+1)
		changed = true
	}
	if changed {
		l.send(motion.Offset{X: l.offX, Y: l.offY})
		l.showOffset()
	}
}

func (l *Loop) startCalibration() {
	l.calibrating = true
	l.calibrateX = true
	l.offX, l.offY = 0, 0
	l.noticeArmed = false
	log.Printf("cycle: calibration started")
	l.send(motion.Calibrate{On: true})
	l.showOffset()
}

func (l *Loop) stopCalibration() {
	l.calibrating = false
	log.Printf("cycle: calibration finished: x=%d y=%d", l.offX, l.offY)
	l.send(motion.Calibrate{On: false})
	l.say("")
}

func (l *Loop) nudge(delta int) {
	if l.calibrateX {
		l.offX = mathx.Clamp(l.offX+delta, -motion.MaxOffset, motion.MaxOffset)
	} else {
		l.offY = mathx.Clamp(l.offY+delta, -motion.MaxOffset, motion.MaxOffset)
	}
}

func (l *Loop) showOffset() {
	if l.calibrateX {
		l.say(fmt.Sprintf("X:%d:BtnB:X/Y", l.offX))
	} else {
		l.say(fmt.Sprintf("Y:%d:BtnB:X/Y", l.offY))
	}
}

func (l *Loop) toggleRail() {
	if l.deps.Rail == nil {
		return
	}
	on, err := l.deps.Rail.Toggle()
	if err != nil {
		log.Printf("cycle: %v", err)
		return
	}
	log.Printf("cycle: aux rail on=%v", on)
	if on {
		l.say("ExtOutput On")
	} else {
		l.say("ExtOutput Off")
	}
	l.notice.Reset()
	l.noticeArmed = true
}

// updateIndicator rotates the blink pattern while playing and holds the LED
// off otherwise.
func (l *Loop) updateIndicator() {
	on := false
	if l.deps.Player != nil && l.deps.Player.Playing() {
		bit := l.pattern & 1
		l.pattern = l.pattern>>1 | bit<<15
		on = bit == 1
	}
	if l.deps.LED == nil || (l.ledSet && on == l.ledOn) {
		return
	}
	if err := l.deps.LED.Set(on); err != nil {
		log.Printf("cycle: led: %v", err)
		return
	}
	l.ledOn = on
	l.ledSet = true
}

// Refresh pushes the current state to the status tracker.
func (l *Loop) Refresh() {
	if l.deps.Tracker == nil {
		return
	}
	st := status.State{
		Calibrating: l.calibrating,
		Counters:    l.counters,
		Playback:    status.Playback{Status: "STOPPED"},
	}
	if p := l.deps.Player; p != nil {
		st.Playback.Available = p.Available()
		st.Playback.Track = p.Track()
		if p.Playing() {
			st.Playback.Status = "PLAYING"
		}
	}
	if l.deps.Face != nil {
		st.Face = l.deps.Face.Snapshot()
	}
	if l.deps.Rail != nil {
		st.Rail = l.deps.Rail.On()
	}
	l.deps.Tracker.Update(st)
}

// Counters returns the loop statistics.
func (l *Loop) Counters() status.Counters {
	return l.counters
}

// Calibrating reports whether offset calibration is active.
func (l *Loop) Calibrating() bool {
	return l.calibrating
}

func (l *Loop) send(c motion.Command) {
	if l.deps.Motion != nil {
		l.deps.Motion.Send(c)
	}
}

func (l *Loop) say(text string) {
	if l.deps.Face != nil {
		l.deps.Face.SetSpeechText(text)
	}
}

// idleSleep resolves the configured pause between passes. Zero selects
// DefaultIdle; a negative value means yield only and resolves to 0.
func idleSleep(d time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d == 0:
		return DefaultIdle
	}
	return d
}
