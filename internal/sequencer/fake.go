package sequencer

import (
	"fmt"
	"sync"
	"time"
)

// Call is one recorded engine operation.
type Call struct {
	Engine int    // FakeEngine.ID
	Op     string // "init", "load", "tick", "start", "stop", "alloff", "reset", "end"
	Arg    string // file name for "load"
}

func (c Call) String() string {
	if c.Arg != "" {
		return fmt.Sprintf("%d:%s(%s)", c.Engine, c.Op, c.Arg)
	}
	return fmt.Sprintf("%d:%s", c.Engine, c.Op)
}

// FakeFactory builds FakeEngines and records every operation on all of them
// in one ordered log, so tests can assert cross-engine ordering.
type FakeFactory struct {
	mu sync.Mutex

	// Calls is the ordered operation log. "tick" is not recorded unless
	// RecordTicks is set.
	Calls []Call

	// Engines lists every engine built, in order.
	Engines []*FakeEngine

	// InitError, if set, is returned by New instead of an engine.
	InitError error

	// EndAfter, if > 0, makes each new engine report end of song on that
	// TickProc call while playing.
	EndAfter int

	// LoadErrors maps file names to errors returned by LoadFile.
	LoadErrors map[string]error

	// OnTick, if set, is called by every engine on each playing tick with
	// the engine and its tick count, before the end-of-song check.
	OnTick func(e *FakeEngine, n int)

	// RecordTicks adds "tick" entries to Calls.
	RecordTicks bool
}

// NewFakeFactory creates a FakeFactory.
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{LoadErrors: make(map[string]error)}
}

// New implements Factory.
func (f *FakeFactory) New(tick time.Duration) (Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitError != nil {
		return nil, f.InitError
	}
	e := &FakeEngine{ID: len(f.Engines) + 1, Tick: tick, EndAfter: f.EndAfter, factory: f}
	f.Engines = append(f.Engines, e)
	f.Calls = append(f.Calls, Call{Engine: e.ID, Op: "init"})
	return e, nil
}

func (f *FakeFactory) record(e *FakeEngine, op, arg string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, Call{Engine: e.ID, Op: op, Arg: arg})
	f.mu.Unlock()
}

// Ops returns the recorded log as strings.
func (f *FakeFactory) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.String()
	}
	return out
}

// Live returns the engines that have not been ended.
func (f *FakeFactory) Live() []*FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*FakeEngine
	for _, e := range f.Engines {
		if !e.Ended {
			out = append(out, e)
		}
	}
	return out
}

func (e *FakeEngine) String() string {
	return fmt.Sprintf("engine %d (%s)", e.ID, e.Name)
}

// Last returns the most recently built engine, or nil.
func (f *FakeFactory) Last() *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Engines) == 0 {
		return nil
	}
	return f.Engines[len(f.Engines)-1]
}

// FakeEngine is a scripted Engine.
type FakeEngine struct {
	ID       int
	Tick     time.Duration
	Name     string
	ChOffset int
	Ticks    int // playing ticks processed since the last reset
	EndAfter int
	Ended    bool

	status  Status
	loaded  bool
	factory *FakeFactory
}

// LoadFile records the load.
func (e *FakeEngine) LoadFile(name string, chOffset int) error {
	e.factory.record(e, "load", name)
	if e.Ended {
		return ErrEnded
	}
	if err := e.factory.LoadErrors[name]; err != nil {
		return err
	}
	e.Name = name
	e.ChOffset = chOffset
	e.loaded = true
	return nil
}

// TickProc counts the tick and ends the song after EndAfter ticks.
func (e *FakeEngine) TickProc() Status {
	if e.factory.RecordTicks {
		e.factory.record(e, "tick", "")
	}
	if e.Ended || e.status != Playing {
		return e.status
	}
	e.Ticks++
	if e.factory.OnTick != nil {
		e.factory.OnTick(e, e.Ticks)
	}
	if e.EndAfter > 0 && e.Ticks >= e.EndAfter {
		e.status = Stopped
	}
	return e.status
}

// Status returns the transport state.
func (e *FakeEngine) Status() Status {
	return e.status
}

// Start records the start.
func (e *FakeEngine) Start() {
	e.factory.record(e, "start", "")
	if e.loaded && !e.Ended {
		e.status = Playing
	}
}

// Stop records the stop.
func (e *FakeEngine) Stop() {
	e.factory.record(e, "stop", "")
	e.status = Stopped
}

// AllNotesOff records the silence.
func (e *FakeEngine) AllNotesOff() error {
	e.factory.record(e, "alloff", "")
	return nil
}

// ResetTrackTables records the rewind.
func (e *FakeEngine) ResetTrackTables() {
	e.factory.record(e, "reset", "")
	e.Ticks = 0
}

// End records the release.
func (e *FakeEngine) End() error {
	e.factory.record(e, "end", "")
	e.Ended = true
	e.status = Stopped
	return nil
}
