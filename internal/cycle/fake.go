package cycle

import (
	"sync"

	"github.com/sweeney/deskbot/internal/motion"
)

// FakePlayer records transport calls.
type FakePlayer struct {
	// Calls lists "tick", "toggle" and "skip" in order.
	Calls []string

	// EndEvery, if > 0, reports end of song on every EndEvery-th tick.
	EndEvery int

	PlayingState bool
	Unavailable  bool
	TrackName    string

	ticks int
}

// TickAdvance records a tick.
func (f *FakePlayer) TickAdvance() bool {
	f.Calls = append(f.Calls, "tick")
	f.ticks++
	return f.EndEvery > 0 && f.ticks%f.EndEvery == 0
}

// TogglePlayStop flips the play state.
func (f *FakePlayer) TogglePlayStop() {
	f.Calls = append(f.Calls, "toggle")
	f.PlayingState = !f.PlayingState
}

// SwitchTrack records a skip.
func (f *FakePlayer) SwitchTrack() {
	f.Calls = append(f.Calls, "skip")
}

// Playing reports the play state.
func (f *FakePlayer) Playing() bool { return f.PlayingState }

// Available reports whether playback is available.
func (f *FakePlayer) Available() bool { return !f.Unavailable }

// Track returns TrackName.
func (f *FakePlayer) Track() string { return f.TrackName }

// Count returns how many times op was called.
func (f *FakePlayer) Count(op string) int {
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// FakeMover records motion commands.
type FakeMover struct {
	mu       sync.Mutex
	Commands []motion.Command
}

// Send records c.
func (f *FakeMover) Send(c motion.Command) bool {
	f.mu.Lock()
	f.Commands = append(f.Commands, c)
	f.mu.Unlock()
	return true
}
