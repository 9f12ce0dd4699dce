// Package status provides a thread-safe status tracker for the deskbot daemon.
// The main cycle writes it at screen-refresh rate; HTTP handlers and the
// telemetry heartbeat read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/deskbot/internal/face"
)

// Playback is the controller state as shown on the screen.
type Playback struct {
	Available bool
	Status    string // "PLAYING" or "STOPPED"
	Track     string
}

// Counters are cumulative main cycle statistics.
type Counters struct {
	Passes       uint64 // Step calls
	Ticks        uint64 // music tick fires processed
	CatchUpTicks uint64 // ticks processed after the first in a pass
	MaxBurst     int    // most ticks processed in a single pass
	Overloads    uint64 // passes that hit the catch-up budget
	Toggles      uint64
	Skips        uint64
	SongsEnded   uint64
}

// Config contains daemon configuration for display.
type Config struct {
	TickUs      int64
	MaxCatchUp  int
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	StorageDir  string
	MIDIDevice  string
	Songs       int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Playback      Playback
	Face          face.Snapshot
	Rail          bool
	Calibrating   bool
	Counters      Counters
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// State is the part of the snapshot the main cycle owns.
type State struct {
	Playback    Playback
	Face        face.Snapshot
	Rail        bool
	Calibrating bool
	Counters    Counters
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the main cycle state. Called on every screen refresh.
func (t *Tracker) Update(s State) {
	t.mu.Lock()
	t.snap.Playback = s.Playback
	t.snap.Face = s.Face
	t.snap.Rail = s.Rail
	t.snap.Calibrating = s.Calibrating
	t.snap.Counters = s.Counters
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
