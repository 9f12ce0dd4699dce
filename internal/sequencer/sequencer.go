// Package sequencer defines the Standard MIDI File sequencer engine the
// playback controller drives, and provides an implementation on top of
// gitlab.com/gomidi/midi/v2/smf.
package sequencer

import (
	"errors"
	"time"
)

// Status is the engine's transport state.
type Status int

const (
	Stopped Status = iota
	Playing
)

func (s Status) String() string {
	if s == Playing {
		return "PLAYING"
	}
	return "STOPPED"
}

// NoteFunc is called by the engine during TickProc for every note event:
// pressed=true on note-on, false on note-off.
// channel is the channel as written in the song, before any load offset.
type NoteFunc func(note, channel uint8, pressed bool)

// Engine is one loaded song. Exactly one Engine is live at a time; End
// releases it and the handle must not be used afterwards.
type Engine interface {
	// LoadFile reads and schedules the named file. chOffset shifts every
	// channel message (mod 16) before it reaches the transport.
	LoadFile(name string, chOffset int) error

	// TickProc processes one tick's worth of scheduled events and returns
	// the resulting status. Stopped after Playing means the song ended.
	TickProc() Status

	// Status returns the current transport state.
	Status() Status

	// Start begins (or resumes) playback.
	Start()

	// Stop pauses playback, keeping the song position.
	Stop()

	// AllNotesOff silences every sounding note.
	AllNotesOff() error

	// ResetTrackTables rewinds scheduling to the start of the song.
	ResetTrackTables()

	// End releases the engine's resources.
	End() error
}

// Factory constructs an engine ticking every tick. A returned error means
// resource exhaustion or engine initialisation failure.
type Factory func(tick time.Duration) (Engine, error)

// ErrNotLoaded is returned when an operation needs a loaded song.
var ErrNotLoaded = errors.New("sequencer: no song loaded")

// ErrEnded is returned when a released engine is used.
var ErrEnded = errors.New("sequencer: engine ended")
