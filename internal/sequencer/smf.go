package sequencer

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/sweeney/deskbot/internal/midiport"
	"github.com/sweeney/deskbot/internal/storage"
)

// ccAllNotesOff is the channel mode message that releases every note.
const ccAllNotesOff = 123

// scheduled is one channel message at its absolute song time.
type scheduled struct {
	at  time.Duration
	msg midi.Message
}

// SMF is an Engine that plays Standard MIDI Files from storage to a MIDI
// port. Tracks are merged into one time-ordered schedule; the file's tempo
// map is resolved at load time.
type SMF struct {
	tick   time.Duration
	store  storage.Store
	port   midiport.Port
	onNote NoteFunc

	name   string
	events []scheduled
	length time.Duration
	shift  uint8
	pos    int
	clock  time.Duration
	status Status
	loaded bool
	ended  bool
	gates  [16][128]bool
}

// NewFactory returns a Factory producing SMF engines that read from store,
// write to port and report notes to onNote (which may be nil).
func NewFactory(store storage.Store, port midiport.Port, onNote NoteFunc) Factory {
	return func(tick time.Duration) (Engine, error) {
		return NewSMF(tick, store, port, onNote)
	}
}

// NewSMF creates an engine and opens the transport.
func NewSMF(tick time.Duration, store storage.Store, port midiport.Port, onNote NoteFunc) (*SMF, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("init sequencer: invalid tick %v", tick)
	}
	if err := port.Open(); err != nil {
		return nil, fmt.Errorf("init sequencer: %w", err)
	}
	return &SMF{
		tick:   tick,
		store:  store,
		port:   port,
		onNote: onNote,
	}, nil
}

// LoadFile decodes name and builds the schedule. Any previous song is
// discarded; the caller is expected to have silenced it.
func (e *SMF) LoadFile(name string, chOffset int) error {
	if e.ended {
		return ErrEnded
	}
	e.loaded = false
	e.events = nil
	e.length = 0
	e.status = Stopped
	e.ResetTrackTables()

	f, err := e.store.Open(name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	defer f.Close()

	if !hasHeader(f) {
		return fmt.Errorf("decode %s: not a standard MIDI file", name)
	}
	data, err := storage.ReadAll(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	shift := uint8(((chOffset % 16) + 16) % 16)
	var events []scheduled
	var length time.Duration
	for _, tr := range s.Tracks {
		var abs int64
		for _, ev := range tr {
			abs += int64(ev.Delta)
			raw := []byte(ev.Message)
			// Channel voice messages only; meta and sysex stay in the file.
			if len(raw) == 0 || raw[0] < 0x80 || raw[0] >= 0xF0 {
				continue
			}
			msg := make(midi.Message, len(raw))
			copy(msg, raw)
			msg[0] = msg[0]&0xF0 | (msg[0]+shift)&0x0F
			events = append(events, scheduled{
				at:  time.Duration(s.TimeAt(abs)) * time.Microsecond,
				msg: msg,
			})
		}
		// The last event of a track is End-of-Track; trailing rests count.
		if end := time.Duration(s.TimeAt(abs)) * time.Microsecond; end > length {
			length = end
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })

	e.name = name
	e.events = events
	e.length = length
	e.shift = shift
	e.loaded = true
	return nil
}

// hasHeader checks for the "MThd" chunk id at the start of f.
func hasHeader(f *storage.File) bool {
	b, ok := f.ByteAt(0)
	if !ok || b != 'M' {
		return false
	}
	for _, want := range []byte("Thd") {
		if b, ok := f.NextByte(); !ok || b != want {
			return false
		}
	}
	return true
}

// TickProc advances the song clock by one tick and sends every event now due.
func (e *SMF) TickProc() Status {
	if e.ended || !e.loaded || e.status != Playing {
		return e.status
	}
	e.clock += e.tick
	for e.pos < len(e.events) && e.events[e.pos].at <= e.clock {
		e.send(e.events[e.pos].msg)
		e.pos++
	}
	if e.pos >= len(e.events) && e.clock >= e.length {
		e.status = Stopped
	}
	return e.status
}

func (e *SMF) send(msg midi.Message) {
	// Transport errors are the UART's problem; musical time keeps moving.
	e.port.Write(msg)

	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		e.gates[ch][key] = true
		if e.onNote != nil {
			e.onNote(key, e.songChannel(ch), true)
		}
	case msg.GetNoteEnd(&ch, &key):
		e.gates[ch][key] = false
		if e.onNote != nil {
			e.onNote(key, e.songChannel(ch), false)
		}
	}
}

// songChannel undoes the load-time channel offset.
func (e *SMF) songChannel(ch uint8) uint8 {
	return (ch - e.shift) & 0x0F
}

// Status returns the transport state.
func (e *SMF) Status() Status {
	return e.status
}

// Start begins playback from the current position.
func (e *SMF) Start() {
	if e.ended || !e.loaded {
		return
	}
	e.status = Playing
}

// Stop pauses playback.
func (e *SMF) Stop() {
	e.status = Stopped
}

// AllNotesOff releases every gated note, then sends All Notes Off on every
// channel for notes the engine did not start.
func (e *SMF) AllNotesOff() error {
	var first error
	write := func(msg midi.Message) {
		if _, err := e.port.Write(msg); err != nil && first == nil {
			first = fmt.Errorf("all notes off: %w", err)
		}
	}
	for ch := range e.gates {
		for key, on := range e.gates[ch] {
			if !on {
				continue
			}
			e.gates[ch][key] = false
			write(midi.NoteOff(uint8(ch), uint8(key)))
			if e.onNote != nil {
				e.onNote(uint8(key), e.songChannel(uint8(ch)), false)
			}
		}
	}
	for ch := uint8(0); ch < 16; ch++ {
		write(midi.ControlChange(ch, ccAllNotesOff, 0))
	}
	return first
}

// ResetTrackTables rewinds to the start of the song.
func (e *SMF) ResetTrackTables() {
	e.pos = 0
	e.clock = 0
}

// End releases the schedule. The engine cannot be reused.
func (e *SMF) End() error {
	e.ended = true
	e.loaded = false
	e.events = nil
	e.length = 0
	e.status = Stopped
	return nil
}

// Name returns the loaded file name.
func (e *SMF) Name() string {
	return e.name
}

// Length returns the song duration up to the latest End-of-Track.
func (e *SMF) Length() time.Duration {
	return e.length
}
