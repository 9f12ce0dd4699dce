package sequencer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/sweeney/deskbot/internal/midiport"
	"github.com/sweeney/deskbot/internal/storage"
)

// song encodes a one-track SMF at 96 ticks per quarter and the default
// 120 bpm, so 96 ticks = 500ms.
func song(t *testing.T) []byte {
	t.Helper()
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(96, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(2, 64, 90))
	tr.Add(96, midi.NoteOff(2, 64))
	tr.Close(0)
	return encode(t, tr)
}

// encode wraps tr in a 96 ticks per quarter SMF.
func encode(t *testing.T, tr smf.Track) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	if err := s.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("encode smf: %v", err)
	}
	return buf.Bytes()
}

type noteRec struct {
	note, ch uint8
	pressed  bool
}

func newTestSMF(t *testing.T) (*SMF, *midiport.FakePort, *[]noteRec) {
	t.Helper()
	store := storage.NewFakeStore(map[string][]byte{"/playdat0.mid": song(t)})
	port := midiport.NewFakePort()
	var notes []noteRec
	e, err := NewSMF(10*time.Millisecond, store, port, func(note, ch uint8, pressed bool) {
		notes = append(notes, noteRec{note, ch, pressed})
	})
	if err != nil {
		t.Fatalf("NewSMF: %v", err)
	}
	return e, port, &notes
}

func TestNewSMFInvalidTick(t *testing.T) {
	_, err := NewSMF(0, storage.NewFakeStore(nil), midiport.NewFakePort(), nil)
	if err == nil {
		t.Error("expected error for zero tick")
	}
}

func TestNewSMFOpensPort(t *testing.T) {
	_, port, _ := newTestSMF(t)
	if !port.Opened {
		t.Error("expected transport to be opened")
	}
}

func TestSMFPlaysToEnd(t *testing.T) {
	e, port, notes := newTestSMF(t)
	if err := e.LoadFile("/playdat0.mid", 0); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if d := e.Length() - time.Second; d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("Length: got %v, want 1s", e.Length())
	}

	// Not started: ticks do nothing.
	if st := e.TickProc(); st != Stopped {
		t.Fatalf("unstarted TickProc: got %v", st)
	}
	if len(port.Bytes) != 0 {
		t.Fatal("unstarted engine wrote MIDI")
	}

	e.Start()
	ticks := 0
	for e.TickProc() == Playing {
		ticks++
		if ticks > 1000 {
			t.Fatal("song never ended")
		}
	}
	ticks++ // the tick that reported Stopped
	if ticks < 100 || ticks > 101 {
		t.Errorf("song ended on tick %d, want 100", ticks)
	}

	want := []noteRec{{60, 0, true}, {60, 0, false}, {64, 2, true}, {64, 2, false}}
	if len(*notes) != len(want) {
		t.Fatalf("notes: got %v, want %v", *notes, want)
	}
	for i := range want {
		if (*notes)[i] != want[i] {
			t.Errorf("note %d: got %v, want %v", i, (*notes)[i], want[i])
		}
	}

	msgs := port.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 MIDI messages, got %d", len(msgs))
	}
	if !bytes.Equal(msgs[0], []byte{0x90, 60, 100}) {
		t.Errorf("first message: got % X", msgs[0])
	}
}

func TestSMFChannelOffset(t *testing.T) {
	e, port, notes := newTestSMF(t)
	if err := e.LoadFile("/playdat0.mid", 3); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	e.Start()
	e.TickProc()

	msgs := port.Messages()
	if len(msgs) != 1 || msgs[0][0] != 0x93 {
		t.Fatalf("expected note on for channel 3, got % X", port.Bytes)
	}
	// The face follows the song's own channels, not the wire channel.
	if (*notes)[0] != (noteRec{60, 0, true}) {
		t.Errorf("callback: got %v, want note 60 on channel 0", (*notes)[0])
	}

	e.AllNotesOff()
	if last := (*notes)[len(*notes)-1]; last != (noteRec{60, 0, false}) {
		t.Errorf("release callback: got %v, want note 60 on channel 0", last)
	}
}

// ticksUntilStopped starts e and counts TickProc calls up to and including
// the one that reports Stopped.
func ticksUntilStopped(t *testing.T, e *SMF) int {
	t.Helper()
	e.Start()
	for ticks := 1; ticks <= 10000; ticks++ {
		if e.TickProc() != Playing {
			return ticks
		}
	}
	t.Fatal("song never ended")
	return 0
}

func TestSMFEndOfTrackTiming(t *testing.T) {
	tempoOnly := func() smf.Track {
		var tr smf.Track
		tr.Add(0, smf.MetaTempo(120))
		tr.Close(192)
		return tr
	}
	trailingRest := func() smf.Track {
		var tr smf.Track
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(96, midi.NoteOff(0, 60))
		tr.Close(384)
		return tr
	}

	tests := []struct {
		name      string
		track     smf.Track
		wantLen   time.Duration
		wantTicks int // 10ms ticks
		wantNotes int
	}{
		{"trailing rest", trailingRest(), 2500 * time.Millisecond, 250, 2},
		{"meta only", tempoOnly(), time.Second, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewFakeStore(map[string][]byte{"/playdat0.mid": encode(t, tt.track)})
			var notes int
			e, err := NewSMF(10*time.Millisecond, store, midiport.NewFakePort(), func(uint8, uint8, bool) { notes++ })
			if err != nil {
				t.Fatal(err)
			}
			if err := e.LoadFile("/playdat0.mid", 0); err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if d := e.Length() - tt.wantLen; d < -time.Millisecond || d > time.Millisecond {
				t.Errorf("Length: got %v, want %v", e.Length(), tt.wantLen)
			}
			if got := ticksUntilStopped(t, e); got < tt.wantTicks || got > tt.wantTicks+1 {
				t.Errorf("song ended on tick %d, want %d", got, tt.wantTicks)
			}
			if notes != tt.wantNotes {
				t.Errorf("notes: got %d, want %d", notes, tt.wantNotes)
			}
		})
	}
}

func TestSMFRejectsMissingHeader(t *testing.T) {
	store := storage.NewFakeStore(map[string][]byte{
		"/playdat0.mid": []byte("RIFF0000"),
		"/playdat1.mid": []byte("MT"),
	})
	e, err := NewSMF(time.Millisecond, store, midiport.NewFakePort(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"/playdat0.mid", "/playdat1.mid"} {
		err := e.LoadFile(name, 0)
		if err == nil || !strings.Contains(err.Error(), "not a standard MIDI file") {
			t.Errorf("%s: got %v, want header error", name, err)
		}
	}
}

func TestSMFStopKeepsPosition(t *testing.T) {
	e, _, notes := newTestSMF(t)
	e.LoadFile("/playdat0.mid", 0)
	e.Start()
	for i := 0; i < 10; i++ {
		e.TickProc()
	}
	e.Stop()
	for i := 0; i < 100; i++ {
		if e.TickProc() != Stopped {
			t.Fatal("stopped engine advanced")
		}
	}
	e.Start()
	for i := 0; i < 45; i++ {
		e.TickProc()
	}
	// 55 playing ticks = 550ms: first note off and second note on are due.
	if len(*notes) != 3 {
		t.Errorf("expected 3 notes after resuming, got %v", *notes)
	}
}

func TestSMFAllNotesOff(t *testing.T) {
	e, port, notes := newTestSMF(t)
	e.LoadFile("/playdat0.mid", 0)
	e.Start()
	e.TickProc() // note 60 on

	before := len(port.Messages())
	if err := e.AllNotesOff(); err != nil {
		t.Fatalf("AllNotesOff: %v", err)
	}
	msgs := port.Messages()[before:]
	if len(msgs) != 17 {
		t.Fatalf("expected 1 note off + 16 CC, got %d messages", len(msgs))
	}
	if !bytes.Equal(msgs[0], []byte{0x80, 60, 0}) {
		t.Errorf("expected note off for 60, got % X", msgs[0])
	}
	for ch := 0; ch < 16; ch++ {
		m := msgs[1+ch]
		if m[0] != 0xB0|byte(ch) || m[1] != ccAllNotesOff {
			t.Errorf("channel %d: expected All Notes Off CC, got % X", ch, m)
		}
	}
	last := (*notes)[len(*notes)-1]
	if last != (noteRec{60, 0, false}) {
		t.Errorf("expected release callback for 60, got %v", last)
	}

	// Gates are cleared: a second call sends only the CCs.
	before = len(port.Messages())
	e.AllNotesOff()
	if n := len(port.Messages()) - before; n != 16 {
		t.Errorf("second AllNotesOff: expected 16 messages, got %d", n)
	}
}

func TestSMFAllNotesOffWriteError(t *testing.T) {
	e, port, _ := newTestSMF(t)
	port.WriteError = errors.New("uart gone")
	if err := e.AllNotesOff(); err == nil {
		t.Error("expected transport error to surface")
	}
}

func TestSMFResetRewinds(t *testing.T) {
	e, _, notes := newTestSMF(t)
	e.LoadFile("/playdat0.mid", 0)
	e.Start()
	for e.TickProc() == Playing {
	}
	e.ResetTrackTables()
	e.Start()
	e.TickProc()
	if len(*notes) != 5 || (*notes)[4] != (noteRec{60, 0, true}) {
		t.Errorf("expected replay from the top, got %v", *notes)
	}
}

func TestSMFLoadErrors(t *testing.T) {
	store := storage.NewFakeStore(map[string][]byte{"/playdat1.mid": []byte("not a midi file")})
	e, err := NewSMF(time.Millisecond, store, midiport.NewFakePort(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.LoadFile("/playdat0.mid", 0); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing file: expected ErrNotFound, got %v", err)
	}
	if err := e.LoadFile("/playdat1.mid", 0); err == nil {
		t.Error("expected decode error for garbage file")
	}
	e.Start()
	if e.Status() != Stopped {
		t.Error("engine without a song must not start")
	}
}

func TestSMFEnd(t *testing.T) {
	e, _, _ := newTestSMF(t)
	e.LoadFile("/playdat0.mid", 0)
	e.Start()
	if err := e.End(); err != nil {
		t.Fatal(err)
	}
	if e.Status() != Stopped {
		t.Error("ended engine should be stopped")
	}
	e.Start()
	if e.TickProc() != Stopped {
		t.Error("ended engine must not play")
	}
	if err := e.LoadFile("/playdat0.mid", 0); !errors.Is(err, ErrEnded) {
		t.Errorf("expected ErrEnded, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	store := storage.NewFakeStore(map[string][]byte{"/playdat0.mid": song(t)})
	f := NewFactory(store, midiport.NewFakePort(), nil)
	e, err := f(time.Millisecond)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := e.LoadFile("/playdat0.mid", 0); err != nil {
		t.Errorf("LoadFile: %v", err)
	}
}

func TestStatusString(t *testing.T) {
	if Playing.String() != "PLAYING" || Stopped.String() != "STOPPED" {
		t.Error("unexpected status names")
	}
}
