// Package face holds the telemetry the avatar face is drawn from: mouth
// opening, speech bubble text and battery indicator.
//
// The Surface is written by two execution contexts without a lock: the main
// cycle's note callback writes the mouth, and the motion task writes speech
// and battery (the main cycle also writes speech for short notices). Every
// field is individually atomic, so a reader never sees a torn value, but the
// fields are not updated together and a write from one context can overwrite
// a write from the other. The consequence is a cosmetic glitch for one
// refresh; taking a lock here would put the motion task in the tick path.
package face

import (
	"math"
	"sync/atomic"

	"github.com/sweeney/deskbot/internal/mathx"
)

// Mouth openings used by the note mapping.
const (
	MouthClosed float32 = 0.0
	MouthWide   float32 = 1.1 // melody channel
	MouthHalf   float32 = 0.7 // harmony channel
)

// Channels whose notes move the mouth.
const (
	MelodyChannel  = 0
	HarmonyChannel = 2
)

// Battery is the last reported charge state.
type Battery struct {
	Known    bool
	Charging bool
	Level    int // percent, 0..100
}

// Snapshot is a point-in-time copy of the surface. The fields are read one
// after another, not atomically as a group.
type Snapshot struct {
	Mouth       float32
	Speech      string
	Battery     Battery
	BatteryIcon bool
}

// Surface is the shared face state. The zero value is a closed mouth, no
// speech and an unknown battery.
type Surface struct {
	mouth       atomic.Uint32 // math.Float32bits
	speech      atomic.Pointer[string]
	battery     atomic.Uint32 // bit 31 known, bit 30 charging, low byte level
	batteryIcon atomic.Bool
}

// New creates a Surface. showBattery selects whether the battery icon is
// drawn; platforms without a fuel gauge hide it.
func New(showBattery bool) *Surface {
	s := &Surface{}
	s.batteryIcon.Store(showBattery)
	return s
}

// SetMouthOpenRatio sets the mouth opening.
func (s *Surface) SetMouthOpenRatio(r float32) {
	s.mouth.Store(math.Float32bits(r))
}

// MouthOpenRatio returns the mouth opening.
func (s *Surface) MouthOpenRatio() float32 {
	return math.Float32frombits(s.mouth.Load())
}

// SetSpeechText sets the speech bubble; "" hides it.
func (s *Surface) SetSpeechText(text string) {
	s.speech.Store(&text)
}

// SpeechText returns the speech bubble text.
func (s *Surface) SpeechText() string {
	if p := s.speech.Load(); p != nil {
		return *p
	}
	return ""
}

// SetBatteryStatus records the charge state. level is clamped to 0..100.
func (s *Surface) SetBatteryStatus(charging bool, level int) {
	level = mathx.Clamp(level, 0, 100)
	v := uint32(1<<31) | uint32(level)
	if charging {
		v |= 1 << 30
	}
	s.battery.Store(v)
}

// BatteryStatus returns the last recorded charge state.
func (s *Surface) BatteryStatus() Battery {
	v := s.battery.Load()
	if v&(1<<31) == 0 {
		return Battery{}
	}
	return Battery{Known: true, Charging: v&(1<<30) != 0, Level: int(v & 0xff)}
}

// SetBatteryIcon shows or hides the battery icon.
func (s *Surface) SetBatteryIcon(show bool) {
	s.batteryIcon.Store(show)
}

// Snapshot reads every field.
func (s *Surface) Snapshot() Snapshot {
	return Snapshot{
		Mouth:       s.MouthOpenRatio(),
		Speech:      s.SpeechText(),
		Battery:     s.BatteryStatus(),
		BatteryIcon: s.batteryIcon.Load(),
	}
}

// OnNote maps sequencer note events to mouth movement: melody notes open
// the mouth wide, harmony notes half way, and either release closes it.
// Other channels leave the mouth alone. Its signature matches
// sequencer.NoteFunc.
func (s *Surface) OnNote(note, channel uint8, pressed bool) {
	switch channel {
	case MelodyChannel:
		if pressed {
			s.SetMouthOpenRatio(MouthWide)
		} else {
			s.SetMouthOpenRatio(MouthClosed)
		}
	case HarmonyChannel:
		if pressed {
			s.SetMouthOpenRatio(MouthHalf)
		} else {
			s.SetMouthOpenRatio(MouthClosed)
		}
	}
}

// CloseMouth closes the mouth, for use when playback is silenced.
func (s *Surface) CloseMouth() {
	s.SetMouthOpenRatio(MouthClosed)
}
