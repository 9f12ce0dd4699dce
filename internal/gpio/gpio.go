// Package gpio provides button input and digital output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Button identifies one of the three front buttons.
type Button int

const (
	ButtonA Button = iota // left: neutral pose, calibration
	ButtonB               // middle: play/stop, aux rail
	ButtonC               // right: skip, firmware copy, motion stop
	NumButtons
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonC:
		return "C"
	}
	return "?"
}

// Levels holds the logical state of every button; true = pressed.
type Levels [NumButtons]bool

// Reader reads button levels.
// Implementations must be safe for concurrent use: the main cycle and the
// motion task poll the same buttons independently.
type Reader interface {
	// Read returns the logical (pressed = true) level of every button.
	Read() (Levels, error)

	// Close releases GPIO resources.
	Close() error
}

// Output drives a single digital output line (status LED, aux power rail).
type Output interface {
	// Set drives the line; true = active.
	Set(on bool) error

	// Close releases the line.
	Close() error
}

// Pin defaults (BCM numbering).
const (
	DefaultPinA   = 5
	DefaultPinB   = 6
	DefaultPinC   = 13
	DefaultPinLED = 26
	DefaultPinExt = 16
)

// LevelFunc returns a poller for one button. Read errors report released.
func LevelFunc(r Reader, b Button) func() bool {
	return func() bool {
		levels, err := r.Read()
		if err != nil {
			return false
		}
		return levels[b]
	}
}
