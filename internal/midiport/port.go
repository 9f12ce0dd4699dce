// Package midiport provides the outbound MIDI transport used by the sequencer.
package midiport

// DefaultBaud is the MIDI 1.0 DIN current-loop rate.
const DefaultBaud = 31250

// Port writes raw MIDI bytes to an external instrument.
type Port interface {
	// Open prepares the transport. Calling Open on an open port is a no-op.
	Open() error

	// Close releases the transport.
	Close() error

	// WriteByte sends a single byte.
	WriteByte(b byte) error

	// Write sends a buffer and returns the number of bytes written.
	Write(p []byte) (int, error)
}

// Discard is a Port that accepts and drops everything. It keeps playback
// (and the mouth animation) running when the UART is unavailable.
type Discard struct{}

func (Discard) Open() error                 { return nil }
func (Discard) Close() error                { return nil }
func (Discard) WriteByte(byte) error        { return nil }
func (Discard) Write(p []byte) (int, error) { return len(p), nil }
