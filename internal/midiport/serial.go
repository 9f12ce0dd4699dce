package midiport

import (
	"fmt"
	"log"
	"sync"

	"go.bug.st/serial"
)

// Serial is a MIDI port on a UART.
type Serial struct {
	mu     sync.Mutex
	device string
	baud   int
	port   serial.Port
}

// NewSerial returns a port for device at baud. The device is not opened
// until Open.
func NewSerial(device string, baud int) *Serial {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &Serial{device: device, baud: baud}
}

// Open opens the UART in 8N1 mode.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	mode := &serial.Mode{
		BaudRate: s.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(s.device, mode)
	if err != nil {
		return fmt.Errorf("open midi port %s: %w", s.device, err)
	}
	s.port = p
	log.Printf("midi: port %s opened at %d baud", s.device, s.baud)
	return nil
}

// Close closes the UART.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("close midi port: %w", err)
	}
	return nil
}

// WriteByte sends one byte.
func (s *Serial) WriteByte(b byte) error {
	_, err := s.Write([]byte{b})
	return err
}

// Write sends p.
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return 0, fmt.Errorf("midi port %s not open", s.device)
	}
	n, err := s.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("write midi: %w", err)
	}
	return n, nil
}
