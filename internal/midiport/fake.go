package midiport

import "sync"

// FakePort records every byte written, for test assertions.
type FakePort struct {
	mu sync.Mutex

	// Bytes is the concatenation of everything written.
	Bytes []byte

	// Writes holds each Write/WriteByte call as a separate chunk.
	Writes [][]byte

	// WriteError, if set, will be returned by writes.
	WriteError error

	// Opened and Closed track lifecycle calls.
	Opened bool
	Closed bool
}

// NewFakePort creates a FakePort.
func NewFakePort() *FakePort {
	return &FakePort{}
}

// Open marks the port open.
func (f *FakePort) Open() error {
	f.mu.Lock()
	f.Opened = true
	f.mu.Unlock()
	return nil
}

// Close marks the port closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// WriteByte records b.
func (f *FakePort) WriteByte(b byte) error {
	_, err := f.Write([]byte{b})
	return err
}

// Write records p.
func (f *FakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return 0, f.WriteError
	}
	f.Bytes = append(f.Bytes, p...)
	f.Writes = append(f.Writes, append([]byte(nil), p...))
	return len(p), nil
}

// Messages returns a copy of the recorded write chunks.
func (f *FakePort) Messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.Writes))
	copy(out, f.Writes)
	return out
}
