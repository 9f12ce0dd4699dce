// Package storage provides byte-level access to song files on the SD card.
package storage

import (
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned by Open when the named file does not exist.
var ErrNotFound = errors.New("storage: file not found")

// Store opens files by catalog name (for example "/playdat0.mid").
type Store interface {
	// Exists reports whether name is present and readable.
	Exists(name string) bool

	// Open returns a File positioned at offset zero.
	Open(name string) (*File, error)
}

// File offers the random-access primitives a sequencer needs: seek-then-read
// of a byte or a buffer, sequential reads, and the total size.
// Not safe for concurrent use.
type File struct {
	r    io.ReadSeeker
	c    io.Closer
	size int64
	pos  int64
}

// NewFile wraps r. c may be nil when there is nothing to release.
func NewFile(r io.ReadSeeker, c io.Closer, size int64) *File {
	return &File{r: r, c: c, size: size}
}

// ByteAt seeks to ptr (when not already there) and reads one byte.
func (f *File) ByteAt(ptr int64) (byte, bool) {
	if err := f.seek(ptr); err != nil {
		return 0, false
	}
	return f.NextByte()
}

// NextByte reads the byte at the current position.
func (f *File) NextByte() (byte, bool) {
	var b [1]byte
	n, err := f.r.Read(b[:])
	if n != 1 {
		return 0, false
	}
	f.pos++
	if err != nil && err != io.EOF {
		return 0, false
	}
	return b[0], true
}

// ReadBufAt seeks to ptr and fills buf, returning the number of bytes read.
// A short count means end of file or a read error.
func (f *File) ReadBufAt(ptr int64, buf []byte) int {
	if err := f.seek(ptr); err != nil {
		return 0
	}
	n, _ := io.ReadFull(f.r, buf)
	f.pos += int64(n)
	return n
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Close releases the underlying handle.
func (f *File) Close() error {
	if f.c == nil {
		return nil
	}
	return f.c.Close()
}

func (f *File) seek(ptr int64) error {
	if ptr == f.pos {
		return nil
	}
	if _, err := f.r.Seek(ptr, io.SeekStart); err != nil {
		return fmt.Errorf("seek %d: %w", ptr, err)
	}
	f.pos = ptr
	return nil
}

// ReadAll reads the whole file from offset zero.
func ReadAll(f *File) ([]byte, error) {
	buf := make([]byte, f.Size())
	if n := f.ReadBufAt(0, buf); int64(n) != f.Size() {
		return nil, fmt.Errorf("short read: %d of %d bytes", n, f.Size())
	}
	return buf, nil
}
