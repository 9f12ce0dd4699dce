// Package catalog implements the song file naming policy: a fixed-width
// template with one decimal digit, cycling forward and skipping files that
// are not on the card.
package catalog

import (
	"fmt"

	"github.com/sweeney/deskbot/internal/mathx"
)

// DefaultSize is the number of catalog slots (playdat0.mid..playdat9.mid).
const DefaultSize = 10

// Template is the filename pattern; the verb is replaced by the slot index.
const Template = "/playdat%d.mid"

// Exister reports whether a file is present on storage.
type Exister interface {
	Exists(name string) bool
}

// Catalog hands out the next playable filename.
// Not safe for concurrent use.
type Catalog struct {
	store Exister
	size  int
	next  int
}

// New creates a Catalog of size slots over store. Sizes outside 1..10 are
// clamped: the template carries a single digit.
func New(store Exister, size int) *Catalog {
	return &Catalog{store: store, size: mathx.Clamp(size, 1, DefaultSize)}
}

// Size returns the number of slots.
func (c *Catalog) Size() int {
	return c.size
}

// Name returns the filename for slot i.
func Name(i int) string {
	return fmt.Sprintf(Template, i)
}

// Next returns the first present file at or after the cursor, advancing
// the cursor past it and wrapping. It inspects at most one full cycle; when
// no slot is present it returns the last name tried and false.
func (c *Catalog) Next() (string, bool) {
	var name string
	for i := 0; i < c.size; i++ {
		name = Name(c.next)
		c.next++
		if c.next >= c.size {
			c.next = 0
		}
		if c.store.Exists(name) {
			return name, true
		}
	}
	return name, false
}
