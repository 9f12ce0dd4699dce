//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads buttons from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines [NumButtons]*gpiocdev.Line
}

// NewRealReader requests the three button lines on the named chip.
// Buttons short to ground, so lines are pulled up and read active-low.
func NewRealReader(chipName string, pins [NumButtons]int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip}
	for b, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request button %s pin %d: %w", Button(b), pin, err)
		}
		r.lines[b] = line
	}
	return r, nil
}

// Read returns the logical level of every button.
func (r *RealReader) Read() (Levels, error) {
	var levels Levels
	for b, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return Levels{}, fmt.Errorf("read button %s: %w", Button(b), err)
		}
		levels[b] = v == 1
	}
	return levels, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var errs []error
	for b, line := range r.lines {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button %s: %w", Button(b), err))
		}
		r.lines[b] = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	return errors.Join(errs...)
}

// RealOutput drives one output line.
type RealOutput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealOutput requests pin as an output, initially inactive.
func NewRealOutput(chipName string, pin int) (*RealOutput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &RealOutput{chip: chip, line: line}, nil
}

// Set drives the line.
func (o *RealOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set output: %w", err)
	}
	return nil
}

// Close drives the line inactive, then releases it. Leaving an LED or power
// rail latched on across a restart is surprising for the user.
func (o *RealOutput) Close() error {
	var errs []error
	if o.line != nil {
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("reset output: %w", err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
