// Package power reads the battery fuel gauge and switches the auxiliary
// power rail.
package power

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/deskbot/internal/mathx"
)

// DefaultSupplyPath is the usual power_supply class entry for a battery HAT.
const DefaultSupplyPath = "/sys/class/power_supply/battery"

// ErrNoBattery is returned by gauges on platforms without a battery.
var ErrNoBattery = errors.New("no battery")

// Reading is one fuel gauge sample.
type Reading struct {
	Charging bool
	Level    int // percent
}

// Gauge reports the battery state.
type Gauge interface {
	Read() (Reading, error)
}

// None is a Gauge for platforms without a battery.
type None struct{}

func (None) Read() (Reading, error) { return Reading{}, ErrNoBattery }

// Sysfs reads a Linux power_supply class directory.
type Sysfs struct {
	dir string
}

// NewSysfs returns a gauge for dir, or an error when dir has no capacity
// attribute.
func NewSysfs(dir string) (*Sysfs, error) {
	if _, err := os.Stat(filepath.Join(dir, "capacity")); err != nil {
		return nil, fmt.Errorf("open battery %s: %w", dir, err)
	}
	return &Sysfs{dir: dir}, nil
}

// Read samples capacity and status.
func (s *Sysfs) Read() (Reading, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, "capacity"))
	if err != nil {
		return Reading{}, fmt.Errorf("read battery capacity: %w", err)
	}
	level, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return Reading{}, fmt.Errorf("parse battery capacity: %w", err)
	}

	var r Reading
	r.Level = mathx.Clamp(level, 0, 100)

	// status is optional; gauges without it report discharging.
	if raw, err := os.ReadFile(filepath.Join(s.dir, "status")); err == nil {
		switch strings.TrimSpace(string(raw)) {
		case "Charging", "Full":
			r.Charging = true
		}
	}
	return r, nil
}

// FakeGauge returns a scripted reading.
type FakeGauge struct {
	Reading Reading
	Err     error
	Reads   int
}

// Read returns the scripted reading.
func (f *FakeGauge) Read() (Reading, error) {
	f.Reads++
	return f.Reading, f.Err
}
