package power

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sweeney/deskbot/internal/gpio"
)

func writeSupply(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestSysfsRead(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Reading
	}{
		{"discharging", map[string]string{"capacity": "57\n", "status": "Discharging\n"}, Reading{Level: 57}},
		{"charging", map[string]string{"capacity": "12\n", "status": "Charging\n"}, Reading{Charging: true, Level: 12}},
		{"full", map[string]string{"capacity": "100\n", "status": "Full\n"}, Reading{Charging: true, Level: 100}},
		{"no status", map[string]string{"capacity": "80"}, Reading{Level: 80}},
		{"over range", map[string]string{"capacity": "104"}, Reading{Level: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewSysfs(writeSupply(t, tt.files))
			if err != nil {
				t.Fatalf("NewSysfs: %v", err)
			}
			got, err := g.Read()
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSysfsMissing(t *testing.T) {
	if _, err := NewSysfs(t.TempDir()); err == nil {
		t.Error("expected error for a directory without capacity")
	}
}

func TestSysfsGarbage(t *testing.T) {
	g, err := NewSysfs(writeSupply(t, map[string]string{"capacity": "lots"}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Read(); err == nil {
		t.Error("expected parse error")
	}
}

func TestNone(t *testing.T) {
	if _, err := (None{}).Read(); !errors.Is(err, ErrNoBattery) {
		t.Errorf("expected ErrNoBattery, got %v", err)
	}
}

func TestRailToggle(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := NewRail(out)
	if r.On() {
		t.Fatal("rail should start off")
	}

	for i, want := range []bool{true, false, true} {
		on, err := r.Toggle()
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if on != want || r.On() != want || out.On() != want {
			t.Errorf("toggle %d: got on=%v rail=%v line=%v, want %v", i, on, r.On(), out.On(), want)
		}
	}
}

func TestRailToggleError(t *testing.T) {
	out := gpio.NewFakeOutput()
	out.SetError = errors.New("line busy")
	r := NewRail(out)

	on, err := r.Toggle()
	if err == nil {
		t.Fatal("expected error")
	}
	if on || r.On() {
		t.Error("failed toggle must not change state")
	}
}
