package input

import (
	"testing"
	"time"
)

func TestEdgeZeroValueReleased(t *testing.T) {
	var e Edge
	if e.Rose() || e.Fell() || e.Held() {
		t.Error("zero Edge should report no transitions")
	}
}

func TestEdgeRiseAndFall(t *testing.T) {
	var e Edge

	e.Observe(true)
	if !e.Rose() {
		t.Error("expected Rose on first press sample")
	}

	e.Observe(true)
	if e.Rose() {
		t.Error("held level must not report Rose again")
	}
	if !e.Held() {
		t.Error("expected Held while pressed")
	}

	e.Observe(false)
	if !e.Fell() {
		t.Error("expected Fell on release sample")
	}
	if e.Rose() {
		t.Error("release must not report Rose")
	}
}

func TestEdgeHeldAcrossManyPollsFiresOnce(t *testing.T) {
	var e Edge
	rises := 0
	for i := 0; i < 50; i++ {
		e.Observe(true)
		if e.Rose() {
			rises++
		}
	}
	if rises != 1 {
		t.Errorf("expected exactly 1 rise over 50 held polls, got %d", rises)
	}
}

func TestButtonPressedFor(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewButton(0)

	b.Update(true, now)
	if !b.WasPressed() {
		t.Fatal("expected press edge")
	}
	if b.PressedFor(2 * time.Second) {
		t.Error("should not report 2s hold at press time")
	}

	fired := 0
	for i := 1; i <= 30; i++ {
		b.Update(true, now.Add(time.Duration(i)*100*time.Millisecond))
		if b.PressedFor(2 * time.Second) {
			fired++
			if i != 20 {
				t.Errorf("2s hold reported at poll %d, want 20", i)
			}
		}
	}
	if fired != 1 {
		t.Errorf("expected 2s hold reported once, got %d", fired)
	}

	b.Update(false, now.Add(4*time.Second))
	if !b.WasReleased() {
		t.Error("expected release edge")
	}
	if b.PressedFor(0) {
		t.Error("released button should not report a hold")
	}
}

func TestButtonTwoThresholds(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewButton(0)
	b.Update(true, now)

	var got []time.Duration
	for i := 1; i <= 60; i++ {
		b.Update(true, now.Add(time.Duration(i)*100*time.Millisecond))
		if b.PressedFor(5 * time.Second) {
			got = append(got, 5*time.Second)
		} else if b.PressedFor(2 * time.Second) {
			got = append(got, 2*time.Second)
		}
	}
	if len(got) != 2 || got[0] != 2*time.Second || got[1] != 5*time.Second {
		t.Errorf("expected [2s 5s], got %v", got)
	}
}

func TestButtonDoubleClick(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ms := func(n int) time.Time { return now.Add(time.Duration(n) * time.Millisecond) }

	tests := []struct {
		name  string
		gap   int // ms between first release and second press
		wantD bool
	}{
		{"inside window", 200, true},
		{"at window", 300, true},
		{"outside window", 400, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewButton(300 * time.Millisecond)
			b.Update(true, ms(0))
			if b.WasDoubleClicked() {
				t.Fatal("first press cannot be a double click")
			}
			b.Update(false, ms(100))
			b.Update(true, ms(100+tt.gap))
			if b.WasDoubleClicked() != tt.wantD {
				t.Errorf("WasDoubleClicked: got %v, want %v", b.WasDoubleClicked(), tt.wantD)
			}
		})
	}
}

func TestButtonTripleClickIsOneDouble(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ms := func(n int) time.Time { return now.Add(time.Duration(n) * time.Millisecond) }

	b := NewButton(300 * time.Millisecond)
	doubles := 0
	levels := []bool{true, false, true, false, true, false}
	for i, lvl := range levels {
		b.Update(lvl, ms(i*100))
		if b.WasDoubleClicked() {
			doubles++
		}
	}
	if doubles != 1 {
		t.Errorf("expected 1 double click in a triple click, got %d", doubles)
	}
}
