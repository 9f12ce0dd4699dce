package midiport

import (
	"bytes"
	"errors"
	"testing"
)

func TestFakePortRecords(t *testing.T) {
	p := NewFakePort()
	if err := p.Open(); err != nil {
		t.Fatal(err)
	}
	if err := p.WriteByte(0xFE); err != nil {
		t.Fatal(err)
	}
	if n, err := p.Write([]byte{0x90, 60, 100}); err != nil || n != 3 {
		t.Fatalf("Write: got %d %v", n, err)
	}

	if !bytes.Equal(p.Bytes, []byte{0xFE, 0x90, 60, 100}) {
		t.Errorf("Bytes: got % X", p.Bytes)
	}
	msgs := p.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(msgs))
	}
	if !bytes.Equal(msgs[1], []byte{0x90, 60, 100}) {
		t.Errorf("chunk 1: got % X", msgs[1])
	}

	p.Close()
	if !p.Opened || !p.Closed {
		t.Error("expected lifecycle to be recorded")
	}
}

func TestFakePortWriteError(t *testing.T) {
	p := NewFakePort()
	p.WriteError = errors.New("uart overrun")
	if err := p.WriteByte(1); err == nil {
		t.Error("expected error")
	}
	if len(p.Bytes) != 0 {
		t.Error("failed write should not be recorded")
	}
}

func TestDiscard(t *testing.T) {
	var p Port = Discard{}
	if n, err := p.Write([]byte{1, 2, 3}); n != 3 || err != nil {
		t.Errorf("Write: got %d %v", n, err)
	}
	if err := p.WriteByte(1); err != nil {
		t.Error(err)
	}
}

func TestSerialWriteBeforeOpen(t *testing.T) {
	s := NewSerial("/dev/ttyNOPE", 0)
	if s.baud != DefaultBaud {
		t.Errorf("baud: got %d, want %d", s.baud, DefaultBaud)
	}
	if _, err := s.Write([]byte{0x90}); err == nil {
		t.Error("expected error writing to an unopened port")
	}
	if err := s.Close(); err != nil {
		t.Errorf("closing an unopened port: %v", err)
	}
}
