package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Playback      PlaybackJSON `json:"playback"`
	Face          FaceJSON     `json:"face"`
	AuxRail       bool         `json:"aux_rail"`
	Calibrating   bool         `json:"calibrating"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Loop          LoopJSON     `json:"loop"`
	Config        ConfigJSON   `json:"config"`
}

// PlaybackJSON reports the playback controller.
type PlaybackJSON struct {
	Available bool   `json:"available"`
	Status    string `json:"status"`
	Track     string `json:"track,omitempty"`
}

// FaceJSON reports the face surface.
type FaceJSON struct {
	Mouth   float32      `json:"mouth"`
	Speech  string       `json:"speech,omitempty"`
	Battery *BatteryJSON `json:"battery,omitempty"`
}

// BatteryJSON reports the last battery reading.
type BatteryJSON struct {
	Charging bool `json:"charging"`
	Level    int  `json:"level"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// LoopJSON is the JSON representation of main cycle counters.
type LoopJSON struct {
	Passes       uint64 `json:"passes"`
	Ticks        uint64 `json:"ticks"`
	CatchUpTicks uint64 `json:"catch_up_ticks"`
	MaxBurst     int    `json:"max_burst"`
	Overloads    uint64 `json:"overloads"`
	Toggles      uint64 `json:"toggles"`
	Skips        uint64 `json:"skips"`
	SongsEnded   uint64 `json:"songs_ended"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickUs      int64  `json:"tick_us"`
	MaxCatchUp  int    `json:"max_catch_up"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	StorageDir  string `json:"storage_dir"`
	MIDIDevice  string `json:"midi_device"`
	Songs       int    `json:"songs"`
}

func buildInner(snap Snapshot) StatusInner {
	pbStatus := snap.Playback.Status
	if pbStatus == "" {
		pbStatus = "STOPPED"
	}

	inner := StatusInner{
		Playback: PlaybackJSON{
			Available: snap.Playback.Available,
			Status:    pbStatus,
			Track:     snap.Playback.Track,
		},
		Face: FaceJSON{
			Mouth:  snap.Face.Mouth,
			Speech: snap.Face.Speech,
		},
		AuxRail:       snap.Rail,
		Calibrating:   snap.Calibrating,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Loop: LoopJSON{
			Passes:       snap.Counters.Passes,
			Ticks:        snap.Counters.Ticks,
			CatchUpTicks: snap.Counters.CatchUpTicks,
			MaxBurst:     snap.Counters.MaxBurst,
			Overloads:    snap.Counters.Overloads,
			Toggles:      snap.Counters.Toggles,
			Skips:        snap.Counters.Skips,
			SongsEnded:   snap.Counters.SongsEnded,
		},
		Config: ConfigJSON{
			TickUs:      snap.Config.TickUs,
			MaxCatchUp:  snap.Config.MaxCatchUp,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			StorageDir:  snap.Config.StorageDir,
			MIDIDevice:  snap.Config.MIDIDevice,
			Songs:       snap.Config.Songs,
		},
	}
	if b := snap.Face.Battery; b.Known && snap.Face.BatteryIcon {
		inner.Face.Battery = &BatteryJSON{Charging: b.Charging, Level: b.Level}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
