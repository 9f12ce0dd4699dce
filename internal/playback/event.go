package playback

import "time"

// EventType identifies a playback lifecycle transition.
type EventType string

const (
	EventLoaded      EventType = "LOADED"
	EventPlay        EventType = "PLAY"
	EventStop        EventType = "STOP"
	EventSkip        EventType = "SKIP"
	EventEndOfSong   EventType = "END_OF_SONG"
	EventUnavailable EventType = "UNAVAILABLE"
)

// Event is emitted on every lifecycle transition.
type Event struct {
	Type      EventType
	Track     string
	Timestamp time.Time
	Reason    string // set for UNAVAILABLE
}
