package trigger

import "time"

// epoch anchors the process clocks; time.Since uses the monotonic reading.
var epoch = time.Now()

// MillisClock returns milliseconds since process start, wrapping at 2^32.
func MillisClock() uint32 {
	return uint32(time.Since(epoch).Milliseconds())
}

// MicrosClock returns microseconds since process start, wrapping at 2^32
// (about every 71 minutes).
func MicrosClock() uint32 {
	return uint32(time.Since(epoch).Microseconds())
}
