package explorer

import (
	"math"
	"time"
)

type tapRecord struct {
	x, y        float64
	timestampUs int64
}

// TapDetector recognises two taps close in time and space.
type TapDetector struct {
	timeoutUs int64
	slop      float64
	taps      []tapRecord
}

func NewTapDetector(timeout time.Duration, slop float64) *TapDetector {
	return &TapDetector{
		timeoutUs: timeout.Microseconds(),
		slop:      slop,
		taps:      make([]tapRecord, 0, 2),
	}
}

// OnTouchEnd records a tap and reports whether it completes a double tap.
// A completed pair clears the sequence; a pair that misses either window
// keeps only the newest tap.
func (d *TapDetector) OnTouchEnd(x, y float64, timestampUs int64) bool {
	current := tapRecord{x: x, y: y, timestampUs: timestampUs}
	if len(d.taps) == 0 {
		d.taps = append(d.taps, current)
		return false
	}

	previous := d.taps[len(d.taps)-1]
	elapsed := current.timestampUs - previous.timestampUs
	spread := math.Hypot(current.x-previous.x, current.y-previous.y)
	if elapsed >= 0 && elapsed <= d.timeoutUs && spread <= d.slop {
		d.taps = d.taps[:0]
		return true
	}

	d.taps = append(d.taps[:0], current)
	return false
}

// Pending returns the number of taps waiting for a partner.
func (d *TapDetector) Pending() int {
	return len(d.taps)
}

func (d *TapDetector) Reset() {
	d.taps = d.taps[:0]
}
