// Package confluence places up to five tributaries on one timeline and
// renders them into a single buffer, by crossfaded overlay or by plain
// concatenation.
package confluence

import (
	"errors"

	"github.com/satindergrewal/confluence/internal/audio"
)

// Slots is the number of tributary slots (M1..M5).
const Slots = 5

// ErrNoInput is returned when no slot holds a track.
var ErrNoInput = errors.New("confluence: no tracks to mix")

// Tracks holds one optional buffer per slot. A nil entry is an absent
// tributary; absence is a normal state and never an error.
type Tracks [Slots]*audio.Buffer

// Present reports whether slot i holds a track. Out-of-range slots are
// absent.
func (t Tracks) Present(i int) bool {
	return i >= 0 && i < Slots && t[i] != nil
}

// Count returns the number of present slots.
func (t Tracks) Count() int {
	n := 0
	for i := range t {
		if t.Present(i) {
			n++
		}
	}
	return n
}

// First returns the lowest present slot. It is the timeline origin and the
// loudness reference.
func (t Tracks) First() (int, bool) {
	for i := range t {
		if t.Present(i) {
			return i, true
		}
	}
	return -1, false
}

// prevPresent scans backward from i-1 to the nearest present slot, or -1.
func (t Tracks) prevPresent(i int) int {
	for j := i - 1; j >= 0; j-- {
		if t.Present(j) {
			return j
		}
	}
	return -1
}

// Durations returns each slot's length in ms (0 for absent slots).
func (t Tracks) Durations() [Slots]int {
	var d [Slots]int
	for i, b := range t {
		d[i] = b.LengthMs()
	}
	return d
}
