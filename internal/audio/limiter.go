package audio

import "math"

// Limit is a single-stage static peak limiter. When b peaks above
// -headroomDB dBFS, one uniform gain is applied so the peak lands exactly on
// -headroomDB; otherwise b is returned untouched. It never boosts.
// Negative or NaN headroom is treated as 0.
func Limit(b *Buffer, headroomDB float64) *Buffer {
	if math.IsNaN(headroomDB) || headroomDB < 0 {
		headroomDB = 0
	}
	peak := b.Peak()
	if peak == 0 {
		return b
	}
	ceiling := DBToGain(-headroomDB)
	if peak <= ceiling {
		return b
	}
	return b.scale(ceiling / peak)
}
