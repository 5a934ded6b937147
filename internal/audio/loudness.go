package audio

import "math"

// MatchGain returns the gain in dB that brings target's RMS level to
// reference's. Either buffer being silent (zero RMS) yields 0.
func MatchGain(reference, target *Buffer) float64 {
	ref, tgt := reference.RMS(), target.RMS()
	if ref == 0 || tgt == 0 {
		return 0
	}
	return 20*math.Log10(ref) - 20*math.Log10(tgt)
}

// Normalize applies MatchGain(reference, target) to target.
func Normalize(reference, target *Buffer) *Buffer {
	return target.Gain(MatchGain(reference, target))
}
