// Package audio holds the float PCM buffer and the DSP the mixer is built
// from: fades, crossfades, loudness matching, limiting and filters.
package audio

import "math"

const (
	SampleRate = 48000
	Channels   = 2
	BitDepth   = 16

	// FloorDB is the attenuation fades start from (or end at).
	FloorDB = -60.0

	// DefaultHeadroomDB is the limiter ceiling below 0 dBFS.
	DefaultHeadroomDB = 1.0
)

// DBToGain converts a decibel delta to a linear amplitude factor.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// GainToDB converts a linear amplitude factor to decibels.
// Zero (or negative) amplitude maps to -Inf.
func GainToDB(g float64) float64 {
	if g <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(g)
}
