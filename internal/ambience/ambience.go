// Package ambience synthesises procedural background beds laid under a mix.
package ambience

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/satindergrewal/confluence/internal/audio"
)

// Kind selects the character of the bed.
type Kind int

const (
	None  Kind = iota
	Water      // low-passed noise
	Wind       // band-limited noise
	Pads       // sustained tones a fifth apart
)

// DefaultGainDB is the trim applied when the caller does not set one.
const DefaultGainDB = -24.0

// Tunable voicing. The spectral character of each kind is what matters:
// low-passed noise for water, band-passed noise for wind, a tonal pad.
const (
	waterLevelDB = -12.0
	waterCutoff  = 900.0

	windLevelDB = -14.0
	windLow     = 80.0
	windHigh    = 400.0

	padRoot    = 220.0
	padFifth   = 330.0
	padRootDB  = -18.0
	padFifthDB = -20.0
	padCutoff  = 1500.0
)

var kindNames = map[Kind]string{
	None:  "none",
	Water: "water",
	Wind:  "wind",
	Pads:  "pads",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a tag to a Kind. The empty string is None.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return None, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown ambience %q", s)
}

// Generator renders beds in a fixed output format. The same Seed always
// produces the same noise.
type Generator struct {
	SampleRate int
	Channels   int
	Seed       uint64
}

// Generate returns a bed of exactly durationMs with gainDB applied as a
// final trim, or nil for None and unknown kinds.
func (g Generator) Generate(kind Kind, durationMs int, gainDB float64) *audio.Buffer {
	var bed *audio.Buffer
	switch kind {
	case Water:
		bed = g.noise(durationMs).Gain(waterLevelDB).LowPass(waterCutoff)
	case Wind:
		bed = g.noise(durationMs).Gain(windLevelDB).LowPass(windHigh).HighPass(windLow)
	case Pads:
		root := g.tone(durationMs, padRoot).Gain(padRootDB)
		fifth := g.tone(durationMs, padFifth).Gain(padFifthDB)
		bed = root.OverlayFrames(fifth, 0).LowPass(padCutoff)
	default:
		return nil
	}
	frames := bed.FramesForMs(durationMs)
	return bed.SliceFrames(0, frames).PadFrames(frames).Gain(gainDB)
}

func (g Generator) format() (int, int) {
	rate, ch := g.SampleRate, g.Channels
	if rate <= 0 {
		rate = audio.SampleRate
	}
	if ch <= 0 {
		ch = audio.Channels
	}
	return rate, ch
}

// noise is full-scale uniform white noise, decorrelated across channels.
func (g Generator) noise(durationMs int) *audio.Buffer {
	rate, ch := g.format()
	b := audio.Silence(rate, ch, durationMs)
	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x9e3779b97f4a7c15))
	for i := range b.Samples {
		b.Samples[i] = rng.Float64()*2 - 1
	}
	return b
}

// tone is a full-scale sine, identical in every channel.
func (g Generator) tone(durationMs int, freq float64) *audio.Buffer {
	rate, ch := g.format()
	b := audio.Silence(rate, ch, durationMs)
	step := 2 * math.Pi * freq / float64(rate)
	for i := 0; i < b.Frames(); i++ {
		v := math.Sin(step * float64(i))
		for c := 0; c < ch; c++ {
			b.Samples[i*ch+c] = v
		}
	}
	return b
}
