package audio

import (
	"fmt"
	"math"
	"strings"
)

// Shape selects the gain curve used for fades and crossfades.
type Shape int

const (
	// ShapeEqualPower follows sin(t·π/2); paired with its mirror the summed
	// power stays roughly constant through the transition.
	ShapeEqualPower Shape = iota
	// ShapeSmoothstep follows 3t^2 - 2t^3.
	ShapeSmoothstep
)

var floorGain = DBToGain(FloorDB)

// ParseShape maps "equal_power" (or "") and "smoothstep" to a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "equal_power", "equal-power", "equalpower":
		return ShapeEqualPower, nil
	case "smoothstep":
		return ShapeSmoothstep, nil
	}
	return ShapeEqualPower, fmt.Errorf("unknown crossfade curve %q", s)
}

func (s Shape) String() string {
	if s == ShapeSmoothstep {
		return "smoothstep"
	}
	return "equal_power"
}

// In returns the fade-in gain at progress t in [0,1]: FloorDB at 0, unity at 1.
func (s Shape) In(t float64) float64 {
	var c float64
	switch s {
	case ShapeSmoothstep:
		c = Smoothstep(t)
	default:
		c = EqualPower(t)
	}
	return floorGain + (1-floorGain)*c
}

// Out is the mirror of In: unity at 0, FloorDB at 1.
func (s Shape) Out(t float64) float64 {
	return s.In(1 - t)
}

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// EqualPower returns sin(t·π/2) for t in [0,1].
func EqualPower(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return math.Sin(t * math.Pi / 2)
}

// Crossfade blends an outgoing region with an incoming one over the length
// of the outgoing region: the outgoing side fades out, the incoming side
// fades in, and the two are summed. incoming is conformed to outgoing's
// format; a short incoming region is padded with silence and a long one is
// truncated. The result always has outgoing's length.
func Crossfade(outgoing, incoming *Buffer, shape Shape) *Buffer {
	n := outgoing.Frames()
	in := incoming.Conform(outgoing.SampleRate, outgoing.Channels)
	in = in.SliceFrames(0, n).PadFrames(n)

	ch := outgoing.Channels
	result := SilenceFrames(outgoing.SampleRate, ch, n)
	for i := 0; i < n; i++ {
		progress := float64(i) / float64(n)
		gOut := shape.Out(progress)
		gIn := shape.In(progress)
		for c := 0; c < ch; c++ {
			k := i*ch + c
			result.Samples[k] = outgoing.Samples[k]*gOut + in.Samples[k]*gIn
		}
	}
	return result
}
