package audio

import "math"

// butterworthQ gives a maximally flat second-order response.
const butterworthQ = 1 / math.Sqrt2

// biquad is a second-order IIR section (Direct Form I) with normalised
// coefficients. State is per channel.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 []float64
	y1, y2 []float64
}

func newBiquad(channels int, b0, b1, b2, a0, a1, a2 float64) *biquad {
	return &biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
		x1: make([]float64, channels), x2: make([]float64, channels),
		y1: make([]float64, channels), y2: make([]float64, channels),
	}
}

func lowPass(sampleRate, channels int, cutoff, q float64) *biquad {
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	return newBiquad(channels,
		(1-cosw0)/2, 1-cosw0, (1-cosw0)/2,
		1+alpha, -2*cosw0, 1-alpha)
}

func highPass(sampleRate, channels int, cutoff, q float64) *biquad {
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	return newBiquad(channels,
		(1+cosw0)/2, -(1 + cosw0), (1+cosw0)/2,
		1+alpha, -2*cosw0, 1-alpha)
}

// process filters interleaved samples in place.
func (f *biquad) process(samples []float64, channels int) {
	for i, x := range samples {
		c := i % channels
		y := f.b0*x + f.b1*f.x1[c] + f.b2*f.x2[c] - f.a1*f.y1[c] - f.a2*f.y2[c]
		f.x2[c] = f.x1[c]
		f.x1[c] = x
		f.y2[c] = f.y1[c]
		f.y1[c] = y
		samples[i] = y
	}
}

// LowPass returns b through a second-order Butterworth low-pass at cutoff Hz.
// Cutoffs at or above Nyquist (or non-positive) leave b unchanged.
func (b *Buffer) LowPass(cutoff float64) *Buffer {
	if !b.validCutoff(cutoff) {
		return b
	}
	out := b.Clone()
	lowPass(b.SampleRate, b.Channels, cutoff, butterworthQ).process(out.Samples, b.Channels)
	return out
}

// HighPass returns b through a second-order Butterworth high-pass at cutoff Hz.
func (b *Buffer) HighPass(cutoff float64) *Buffer {
	if !b.validCutoff(cutoff) {
		return b
	}
	out := b.Clone()
	highPass(b.SampleRate, b.Channels, cutoff, butterworthQ).process(out.Samples, b.Channels)
	return out
}

func (b *Buffer) validCutoff(cutoff float64) bool {
	return cutoff > 0 && cutoff < float64(b.SampleRate)/2 && !b.IsEmpty()
}
