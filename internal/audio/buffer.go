package audio

import (
	"math"

	"github.com/rs/zerolog/log"
	resampler "github.com/tphakala/go-audio-resampler"
)

// Buffer holds interleaved float PCM with full scale at ±1.0.
//
// Buffers are immutable by convention: every operation returns a new buffer
// (or the receiver itself when the operation changes nothing) and never
// writes into the receiver's samples. Length, RMS and peak queries treat a
// nil buffer as empty.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// New wraps interleaved samples. Non-positive rates fall back to SampleRate,
// non-positive channel counts to mono, and a trailing partial frame is dropped.
func New(sampleRate, channels int, samples []float64) *Buffer {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	if n := len(samples) % channels; n != 0 {
		samples = samples[:len(samples)-n]
	}
	if samples == nil {
		samples = []float64{}
	}
	return &Buffer{SampleRate: sampleRate, Channels: channels, Samples: samples}
}

// Silence returns durationMs of digital silence.
func Silence(sampleRate, channels, durationMs int) *Buffer {
	b := New(sampleRate, channels, nil)
	return SilenceFrames(b.SampleRate, b.Channels, b.FramesForMs(durationMs))
}

// SilenceFrames returns the given number of silent frames.
func SilenceFrames(sampleRate, channels, frames int) *Buffer {
	b := New(sampleRate, channels, nil)
	if frames > 0 {
		b.Samples = make([]float64, frames*b.Channels)
	}
	return b
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// LengthMs returns the duration in whole milliseconds.
func (b *Buffer) LengthMs() int {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return int(int64(b.Frames()) * 1000 / int64(b.SampleRate))
}

// FramesForMs converts a duration to a frame count at the buffer's rate.
// Negative durations map to zero.
func (b *Buffer) FramesForMs(ms int) int {
	rate := SampleRate
	if b != nil && b.SampleRate > 0 {
		rate = b.SampleRate
	}
	if ms <= 0 {
		return 0
	}
	return int(int64(ms) * int64(rate) / 1000)
}

// MsForFrames converts a frame count to whole milliseconds.
func (b *Buffer) MsForFrames(frames int) int {
	rate := SampleRate
	if b != nil && b.SampleRate > 0 {
		rate = b.SampleRate
	}
	if frames <= 0 {
		return 0
	}
	return int(int64(frames) * 1000 / int64(rate))
}

// frameSamples returns the samples of whole frames only. Buffers built as
// literals may carry a trailing partial frame.
func (b *Buffer) frameSamples() []float64 {
	if b == nil {
		return nil
	}
	return b.Samples[:b.Frames()*b.Channels]
}

// IsEmpty reports whether the buffer has no frames.
func (b *Buffer) IsEmpty() bool {
	return b.Frames() == 0
}

// IsSilent reports whether every sample is zero. Empty buffers are silent.
func (b *Buffer) IsSilent() bool {
	return b.Peak() == 0
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := SilenceFrames(b.SampleRate, b.Channels, b.Frames())
	copy(out.Samples, b.frameSamples())
	return out
}

// withFrames copies the buffer into a new one of at least frames frames.
func (b *Buffer) withFrames(frames int) *Buffer {
	if n := b.Frames(); frames < n {
		frames = n
	}
	out := SilenceFrames(b.SampleRate, b.Channels, frames)
	copy(out.Samples, b.frameSamples())
	return out
}

// SliceFrames returns frames [start, end), clamped to the buffer bounds.
// An out-of-range request yields an empty buffer.
func (b *Buffer) SliceFrames(start, end int) *Buffer {
	n := b.Frames()
	start = clampInt(start, 0, n)
	end = clampInt(end, start, n)
	out := SilenceFrames(b.SampleRate, b.Channels, end-start)
	copy(out.Samples, b.Samples[start*b.Channels:end*b.Channels])
	return out
}

// Slice returns [startMs, endMs), clamped to the buffer bounds.
func (b *Buffer) Slice(startMs, endMs int) *Buffer {
	return b.SliceFrames(b.FramesForMs(startMs), b.FramesForMs(endMs))
}

// Concat appends other after b. other is conformed to b's format first.
func (b *Buffer) Concat(other *Buffer) *Buffer {
	if other.IsEmpty() {
		return b
	}
	o := other.Conform(b.SampleRate, b.Channels)
	out := b.withFrames(b.Frames() + o.Frames())
	copy(out.Samples[b.Frames()*b.Channels:], o.frameSamples())
	return out
}

// PadFrames appends silence until the buffer holds at least frames frames.
func (b *Buffer) PadFrames(frames int) *Buffer {
	if b.Frames() >= frames {
		return b
	}
	return b.withFrames(frames)
}

// PadTo appends silence until the buffer is at least durationMs long.
func (b *Buffer) PadTo(durationMs int) *Buffer {
	return b.PadFrames(b.FramesForMs(durationMs))
}

// Gain applies a uniform gain in dB. Zero, NaN and infinite deltas, like
// silent input, leave the buffer unchanged.
func (b *Buffer) Gain(db float64) *Buffer {
	if db == 0 || math.IsNaN(db) || math.IsInf(db, 0) || b.IsSilent() {
		return b
	}
	return b.scale(DBToGain(db))
}

func (b *Buffer) scale(g float64) *Buffer {
	out := SilenceFrames(b.SampleRate, b.Channels, b.Frames())
	for i, s := range b.frameSamples() {
		out.Samples[i] = s * g
	}
	return out
}

// Pan places the buffer in the stereo field using an equal-power law.
// v is clamped to [-1, 1] (NaN is treated as centre); -1 is hard left.
// Mono input is up-mixed to stereo first. At v = 0 a stereo buffer is
// unchanged. Silent input is returned as is.
func (b *Buffer) Pan(v float64) *Buffer {
	if math.IsNaN(v) {
		v = 0
	}
	v = clampFloat(v, -1, 1)
	if b.IsSilent() {
		return b
	}
	st := b.Conform(b.SampleRate, 2)
	if v == 0 {
		return st
	}
	theta := (v + 1) * math.Pi / 4
	gl := math.Sqrt2 * math.Cos(theta)
	gr := math.Sqrt2 * math.Sin(theta)

	out := SilenceFrames(st.SampleRate, 2, st.Frames())
	for i := 0; i < st.Frames(); i++ {
		out.Samples[2*i] = st.Samples[2*i] * gl
		out.Samples[2*i+1] = st.Samples[2*i+1] * gr
	}
	return out
}

// RMS returns the root-mean-square amplitude over all samples.
func (b *Buffer) RMS() float64 {
	samples := b.frameSamples()
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	var pk float64
	for _, s := range b.frameSamples() {
		if a := math.Abs(s); a > pk {
			pk = a
		}
	}
	return pk
}

// PeakDBFS returns the peak level in dBFS (-Inf for silence).
func (b *Buffer) PeakDBFS() float64 {
	return GainToDB(b.Peak())
}

// FadeInFrames ramps the first n frames up from FloorDB using shape.
func (b *Buffer) FadeInFrames(n int, shape Shape) *Buffer {
	n = clampInt(n, 0, b.Frames())
	if n == 0 {
		return b
	}
	out := b.Clone()
	for i := 0; i < n; i++ {
		g := shape.In(float64(i) / float64(n))
		for c := 0; c < b.Channels; c++ {
			out.Samples[i*b.Channels+c] *= g
		}
	}
	return out
}

// FadeOutFrames ramps the last n frames down to FloorDB using shape.
func (b *Buffer) FadeOutFrames(n int, shape Shape) *Buffer {
	n = clampInt(n, 0, b.Frames())
	if n == 0 {
		return b
	}
	out := b.Clone()
	start := b.Frames() - n
	for i := 0; i < n; i++ {
		g := shape.Out(float64(i) / float64(n))
		for c := 0; c < b.Channels; c++ {
			out.Samples[(start+i)*b.Channels+c] *= g
		}
	}
	return out
}

// FadeIn applies an equal-power fade-in over the first durationMs.
func (b *Buffer) FadeIn(durationMs int) *Buffer {
	return b.FadeInFrames(b.FramesForMs(durationMs), ShapeEqualPower)
}

// FadeOut applies an equal-power fade-out over the last durationMs.
func (b *Buffer) FadeOut(durationMs int) *Buffer {
	return b.FadeOutFrames(b.FramesForMs(durationMs), ShapeEqualPower)
}

// OverlayFrames mixes other additively into b starting at frame at.
// The result is extended with silence when other runs past b's end.
func (b *Buffer) OverlayFrames(other *Buffer, at int) *Buffer {
	if at < 0 {
		at = 0
	}
	if other.IsEmpty() {
		return b
	}
	o := other.Conform(b.SampleRate, b.Channels)
	out := b.withFrames(at + o.Frames())
	base := at * b.Channels
	for i, s := range o.frameSamples() {
		out.Samples[base+i] += s
	}
	return out
}

// Overlay mixes other additively into b starting at atMs.
func (b *Buffer) Overlay(other *Buffer, atMs int) *Buffer {
	return b.OverlayFrames(other, b.FramesForMs(atMs))
}

// SpliceFrames replaces the frames starting at at with region, extending
// the buffer if region runs past the end.
func (b *Buffer) SpliceFrames(at int, region *Buffer) *Buffer {
	if at < 0 {
		at = 0
	}
	if region.IsEmpty() {
		return b
	}
	r := region.Conform(b.SampleRate, b.Channels)
	out := b.withFrames(at + r.Frames())
	copy(out.Samples[at*b.Channels:], r.frameSamples())
	return out
}

// ToMono averages all channels into one.
func (b *Buffer) ToMono() *Buffer {
	return b.Conform(b.SampleRate, 1)
}

// Conform converts the buffer to the given rate and channel count.
// Rates are converted with a polyphase FIR resampler; the output frame count
// is the input's rounded to the nearest frame at the new rate. Mono is
// duplicated into every output channel; down-mixing to mono averages the
// channels; any other layout change maps channels round-robin. A buffer with
// no frames, or no valid format, conforms to an empty buffer.
func (b *Buffer) Conform(sampleRate, channels int) *Buffer {
	if b != nil {
		if sampleRate <= 0 {
			sampleRate = b.SampleRate
		}
		if channels <= 0 {
			channels = b.Channels
		}
	}
	if b.Frames() == 0 || b.SampleRate <= 0 {
		return SilenceFrames(sampleRate, channels, 0)
	}
	out := b
	if out.SampleRate != sampleRate {
		out = out.resample(sampleRate)
	}
	if out.Channels != channels {
		out = out.remix(channels)
	}
	return out
}

// resampledFrames is frames converted from rate from to rate to, rounded.
func resampledFrames(frames, from, to int) int {
	return int((int64(frames)*int64(to) + int64(from)/2) / int64(from))
}

func (b *Buffer) resample(rate int) *Buffer {
	frames := b.Frames()
	ch := b.Channels
	outFrames := resampledFrames(frames, b.SampleRate, rate)
	out := SilenceFrames(rate, ch, outFrames)

	planar := make([]float64, frames)
	for c := 0; c < ch; c++ {
		for i := range planar {
			planar[i] = b.Samples[i*ch+c]
		}
		conv, err := resampler.ResampleMono(planar, float64(b.SampleRate), float64(rate), resampler.QualityHigh)
		if err != nil {
			log.Debug().Err(err).
				Int("from", b.SampleRate).
				Int("to", rate).
				Msg("Resampler rejected input, using linear interpolation")
			return b.resampleLinear(rate, outFrames)
		}
		for i := 0; i < outFrames && i < len(conv); i++ {
			out.Samples[i*ch+c] = conv[i]
		}
	}
	return out
}

// resampleLinear is the fallback for inputs the FIR resampler rejects.
func (b *Buffer) resampleLinear(rate, outFrames int) *Buffer {
	frames := b.Frames()
	ch := b.Channels
	out := SilenceFrames(rate, ch, outFrames)
	ratio := float64(b.SampleRate) / float64(rate)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		j := clampInt(int(pos), 0, frames-1)
		frac := pos - float64(j)
		k := clampInt(j+1, 0, frames-1)
		for c := 0; c < ch; c++ {
			out.Samples[i*ch+c] = b.Samples[j*ch+c]*(1-frac) + b.Samples[k*ch+c]*frac
		}
	}
	return out
}

func (b *Buffer) remix(channels int) *Buffer {
	frames := b.Frames()
	out := SilenceFrames(b.SampleRate, channels, frames)
	src := b.Channels
	for i := 0; i < frames; i++ {
		in := b.Samples[i*src : (i+1)*src]
		dst := out.Samples[i*channels : (i+1)*channels]
		switch {
		case channels == 1:
			var sum float64
			for _, s := range in {
				sum += s
			}
			dst[0] = sum / float64(src)
		case src == 1:
			for c := range dst {
				dst[c] = in[0]
			}
		default:
			for c := range dst {
				dst[c] = in[c%src]
			}
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
