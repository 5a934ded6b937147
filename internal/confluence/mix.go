package confluence

import (
	"github.com/satindergrewal/confluence/internal/ambience"
	"github.com/satindergrewal/confluence/internal/audio"
)

// Mix renders the tracks onto one timeline with crossfades, lays the
// ambience bed under the result and applies the peak limiter. It returns
// ErrNoInput when no slot is present.
func Mix(tracks Tracks, plan Plan) (*audio.Buffer, error) {
	buf, _, err := mix(tracks, plan)
	return buf, err
}

func mix(tracks Tracks, plan Plan) (*audio.Buffer, Offsets, error) {
	plan = plan.Sanitize()
	prepared, ok := prepare(tracks, plan)
	if !ok {
		return nil, Offsets{}, ErrNoInput
	}
	ref, _ := prepared.First()
	offsets := Resolve(prepared, plan.Mode, plan.Placement)

	canvas := prepared[ref]
	for i := ref + 1; i < Slots; i++ {
		if !prepared.Present(i) {
			continue
		}
		canvas = place(canvas, prepared[i], offsets[i], plan.Crossfade[i], plan.Curve)
	}

	if plan.Ambience.Kind != ambience.None {
		gen := ambience.Generator{
			SampleRate: canvas.SampleRate,
			Channels:   canvas.Channels,
			Seed:       plan.Seed,
		}
		if bed := gen.Generate(plan.Ambience.Kind, canvas.LengthMs(), plan.Ambience.GainDB); bed != nil {
			canvas = canvas.OverlayFrames(bed.PadFrames(canvas.Frames()), 0)
		}
	}

	return audio.Limit(canvas, plan.HeadroomDB), offsets, nil
}

// prepare conforms every present slot to the reference's rate in stereo,
// matches its loudness to the reference and applies the slot's gain and pan.
// The reference itself goes through the same chain (its match is 0 dB).
func prepare(tracks Tracks, plan Plan) (Tracks, bool) {
	ref, ok := tracks.First()
	if !ok {
		return Tracks{}, false
	}
	reference := tracks[ref].Conform(tracks[ref].SampleRate, audio.Channels)
	rate := reference.SampleRate

	var out Tracks
	for i, t := range tracks {
		if t == nil {
			continue
		}
		b := t.Conform(rate, audio.Channels)
		b = audio.Normalize(reference, b)
		b = b.Gain(plan.GainDB[i])
		b = b.Pan(plan.Pan[i])
		out[i] = b
	}
	return out, true
}

// place lays track onto canvas at offsetMs. With no crossfade the track is
// simply summed in. Otherwise the canvas region [off, off+xf) is faded out,
// the track's first xf is faded in, the blend replaces that region, and the
// rest of the track is summed in from off+xf. xf never exceeds the track.
func place(canvas, track *audio.Buffer, offsetMs, crossfadeMs int, shape audio.Shape) *audio.Buffer {
	at := canvas.FramesForMs(offsetMs)
	n := track.Frames()
	if n == 0 {
		return canvas
	}
	canvas = canvas.PadFrames(at + n)

	xf := min(canvas.FramesForMs(crossfadeMs), n)
	if xf == 0 {
		return canvas.OverlayFrames(track, at)
	}

	region := canvas.SliceFrames(at, at+xf)
	blended := audio.Crossfade(region, track.SliceFrames(0, xf), shape)
	canvas = canvas.SpliceFrames(at, blended)
	if n > xf {
		canvas = canvas.OverlayFrames(track.SliceFrames(xf, n), at+xf)
	}
	return canvas
}
