package confluence

import "github.com/satindergrewal/confluence/internal/audio"

// Concat appends every present track in slot order with no gap and no
// blending, then applies the peak limiter. Absent slots contribute nothing.
// Later tracks are conformed to the first present track's format, so the
// result's frame count is the sum of the conformed inputs'. A headroom that is
// not positive and finite means audio.DefaultHeadroomDB. It returns
// ErrNoInput when no slot is present.
func Concat(tracks Tracks, headroomDB float64) (*audio.Buffer, error) {
	ref, ok := tracks.First()
	if !ok {
		return nil, ErrNoInput
	}
	if !finite(headroomDB) || headroomDB <= 0 {
		headroomDB = audio.DefaultHeadroomDB
	}
	first := tracks[ref].Conform(tracks[ref].SampleRate, tracks[ref].Channels)
	rate, ch := first.SampleRate, first.Channels

	parts := make([]*audio.Buffer, 0, Slots)
	total := 0
	for _, t := range tracks {
		if t == nil {
			continue
		}
		b := t.Conform(rate, ch)
		parts = append(parts, b)
		total += b.Frames()
	}

	out := audio.SilenceFrames(rate, ch, total)
	pos := 0
	for _, b := range parts {
		pos += copy(out.Samples[pos:], b.Samples[:b.Frames()*b.Channels])
	}
	return audio.Limit(out, headroomDB), nil
}
