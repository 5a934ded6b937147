package confluence

// Offsets are resolved absolute start times in ms, one per slot. Every
// value is >= 0. Entries for absent slots are 0 and carry no meaning.
type Offsets [Slots]int

// Resolve turns a per-slot placement into absolute start times.
//
// The first present slot is always the origin (0). In Absolute mode every
// other present slot starts at max(0, placement[i]) independently of the
// rest. In Anchored mode a present slot is chained to the nearest preceding
// present slot j, skipping absent ones:
//
//	offset[i] = max(0, offset[j] + len(j) - placement[i])
//
// Lengths are read from tracks at call time.
func Resolve(tracks Tracks, mode Mode, placement [Slots]int) Offsets {
	var off Offsets
	first, ok := tracks.First()
	if !ok {
		return off
	}
	for i := first + 1; i < Slots; i++ {
		if !tracks.Present(i) {
			continue
		}
		switch mode {
		case Anchored:
			j := tracks.prevPresent(i)
			if j < 0 {
				continue
			}
			off[i] = max(0, off[j]+tracks[j].LengthMs()-placement[i])
		default:
			off[i] = max(0, placement[i])
		}
	}
	return off
}
