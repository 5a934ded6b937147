package confluence

import "github.com/satindergrewal/confluence/internal/audio"

// Result is one rendered confluence plus the facts callers report about it.
type Result struct {
	Buffer  *audio.Buffer
	Engine  Engine
	Offsets Offsets // zero for Concatenate
	Tracks  int     // present slots that went in
}

// DurationMs returns the rendered length.
func (r *Result) DurationMs() int { return r.Buffer.LengthMs() }

// PeakDBFS returns the rendered peak level.
func (r *Result) PeakDBFS() float64 { return r.Buffer.PeakDBFS() }

// Render runs the engine selected by plan.Engine.
func Render(tracks Tracks, plan Plan) (*Result, error) {
	plan = plan.Sanitize()
	res := &Result{Engine: plan.Engine, Tracks: tracks.Count()}

	var err error
	switch plan.Engine {
	case Concatenate:
		res.Buffer, err = Concat(tracks, plan.HeadroomDB)
	default:
		res.Buffer, res.Offsets, err = mix(tracks, plan)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
