package confluence

import (
	"fmt"
	"math"
	"strings"

	"github.com/satindergrewal/confluence/internal/ambience"
	"github.com/satindergrewal/confluence/internal/audio"
)

// Mode selects how Placement is interpreted.
type Mode int

const (
	// Absolute: Placement[i] is the slot's start in ms from the origin.
	Absolute Mode = iota
	// Anchored: Placement[i] is a lead time before the previous present
	// slot's end. Positive overlaps, zero butts up, negative leaves a gap.
	Anchored
)

func (m Mode) String() string {
	if m == Anchored {
		return "anchored"
	}
	return "absolute"
}

// ParseMode maps "absolute" (or "") and "anchored".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absolute":
		return Absolute, nil
	case "anchored":
		return Anchored, nil
	}
	return Absolute, fmt.Errorf("unknown mode %q", s)
}

// Engine selects the renderer.
type Engine int

const (
	Overlay Engine = iota
	Concatenate
)

func (e Engine) String() string {
	if e == Concatenate {
		return "concatenate"
	}
	return "overlay"
}

// ParseEngine maps "overlay" (or "") and "concatenate".
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overlay":
		return Overlay, nil
	case "concatenate":
		return Concatenate, nil
	}
	return Overlay, fmt.Errorf("unknown engine %q", s)
}

// Ambience configures the optional bed laid under the whole mix.
type Ambience struct {
	Kind   ambience.Kind
	GainDB float64
}

// Plan describes one mix request. Arrays are index-aligned with the slots.
type Plan struct {
	Mode   Mode
	Engine Engine

	Placement [Slots]int     // ms; meaning depends on Mode
	Crossfade [Slots]int     // ms; 0 is a hard overlap
	GainDB    [Slots]float64 // user trim after loudness matching
	Pan       [Slots]float64 // -1 (left) .. +1 (right)

	Ambience   Ambience
	Curve      audio.Shape
	HeadroomDB float64
	Seed       uint64
}

var (
	defaultAbsolutePlacement = [Slots]int{0, 14000, 28000, 42000, 56000}
	defaultCrossfade         = [Slots]int{0, 5000, 5000, 5000, 5000}
	defaultPan               = [Slots]float64{0, -0.35, 0.35, -0.2, 0.2}
)

// DefaultPlacement returns the default placement for mode.
func DefaultPlacement(mode Mode) [Slots]int {
	if mode == Anchored {
		return [Slots]int{}
	}
	return defaultAbsolutePlacement
}

// DefaultCrossfade returns the default per-slot crossfades.
func DefaultCrossfade() [Slots]int { return defaultCrossfade }

// DefaultPan returns the default stereo spread.
func DefaultPan() [Slots]float64 { return defaultPan }

// DefaultPlan returns a complete plan for mode with the stock spread.
func DefaultPlan(mode Mode) Plan {
	return Plan{
		Mode:       mode,
		Engine:     Overlay,
		Placement:  DefaultPlacement(mode),
		Crossfade:  defaultCrossfade,
		Pan:        defaultPan,
		Ambience:   Ambience{Kind: ambience.None, GainDB: ambience.DefaultGainDB},
		Curve:      audio.ShapeEqualPower,
		HeadroomDB: audio.DefaultHeadroomDB,
	}
}

// Sanitize clamps every field into its valid range: negative crossfades
// become 0, pans are clamped to [-1, 1], non-finite gains and pans fall back
// to their defaults. A zero, negative or non-finite headroom means
// audio.DefaultHeadroomDB, so the zero Plan limits like DefaultPlan does.
func (p Plan) Sanitize() Plan {
	for i := 0; i < Slots; i++ {
		if p.Crossfade[i] < 0 {
			p.Crossfade[i] = 0
		}
		if !finite(p.GainDB[i]) {
			p.GainDB[i] = 0
		}
		switch {
		case !finite(p.Pan[i]):
			p.Pan[i] = defaultPan[i]
		case p.Pan[i] < -1:
			p.Pan[i] = -1
		case p.Pan[i] > 1:
			p.Pan[i] = 1
		}
	}
	if !finite(p.Ambience.GainDB) {
		p.Ambience.GainDB = ambience.DefaultGainDB
	}
	if !finite(p.HeadroomDB) || p.HeadroomDB <= 0 {
		p.HeadroomDB = audio.DefaultHeadroomDB
	}
	return p
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
