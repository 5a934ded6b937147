package server

import (
	"fmt"
	"math"
	"strings"

	"github.com/satindergrewal/confluence/internal/ambience"
	"github.com/satindergrewal/confluence/internal/audio"
	"github.com/satindergrewal/confluence/internal/config"
	"github.com/satindergrewal/confluence/internal/confluence"
)

// planRequest is the JSON body shared by /preview and /render. Missing
// arrays, and arrays shorter than five, take their defaults slot by slot.
type planRequest struct {
	Mode           string    `json:"mode"`
	Engine         string    `json:"engine"`
	PlacementMs    []float64 `json:"placement_ms"`
	CrossfadeMs    []float64 `json:"crossfade_ms"`
	GainDB         []float64 `json:"gain_db"`
	Pan            []float64 `json:"pan"`
	Ambience       string    `json:"ambience"`
	AmbienceGainDB *float64  `json:"ambience_gain_db"`
	Curve          string    `json:"curve"`
	Seed           uint64    `json:"seed"`
	PreviewFull    *bool     `json:"preview_full"`
}

// maxMs bounds request times when no timeline cap is configured.
const maxMs = 24 * 60 * 60 * 1000

// plan builds the render plan. Placements are clamped to
// ±cfg.MaxTimelineMs and crossfades to [0, cfg.MaxTimelineMs], which bounds
// the canvas a request can allocate.
func (r planRequest) plan(cfg config.Config) (confluence.Plan, error) {
	mode, err := confluence.ParseMode(r.Mode)
	if err != nil {
		return confluence.Plan{}, err
	}
	engine, err := parseEngine(r.Engine)
	if err != nil {
		return confluence.Plan{}, err
	}
	kind, err := ambience.ParseKind(r.Ambience)
	if err != nil {
		return confluence.Plan{}, err
	}
	curve, err := audio.ParseShape(r.Curve)
	if err != nil {
		return confluence.Plan{}, err
	}

	p := confluence.DefaultPlan(mode)
	p.Engine = engine
	p.Curve = curve
	p.Seed = r.Seed
	p.HeadroomDB = cfg.HeadroomDB
	p.Ambience = confluence.Ambience{Kind: kind, GainDB: cfg.AmbienceGainDB}
	if r.AmbienceGainDB != nil {
		p.Ambience.GainDB = *r.AmbienceGainDB
	}

	limit := cfg.MaxTimelineMs
	if limit <= 0 || limit > maxMs {
		limit = maxMs
	}
	fillMs(&p.Placement, r.PlacementMs, -limit, limit)
	fillMs(&p.Crossfade, r.CrossfadeMs, 0, limit)
	fillFloat(&p.GainDB, r.GainDB)
	fillFloat(&p.Pan, r.Pan)
	return p.Sanitize(), nil
}

func (r planRequest) previewFull() bool {
	return r.PreviewFull == nil || *r.PreviewFull
}

// parseEngine also accepts the short names "mix" and "concat".
func parseEngine(s string) (confluence.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mix":
		return confluence.Overlay, nil
	case "concat":
		return confluence.Concatenate, nil
	}
	e, err := confluence.ParseEngine(s)
	if err != nil {
		return e, fmt.Errorf("engine: %w", err)
	}
	return e, nil
}

func fillMs(dst *[confluence.Slots]int, src []float64, lo, hi int) {
	for i := 0; i < confluence.Slots && i < len(src); i++ {
		v := src[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		dst[i] = int(math.Round(max(float64(lo), min(float64(hi), v))))
	}
}

func fillFloat(dst *[confluence.Slots]float64, src []float64) {
	for i := 0; i < confluence.Slots && i < len(src); i++ {
		dst[i] = src[i]
	}
}
