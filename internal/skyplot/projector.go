// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skyplot

import (
	"image/color"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
	"github.com/relabs-tech/gnss_skyplot/internal/orientation"
)

// Drawable is one satellite glyph placed on the plot.
type Drawable struct {
	Svid          int                `json:"svid"`
	Constellation gnss.Constellation `json:"constellation"`
	X             float64            `json:"x"`
	Y             float64            `json:"y"`
	Shape         Shape              `json:"shape"`
	Fill          color.RGBA         `json:"fill"`
	Stroke        Stroke             `json:"stroke"`
	Cn0DbHz       float64            `json:"cn0_dbhz"`
	UsedInFix     bool               `json:"used_in_fix"`
}

// Stats summarizes a snapshot.
type Stats struct {
	AvgCn0InView    float64 `json:"avg_cn0_in_view"`
	AvgCn0UsedInFix float64 `json:"avg_cn0_used_in_fix"`
	InView          int     `json:"in_view"`
	UsedInFix       int     `json:"used_in_fix"`
}

// Frame is everything needed to paint one sky plot. A published frame is
// never modified.
type Frame struct {
	Geometry       Geometry   `json:"geometry"`
	Satellites     []Drawable `json:"satellites"`
	Stats          Stats      `json:"stats"`
	OrientationDeg float64    `json:"orientation_deg"`
	TiltDeg        float64    `json:"tilt_deg"`
}

// Project turns a snapshot into a frame for the given orientation.
// Satellites without valid angles are left out of the drawing but still
// count in the stats.
func Project(snapshot []gnss.Satellite, o orientation.Orientation, g Geometry) Frame {
	f := Frame{
		Geometry:       g,
		Satellites:     make([]Drawable, 0, len(snapshot)),
		Stats:          ComputeStats(snapshot),
		OrientationDeg: orientation.NormalizeDeg(o.OrientationDeg),
		TiltDeg:        o.TiltDeg,
	}
	for _, s := range snapshot {
		if !s.HasValidAngles {
			continue
		}
		x, y := g.Position(s.ElevationDeg, s.AzimuthDeg, f.OrientationDeg)
		f.Satellites = append(f.Satellites, Drawable{
			Svid:          s.Svid,
			Constellation: s.Constellation,
			X:             x,
			Y:             y,
			Shape:         ShapeFor(s.Constellation),
			Fill:          Cn0Color(s.Cn0DbHz),
			Stroke:        StrokeFor(s.UsedInFix),
			Cn0DbHz:       s.Cn0DbHz,
			UsedInFix:     s.UsedInFix,
		})
	}
	return f
}

// ComputeStats averages C/N0 over satellites in view (non-zero C/N0) and
// over those used in the fix. Empty groups average to zero.
func ComputeStats(snapshot []gnss.Satellite) Stats {
	var inView, used []float64
	for _, s := range snapshot {
		if s.Cn0DbHz != 0 {
			inView = append(inView, s.Cn0DbHz)
		}
		if s.UsedInFix {
			used = append(used, s.Cn0DbHz)
		}
	}
	return Stats{
		AvgCn0InView:    mean(inView),
		AvgCn0UsedInFix: mean(used),
		InView:          len(inView),
		UsedInFix:       len(used),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
