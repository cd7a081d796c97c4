// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skyplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
)

// Shape is the glyph drawn for a satellite.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeSquare
	ShapeTriangle
	ShapeDiamond
	ShapePentagon
	ShapeHexagon
	ShapeOctagon
	ShapeCross
)

func (s Shape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapeSquare:
		return "square"
	case ShapeTriangle:
		return "triangle"
	case ShapeDiamond:
		return "diamond"
	case ShapePentagon:
		return "pentagon"
	case ShapeHexagon:
		return "hexagon"
	case ShapeOctagon:
		return "octagon"
	case ShapeCross:
		return "cross"
	default:
		return "unknown"
	}
}

// MarshalText encodes the shape by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(text []byte) error {
	for c := ShapeCircle; c <= ShapeCross; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown shape %q", text)
}

// ShapeFor returns the glyph of a constellation family.
func ShapeFor(c gnss.Constellation) Shape {
	switch c {
	case gnss.GPS:
		return ShapeCircle
	case gnss.SBAS:
		return ShapeDiamond
	case gnss.GLONASS:
		return ShapeSquare
	case gnss.QZSS:
		return ShapeHexagon
	case gnss.Beidou:
		return ShapePentagon
	case gnss.Galileo:
		return ShapeTriangle
	case gnss.IRNSS:
		return ShapeOctagon
	default:
		return ShapeCross
	}
}

// Stroke is the outline of a glyph.
type Stroke struct {
	Width float64    `json:"width"`
	Color color.RGBA `json:"color"`
}

var (
	usedStroke   = Stroke{Width: 2.5, Color: color.RGBA{A: 0xFF}}
	unusedStroke = Stroke{Width: 1, Color: color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}}
)

// StrokeFor returns the outline for a satellite: thick and dark when used in
// the fix, thin and grey otherwise.
func StrokeFor(usedInFix bool) Stroke {
	if usedInFix {
		return usedStroke
	}
	return unusedStroke
}

type point struct{ x, y float64 }

// outline returns the polygon of a shape centred on (cx, cy) with
// circumradius r, clockwise in screen coordinates.
func outline(s Shape, cx, cy, r float64) []point {
	switch s {
	case ShapeSquare:
		return regular(4, cx, cy, r*math.Sqrt2, math.Pi/4)
	case ShapeTriangle:
		return regular(3, cx, cy, r*1.2, 0)
	case ShapeDiamond:
		return regular(4, cx, cy, r*1.2, 0)
	case ShapePentagon:
		return regular(5, cx, cy, r*1.1, 0)
	case ShapeHexagon:
		return regular(6, cx, cy, r, math.Pi/6)
	case ShapeOctagon:
		return regular(8, cx, cy, r, math.Pi/8)
	case ShapeCross:
		return cross(cx, cy, r)
	default:
		return regular(24, cx, cy, r, 0)
	}
}

// regular builds an n-gon whose first vertex sits rot radians clockwise
// from straight up.
func regular(n int, cx, cy, r, rot float64) []point {
	pts := make([]point, n)
	for i := range pts {
		a := rot + 2*math.Pi*float64(i)/float64(n)
		pts[i] = point{cx + r*math.Sin(a), cy - r*math.Cos(a)}
	}
	return pts
}

func cross(cx, cy, r float64) []point {
	t := r / 3
	rel := []point{
		{-t, -r}, {t, -r}, {t, -t}, {r, -t}, {r, t}, {t, t},
		{t, r}, {-t, r}, {-t, t}, {-r, t}, {-r, -t}, {-t, -t},
	}
	for i := range rel {
		rel[i].x += cx
		rel[i].y += cy
	}
	return rel
}
