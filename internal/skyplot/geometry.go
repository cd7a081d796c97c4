// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skyplot

import "math"

// Geometry describes the drawing surface of a sky plot.
type Geometry struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	GlyphRadius float64 `json:"glyph_radius"`
}

// DefaultGeometry is used by the web sky plot.
var DefaultGeometry = Geometry{Width: 400, Height: 400, GlyphRadius: 12}

// Center returns the screen position of the zenith.
func (g Geometry) Center() (x, y float64) {
	return float64(g.Width) / 2, float64(g.Height) / 2
}

// MaxRadius is the radius of the outer rim.
func (g Geometry) MaxRadius() float64 {
	return float64(min(g.Width, g.Height)) / 2
}

// ElevationRadius maps elevation to distance from the center: 90° is the
// center, 0° is the rim pulled in by one glyph radius so horizon glyphs stay
// on screen. Elevation is clamped to [0, 90].
func (g Geometry) ElevationRadius(elevationDeg float64) float64 {
	e := math.Max(0, math.Min(90, elevationDeg))
	return (g.MaxRadius() - g.GlyphRadius) * (1 - e/90)
}

// Position returns the screen coordinates of a satellite. Azimuth 0 points
// up when the device orientation is 0.
func (g Geometry) Position(elevationDeg, azimuthDeg, orientationDeg float64) (x, y float64) {
	r := g.ElevationRadius(elevationDeg)
	a := (azimuthDeg - orientationDeg) * math.Pi / 180
	cx, cy := g.Center()
	return cx + r*math.Sin(a), cy - r*math.Cos(a)
}
