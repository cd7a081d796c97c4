// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skyplot

import (
	"image/color"
	"math"
)

// Cn0Thresholds are the C/N0 breakpoints (dB-Hz) of the fill scale.
var Cn0Thresholds = [4]float64{10, 21.67, 33.3, 45}

// Cn0Colors are the fill colors at each threshold: weak to strong.
var Cn0Colors = [4]color.RGBA{
	{R: 0xF4, G: 0x43, B: 0x36, A: 0xFF}, // red
	{R: 0xFF, G: 0xC1, B: 0x07, A: 0xFF}, // amber
	{R: 0xCD, G: 0xDD, B: 0x39, A: 0xFF}, // lime
	{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}, // green
}

// Cn0Color returns the fill color for a C/N0 value. Values on a threshold
// get that threshold's color, values between two thresholds interpolate each
// channel linearly, values outside the scale clamp to the end colors.
func Cn0Color(cn0 float64) color.RGBA {
	last := len(Cn0Thresholds) - 1
	switch {
	case math.IsNaN(cn0) || cn0 <= Cn0Thresholds[0]:
		return Cn0Colors[0]
	case cn0 >= Cn0Thresholds[last]:
		return Cn0Colors[last]
	}
	for i := 1; i <= last; i++ {
		hi := Cn0Thresholds[i]
		if cn0 > hi {
			continue
		}
		if cn0 == hi {
			return Cn0Colors[i]
		}
		lo := Cn0Thresholds[i-1]
		return lerpRGBA(Cn0Colors[i-1], Cn0Colors[i], (cn0-lo)/(hi-lo))
	}
	return Cn0Colors[last]
}

func lerpRGBA(a, b color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: lerp8(a.R, b.R, f),
		G: lerp8(a.G, b.G, f),
		B: lerp8(a.B, b.B, f),
		A: 0xFF,
	}
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}
