// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "math"

// Pose is the attitude payload published on the pose topic.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Orientation is what the sky plot needs from the device attitude:
// the heading the top of the screen points to and how far the device is
// tilted away from level.
type Orientation struct {
	OrientationDeg float64 `json:"orientation_deg"` // [0, 360)
	TiltDeg        float64 `json:"tilt_deg"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// FromPose derives the sky-plot orientation from a pose. Yaw becomes the
// heading, pitch the tilt.
func FromPose(p Pose) Orientation {
	return Orientation{
		OrientationDeg: NormalizeDeg(p.Yaw),
		TiltDeg:        p.Pitch,
	}
}

// NormalizeDeg wraps an angle into [0, 360).
func NormalizeDeg(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}
