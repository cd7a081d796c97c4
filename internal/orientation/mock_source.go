// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that turns slowly and
// rocks a little, like a handheld receiver.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Pose, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return Pose{
		Roll:  3 * math.Sin(elapsed*0.9),
		Pitch: 5 * math.Cos(elapsed*0.7),
		Yaw:   math.Mod(elapsed*6, 360),
	}, nil
}
