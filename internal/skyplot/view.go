// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skyplot

import (
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
	"github.com/relabs-tech/gnss_skyplot/internal/orientation"
)

// View holds the latest orientation and the latest projected frame.
// Readers never block the refresh loop.
type View struct {
	geometry Geometry

	mu          sync.RWMutex
	orientation orientation.Orientation

	frame atomic.Pointer[Frame]
}

func NewView(g Geometry) *View {
	return &View{geometry: g}
}

func (v *View) Geometry() Geometry {
	return v.geometry
}

// SetOrientation records the device orientation used by the next Refresh.
func (v *View) SetOrientation(o orientation.Orientation) {
	v.mu.Lock()
	v.orientation = o
	v.mu.Unlock()
}

func (v *View) Orientation() orientation.Orientation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.orientation
}

// Refresh projects a snapshot with the current orientation and publishes
// the result.
func (v *View) Refresh(snapshot []gnss.Satellite) Frame {
	f := Project(snapshot, v.Orientation(), v.geometry)
	v.frame.Store(&f)
	return f
}

// Frame returns the last published frame, false before the first Refresh.
func (v *View) Frame() (Frame, bool) {
	f := v.frame.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Stats returns the stats of the last frame, zero before the first Refresh.
func (v *View) Stats() Stats {
	f, _ := v.Frame()
	return f.Stats
}

func (v *View) AvgCn0InView() float64 {
	return v.Stats().AvgCn0InView
}

func (v *View) AvgCn0UsedInFix() float64 {
	return v.Stats().AvgCn0UsedInFix
}
