// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"time"

	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
)

// DefaultStalenessWindow is how long a measurement stays usable without a
// refresh.
const DefaultStalenessWindow = 5 * time.Second

// MeasurementState is the lifecycle state of a measurement identity.
type MeasurementState int

const (
	Absent MeasurementState = iota // no record for the identity yet
	Fresh                          // refreshed within the window
	Stale                          // window elapsed, excluded from fusion
)

func (s MeasurementState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "invalid"
	}
}

// MeasurementRecord is the latest measurement for one identity. Owned by the
// Engine and only touched under its lock.
type MeasurementRecord struct {
	Identity              gnss.Identity
	HasAgc                bool
	AgcDb                 float64
	LastReceivedTimeNanos int64
	TimedOut              bool
	// Generation counts logical records: it increases each time a sample
	// arrives for a timed-out record.
	Generation int
}

// State returns Fresh or Stale. A nil record is Absent.
func (r *MeasurementRecord) State() MeasurementState {
	switch {
	case r == nil:
		return Absent
	case r.TimedOut:
		return Stale
	default:
		return Fresh
	}
}

// Refresh applies a sample and reports whether it was accepted. Samples
// older than the last accepted one are dropped. A refresh of a stale record
// starts a new logical record.
func (r *MeasurementRecord) Refresh(agcDb float64, hasAgc bool, receivedTimeNanos int64) bool {
	if !r.TimedOut && receivedTimeNanos < r.LastReceivedTimeNanos {
		return false
	}
	if r.TimedOut {
		r.TimedOut = false
		r.Generation++
	}
	r.HasAgc = hasAgc
	r.AgcDb = agcDb
	if !hasAgc {
		r.AgcDb = 0
	}
	r.LastReceivedTimeNanos = receivedTimeNanos
	return true
}

// Sweep marks the record stale when more than window has passed since the
// last refresh. It returns true on the FRESH -> STALE transition only.
func (r *MeasurementRecord) Sweep(nowNanos int64, window time.Duration) bool {
	if r.TimedOut {
		return false
	}
	if nowNanos-r.LastReceivedTimeNanos > int64(window) {
		r.TimedOut = true
		return true
	}
	return false
}

func newMeasurementRecord(id gnss.Identity, agcDb float64, hasAgc bool, receivedTimeNanos int64) *MeasurementRecord {
	r := &MeasurementRecord{Identity: id, Generation: 1}
	r.Refresh(agcDb, hasAgc, receivedTimeNanos)
	return r
}
