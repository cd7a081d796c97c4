// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion merges the status stream (keyed by constellation and svid)
// and the measurement stream (keyed by constellation and carrier frequency
// bin) into one deduplicated set of satellites.
//
// All state sits behind a single mutex. Producers call ApplyStatusSample and
// ApplyMeasurementSample from their own goroutines; renderers call Snapshot
// and get a slice they own. No call blocks on anything but the lock.
package fusion

import (
	"sync"
	"time"

	"github.com/relabs-tech/gnss_skyplot/internal/dedup"
	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
)

// Config holds Engine settings. Zero values select defaults.
type Config struct {
	// StalenessWindow applies to measurement identities and to status
	// entries. Default DefaultStalenessWindow.
	StalenessWindow time.Duration
	// Clock returns monotonic nanoseconds. Default: time since NewEngine.
	Clock func() int64
	// Metrics is optional.
	Metrics *Metrics
}

type statusEntry struct {
	sample      gnss.StatusSample
	updatedNano int64
}

// carrierEntry is the carrier a svid was last measured on.
type carrierEntry struct {
	frequencyHz  float64
	receivedNano int64
}

// Engine owns the fused satellite state.
type Engine struct {
	mu sync.Mutex

	window  time.Duration
	clock   func() int64
	metrics *Metrics

	status       map[gnss.SatKey]*statusEntry
	measurements map[gnss.Identity]*MeasurementRecord
	carriers     map[gnss.SatKey]carrierEntry
}

// NewEngine creates an empty engine.
func NewEngine(cfg Config) *Engine {
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = DefaultStalenessWindow
	}
	if cfg.Clock == nil {
		start := time.Now()
		cfg.Clock = func() int64 { return int64(time.Since(start)) }
	}
	return &Engine{
		window:       cfg.StalenessWindow,
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		status:       make(map[gnss.SatKey]*statusEntry),
		measurements: make(map[gnss.Identity]*MeasurementRecord),
		carriers:     make(map[gnss.SatKey]carrierEntry),
	}
}

// Now returns the engine clock. Producers without their own monotonic
// receive time stamp measurement samples with it.
func (e *Engine) Now() int64 {
	return e.clock()
}

// Window returns the staleness window in use.
func (e *Engine) Window() time.Duration {
	return e.window
}

// ApplyStatusSample upserts angles, C/N0 and fix usage for the sample's
// (constellation, svid). Missing angles are carried as gnss.NoData.
func (e *Engine) ApplyStatusSample(s gnss.StatusSample) {
	now := e.clock()

	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.status[s.Key()]
	if !ok {
		entry = &statusEntry{}
		e.status[s.Key()] = entry
	}
	entry.sample = s
	entry.updatedNano = now
	e.metrics.status(s.Constellation)
}

// ApplyMeasurementSample upserts the measurement record for the sample's
// identity and restarts its staleness window. It also remembers which
// carrier the svid was measured on.
func (e *Engine) ApplyMeasurementSample(m gnss.MeasurementSample) {
	id := m.Identity()

	e.mu.Lock()
	defer e.mu.Unlock()

	accepted := true
	rec, ok := e.measurements[id]
	if !ok {
		e.measurements[id] = newMeasurementRecord(id, m.AgcDb, m.HasAgc, m.ReceivedTimeNanos)
	} else {
		accepted = rec.Refresh(m.AgcDb, m.HasAgc, m.ReceivedTimeNanos)
	}
	e.metrics.measurement(m.Constellation, accepted)
	if !accepted || m.Svid <= 0 {
		return
	}

	prev, ok := e.carriers[m.Key()]
	if !ok || m.ReceivedTimeNanos >= prev.receivedNano {
		e.carriers[m.Key()] = carrierEntry{frequencyHz: m.CarrierFrequencyHz, receivedNano: m.ReceivedTimeNanos}
	}
}

// Snapshot sweeps stale measurements and returns the fused satellites
// ordered by (constellation, svid). The returned slice is not shared.
func (e *Engine) Snapshot() []gnss.Satellite {
	now := e.clock()

	e.mu.Lock()
	defer e.mu.Unlock()

	fresh := e.sweep(now)

	set := dedup.New(sameSatellite, satelliteLess)
	for key, entry := range e.status {
		if !e.within(now, entry.updatedNano) {
			continue
		}
		sat := fromStatus(entry.sample)
		freq, known := e.carrierFor(key, now)
		if known {
			sat.CarrierFrequencyHz = freq
			sat.HasCarrierFrequency = true
			e.attachAgc(&sat)
		}
		set.Insert(sat)
	}

	for key, carrier := range e.carriers {
		if entry, ok := e.status[key]; ok && e.within(now, entry.updatedNano) {
			continue
		}
		if !e.within(now, carrier.receivedNano) {
			continue
		}
		sat := gnss.Satellite{
			Svid:                key.Svid,
			Constellation:       key.Constellation,
			ElevationDeg:        gnss.NoData,
			AzimuthDeg:          gnss.NoData,
			CarrierFrequencyHz:  carrier.frequencyHz,
			HasCarrierFrequency: true,
		}
		e.attachAgc(&sat)
		set.Insert(sat)
	}

	e.metrics.snapshot(set.Len(), fresh)
	return set.Items()
}

// Purge drops stale measurement records and status or carrier entries that
// have been silent for longer than the window. It returns how many entries
// were removed.
func (e *Engine) Purge() int {
	now := e.clock()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sweep(now)
	removed := 0
	for id, rec := range e.measurements {
		if rec.TimedOut {
			delete(e.measurements, id)
			removed++
		}
	}
	for key, entry := range e.status {
		if !e.within(now, entry.updatedNano) {
			delete(e.status, key)
			removed++
		}
	}
	for key, c := range e.carriers {
		if !e.within(now, c.receivedNano) {
			delete(e.carriers, key)
			removed++
		}
	}
	return removed
}

// MeasurementState reports the state of an identity as of the last sweep.
func (e *Engine) MeasurementState(id gnss.Identity) MeasurementState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.measurements[id].State()
}

// sweep runs the staleness pass and returns the number of fresh identities.
// Callers hold e.mu.
func (e *Engine) sweep(now int64) int {
	fresh := 0
	for _, rec := range e.measurements {
		if rec.Sweep(now, e.window) {
			e.metrics.timeout(rec.Identity.Constellation)
		}
		if !rec.TimedOut {
			fresh++
		}
	}
	return fresh
}

func (e *Engine) within(now, stamp int64) bool {
	return now-stamp <= int64(e.window)
}

// carrierFor resolves the carrier of a svid: the status stream wins when it
// reports one, otherwise the last fresh measurement of that svid.
func (e *Engine) carrierFor(key gnss.SatKey, now int64) (float64, bool) {
	if entry, ok := e.status[key]; ok && entry.sample.HasCarrierFrequency {
		return entry.sample.CarrierFrequencyHz, true
	}
	if c, ok := e.carriers[key]; ok && e.within(now, c.receivedNano) {
		return c.frequencyHz, true
	}
	return 0, false
}

// attachAgc copies the AGC of the matching fresh identity onto sat.
func (e *Engine) attachAgc(sat *gnss.Satellite) {
	rec := e.measurements[gnss.MakeIdentity(sat.Constellation, sat.CarrierFrequencyHz)]
	if rec.State() != Fresh || !rec.HasAgc {
		return
	}
	sat.AgcDb = rec.AgcDb
	sat.HasAgc = true
}

func fromStatus(s gnss.StatusSample) gnss.Satellite {
	sat := gnss.Satellite{
		Svid:           s.Svid,
		Constellation:  s.Constellation,
		ElevationDeg:   s.ElevationDeg,
		AzimuthDeg:     s.AzimuthDeg,
		Cn0DbHz:        s.Cn0DbHz,
		UsedInFix:      s.UsedInFix,
		HasValidAngles: s.HasValidAngles(),
	}
	if !sat.HasValidAngles {
		sat.ElevationDeg, sat.AzimuthDeg = gnss.NoData, gnss.NoData
	}
	return sat
}

func sameSatellite(a, b gnss.Satellite) bool {
	return a.Key() == b.Key()
}

func satelliteLess(a, b gnss.Satellite) bool {
	return a.Key().Less(b.Key())
}
