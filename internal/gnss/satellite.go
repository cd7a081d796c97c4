// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

// NoData marks an elevation or azimuth the receiver has not reported yet.
const NoData = -999.0

// SatKey identifies a satellite on the status stream.
type SatKey struct {
	Constellation Constellation
	Svid          int
}

// Less orders keys by constellation, then svid.
func (k SatKey) Less(o SatKey) bool {
	if k.Constellation != o.Constellation {
		return k.Constellation < o.Constellation
	}
	return k.Svid < o.Svid
}

// StatusSample is one satellite from a status (fix-cycle) update.
type StatusSample struct {
	Constellation       Constellation `json:"constellation"`
	Svid                int           `json:"svid"`
	ElevationDeg        float64       `json:"elevation_deg"`         // NoData if unknown
	AzimuthDeg          float64       `json:"azimuth_deg"`           // NoData if unknown
	Cn0DbHz             float64       `json:"cn0_dbhz"`              // 0 when not received
	UsedInFix           bool          `json:"used_in_fix"`
	CarrierFrequencyHz  float64       `json:"carrier_frequency_hz"`  // valid if HasCarrierFrequency
	HasCarrierFrequency bool          `json:"has_carrier_frequency"`
}

// Key returns the status-stream key of the sample.
func (s StatusSample) Key() SatKey {
	return SatKey{Constellation: s.Constellation, Svid: s.Svid}
}

// HasValidAngles reports whether both angles were supplied.
func (s StatusSample) HasValidAngles() bool {
	return validAngles(s.ElevationDeg, s.AzimuthDeg)
}

// MeasurementSample is one satellite from a measurement update.
type MeasurementSample struct {
	Constellation      Constellation `json:"constellation"`
	Svid               int           `json:"svid"`
	CarrierFrequencyHz float64       `json:"carrier_frequency_hz"`
	AgcDb              float64       `json:"agc_db"`
	HasAgc             bool          `json:"has_agc"`
	ReceivedTimeNanos  int64         `json:"received_time_nanos"`
}

// Identity returns the frequency-binned identity of the sample.
func (m MeasurementSample) Identity() Identity {
	return MakeIdentity(m.Constellation, m.CarrierFrequencyHz)
}

// Key returns the status-stream key of the satellite that produced the sample.
func (m MeasurementSample) Key() SatKey {
	return SatKey{Constellation: m.Constellation, Svid: m.Svid}
}

// Satellite is the fused per-satellite record published in a snapshot.
// Values are copied out of the engine and never mutated afterwards.
type Satellite struct {
	Svid                int           `json:"svid"`
	Constellation       Constellation `json:"constellation"`
	ElevationDeg        float64       `json:"elevation_deg"`
	AzimuthDeg          float64       `json:"azimuth_deg"`
	Cn0DbHz             float64       `json:"cn0_dbhz"`
	UsedInFix           bool          `json:"used_in_fix"`
	HasValidAngles      bool          `json:"has_valid_angles"`
	CarrierFrequencyHz  float64       `json:"carrier_frequency_hz,omitempty"`
	HasCarrierFrequency bool          `json:"has_carrier_frequency"`
	AgcDb               float64       `json:"agc_db,omitempty"`
	HasAgc              bool          `json:"has_agc"`
}

// Key returns the (constellation, svid) key of the record.
func (s Satellite) Key() SatKey {
	return SatKey{Constellation: s.Constellation, Svid: s.Svid}
}

func validAngles(elev, az float64) bool {
	return elev != NoData && az != NoData
}
