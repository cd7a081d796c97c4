// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// NMEA 4.10 GNSS system ids carried by GSA.
const (
	systemGPS     = 1
	systemGLONASS = 2
	systemGalileo = 3
	systemBeidou  = 4
	systemQZSS    = 5
	systemIRNSS   = 6
)

// StatusDecoder turns GSV/GSA sentences into status samples.
// It keeps the used-in-fix set reported by the latest GSA of each
// constellation. Not safe for concurrent use; one decoder per serial port.
type StatusDecoder struct {
	used map[Constellation]map[int]bool
}

// NewStatusDecoder returns an empty decoder.
func NewStatusDecoder() *StatusDecoder {
	return &StatusDecoder{used: make(map[Constellation]map[int]bool)}
}

// Decode consumes one parsed sentence and returns the status samples it
// carries. Only GSV produces samples; GSA updates fix usage; everything else
// is ignored.
func (d *StatusDecoder) Decode(s nmea.Sentence) []StatusSample {
	switch s.DataType() {
	case nmea.TypeGSA:
		m := s.(nmea.GSA)
		d.applyGSA(s.TalkerID(), m)
		return nil
	case nmea.TypeGSV:
		m := s.(nmea.GSV)
		return d.decodeGSV(s.TalkerID(), m)
	default:
		return nil
	}
}

func (d *StatusDecoder) applyGSA(talker string, m nmea.GSA) {
	base := talkerConstellation(talker)
	if talker == "GN" {
		base = systemConstellation(m.SystemID)
	}
	sets := make(map[Constellation]map[int]bool)
	if base != Unknown {
		// An empty GSA clears the constellation it speaks for.
		sets[base] = make(map[int]bool)
	}
	for _, field := range m.SV {
		prn, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || prn == 0 {
			continue
		}
		c, svid := resolvePRN(base, prn)
		if sets[c] == nil {
			sets[c] = make(map[int]bool)
		}
		sets[c][svid] = true
	}
	for c, set := range sets {
		d.used[c] = set
	}
}

// UsedInFix reports whether the latest GSA listed the satellite.
func (d *StatusDecoder) UsedInFix(c Constellation, svid int) bool {
	return d.used[c][svid]
}

func (d *StatusDecoder) decodeGSV(talker string, m nmea.GSV) []StatusSample {
	base := talkerConstellation(talker)
	samples := make([]StatusSample, 0, len(m.Info))
	for _, info := range m.Info {
		if info.SVPRNNumber == 0 {
			continue
		}
		c, svid := resolvePRN(base, int(info.SVPRNNumber))
		elev := float64(info.Elevation)
		az := float64(info.Azimuth)
		// Receivers leave both fields blank until the almanac resolves a position.
		if info.Elevation == 0 && info.Azimuth == 0 {
			elev, az = NoData, NoData
		}
		samples = append(samples, StatusSample{
			Constellation: c,
			Svid:          svid,
			ElevationDeg:  elev,
			AzimuthDeg:    az,
			Cn0DbHz:       float64(info.SNR),
			UsedInFix:     d.used[c][svid],
		})
	}
	return samples
}

func talkerConstellation(talker string) Constellation {
	switch talker {
	case "GP":
		return GPS
	case "GL":
		return GLONASS
	case "GA":
		return Galileo
	case "GB", "BD":
		return Beidou
	case "GQ", "QZ":
		return QZSS
	case "GI":
		return IRNSS
	default:
		return Unknown
	}
}

func systemConstellation(id int64) Constellation {
	switch id {
	case systemGPS:
		return GPS
	case systemGLONASS:
		return GLONASS
	case systemGalileo:
		return Galileo
	case systemBeidou:
		return Beidou
	case systemQZSS:
		return QZSS
	case systemIRNSS:
		return IRNSS
	default:
		return Unknown
	}
}

// resolvePRN maps an NMEA satellite number to a constellation and svid in the
// platform numbering. base is the constellation implied by the talker, or
// Unknown for GN sentences where the number range decides.
func resolvePRN(base Constellation, prn int) (Constellation, int) {
	switch {
	case prn >= 33 && prn <= 64 && (base == GPS || base == Unknown):
		return SBAS, prn + 87
	case prn >= 65 && prn <= 96 && (base == GLONASS || base == Unknown):
		return GLONASS, prn - 64
	case prn >= 193 && prn <= 202 && (base == QZSS || base == GPS || base == Unknown):
		return QZSS, prn
	case prn >= 201 && prn <= 263 && (base == Beidou || base == Unknown):
		return Beidou, prn - 200
	case base == Unknown && prn >= 1 && prn <= 32:
		return GPS, prn
	default:
		return base, prn
	}
}
