// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim generates a plausible GNSS sky for the mock producer. Orbits
// are synthetic two-line element sets propagated with SGP4, so satellites
// rise, cross and set like real ones.
package sim

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	gpsL1Hz     = 1_575_420_000.0
	glonassL1Hz = 1_602_000_000.0
	glonassStep = 562_500.0
	beidouB1Hz  = 1_561_098_000.0
	irnssL5Hz   = 1_176_450_000.0

	// usedElevationDeg is the mask above which a simulated receiver uses a
	// satellite in its fix.
	usedElevationDeg = 15.0
)

// Observer is the receiver position.
type Observer struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeKm   float64
}

// shell describes one constellation's orbits.
type shell struct {
	constellation gnss.Constellation
	firstSvid     int
	planes        int
	perPlane      int
	inclination   float64 // degrees
	meanMotion    float64 // revolutions per day
	raanOffset    float64 // degrees
}

var shells = []shell{
	{gnss.GPS, 1, 6, 4, 55, 2.00563, 0},
	{gnss.GLONASS, 1, 3, 6, 64.8, 2.13102, 15},
	{gnss.Galileo, 1, 3, 6, 56, 1.70475, 40},
	{gnss.Beidou, 19, 3, 6, 55, 1.86232, 25},
	{gnss.QZSS, 193, 1, 3, 41, 1.00270, 135},
	{gnss.SBAS, 120, 1, 3, 0.1, 1.00270, 0},
	{gnss.IRNSS, 1, 1, 3, 29, 1.00270, 80},
}

type body struct {
	constellation gnss.Constellation
	svid          int
	sat           satellite.Satellite
}

// Sky is a fixed set of simulated satellites seen from one observer.
type Sky struct {
	observer Observer
	bodies   []body
}

// NewSky builds the simulated constellations with elements at epoch.
func NewSky(observer Observer, epoch time.Time) (*Sky, error) {
	s := &Sky{observer: observer}
	catalog := 90000
	for _, sh := range shells {
		n := 0
		for p := 0; p < sh.planes; p++ {
			for k := 0; k < sh.perPlane; k++ {
				raan := math.Mod(sh.raanOffset+float64(p)*360/float64(sh.planes), 360)
				anomaly := math.Mod(float64(k)*360/float64(sh.perPlane)+float64(p)*15, 360)
				l1, l2 := elementSet(catalog, epoch, sh.inclination, raan, 0.0001, 0, anomaly, sh.meanMotion)
				// go-satellite exits the process on unparsable lines.
				if len(l1) != 69 || len(l2) != 69 {
					return nil, fmt.Errorf("sim: element set %d has bad layout", catalog)
				}
				sat := satellite.TLEToSat(l1, l2, satellite.GravityWGS84)
				if sat.Error != 0 {
					return nil, fmt.Errorf("sim: sgp4 init failed for %s %d: %s", sh.constellation, sh.firstSvid+n, sat.ErrorStr)
				}
				s.bodies = append(s.bodies, body{
					constellation: sh.constellation,
					svid:          sh.firstSvid + n,
					sat:           sat,
				})
				catalog++
				n++
			}
		}
	}
	return s, nil
}

// Len returns the number of simulated satellites, visible or not.
func (s *Sky) Len() int {
	return len(s.bodies)
}

// lookAngles returns elevation and azimuth in degrees of one satellite.
func (s *Sky) lookAngles(b body, t time.Time) (elevation, azimuth float64) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, _ := satellite.Propagate(b.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	obs := satellite.LatLong{
		Latitude:  s.observer.LatitudeDeg * deg2rad,
		Longitude: s.observer.LongitudeDeg * deg2rad,
	}
	look := satellite.ECIToLookAngles(pos, obs, s.observer.AltitudeKm, jd)
	return look.El * rad2deg, math.Mod(look.Az*rad2deg+360, 360)
}

// Samples returns status and measurement samples for every satellite above
// the horizon at t. Measurement samples carry no receive time; the consumer
// stamps them.
func (s *Sky) Samples(t time.Time) ([]gnss.StatusSample, []gnss.MeasurementSample) {
	var status []gnss.StatusSample
	var meas []gnss.MeasurementSample
	sec := float64(t.Unix()%3600) + float64(t.Nanosecond())/1e9

	for _, b := range s.bodies {
		elev, az := s.lookAngles(b, t)
		elev, az = round1(elev), round1(az)
		if math.IsNaN(elev) || elev <= 0 {
			continue
		}
		if az >= 360 {
			az = 0
		}
		carrier := carrierHz(b.constellation, b.svid)
		cn0 := 22 + 24*math.Sin(elev*deg2rad) + 2*math.Sin(sec/7+float64(b.svid))
		status = append(status, gnss.StatusSample{
			Constellation:       b.constellation,
			Svid:                b.svid,
			ElevationDeg:        elev,
			AzimuthDeg:          az,
			Cn0DbHz:             round1(cn0),
			UsedInFix:           elev >= usedElevationDeg,
			CarrierFrequencyHz:  carrier,
			HasCarrierFrequency: true,
		})
		meas = append(meas, gnss.MeasurementSample{
			Constellation:      b.constellation,
			Svid:               b.svid,
			CarrierFrequencyHz: carrier,
			AgcDb:              agcDb(b.constellation, sec),
			HasAgc:             true,
		})
	}
	return status, meas
}

// carrierHz returns the L1-band carrier a receiver tracks the satellite on.
// GLONASS satellites share frequency channels in antipodal pairs.
func carrierHz(c gnss.Constellation, svid int) float64 {
	switch c {
	case gnss.GLONASS:
		channel := (svid-1)%14 - 7
		return glonassL1Hz + float64(channel)*glonassStep
	case gnss.Beidou:
		return beidouB1Hz
	case gnss.IRNSS:
		return irnssL5Hz
	default:
		return gpsL1Hz
	}
}

// agcDb is a slowly drifting per-band gain.
func agcDb(c gnss.Constellation, sec float64) float64 {
	base := 38 + float64(c)
	return round1(base + 1.5*math.Sin(sec/30+float64(c)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// elementSet formats a two-line element set. Angles are degrees, mean
// motion is revolutions per day.
func elementSet(catalog int, epoch time.Time, incl, raan, ecc, argp, anomaly, meanMotion float64) (string, string) {
	epoch = epoch.UTC()
	dayOfYear := float64(epoch.YearDay()) +
		(float64(epoch.Hour())*3600+float64(epoch.Minute())*60+float64(epoch.Second()))/86400
	l1 := fmt.Sprintf("1 %05dU 26001A   %02d%012.8f  .00000000  00000-0  00000-0 0  999",
		catalog, epoch.Year()%100, dayOfYear)
	l2 := fmt.Sprintf("2 %05d %8.4f %8.4f %07d %8.4f %8.4f %11.8f%5d",
		catalog, incl, raan, int(math.Round(ecc*1e7)), argp, anomaly, meanMotion, 1)
	return l1 + checksum(l1), l2 + checksum(l2)
}

// checksum is the modulo-10 sum of digits, minus signs counting as one.
func checksum(line string) string {
	sum := 0
	for _, r := range line {
		switch {
		case r >= '0' && r <= '9':
			sum += int(r - '0')
		case r == '-':
			sum++
		}
	}
	return fmt.Sprint(sum % 10)
}
