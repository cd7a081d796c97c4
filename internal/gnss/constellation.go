// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"fmt"
	"strings"
)

// Constellation is a satellite system family. Values follow the platform
// GNSS status constants so producers can forward them unchanged.
type Constellation int

const (
	Unknown Constellation = iota
	GPS
	SBAS
	GLONASS
	QZSS
	Beidou
	Galileo
	IRNSS
)

// Constellations lists every family in ascending order.
var Constellations = []Constellation{Unknown, GPS, SBAS, GLONASS, QZSS, Beidou, Galileo, IRNSS}

var constellationNames = map[Constellation]string{
	Unknown: "UNKNOWN",
	GPS:     "GPS",
	SBAS:    "SBAS",
	GLONASS: "GLONASS",
	QZSS:    "QZSS",
	Beidou:  "BEIDOU",
	Galileo: "GALILEO",
	IRNSS:   "IRNSS",
}

func (c Constellation) String() string {
	if name, ok := constellationNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CONSTELLATION(%d)", int(c))
}

// Valid reports whether c is one of the known families.
func (c Constellation) Valid() bool {
	_, ok := constellationNames[c]
	return ok
}

// MarshalText encodes the family by name so JSON payloads stay readable.
func (c Constellation) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts either the family name (case-insensitive) or its
// numeric value.
func (c *Constellation) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for k, name := range constellationNames {
		if name == s {
			*c = k
			return nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && Constellation(n).Valid() {
		*c = Constellation(n)
		return nil
	}
	return fmt.Errorf("unknown constellation %q", string(text))
}
