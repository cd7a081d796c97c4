// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import "fmt"

// Frequency bin widths used to build an Identity.
const (
	// WideBinHz is used for GLONASS: FDMA carriers reported by receivers
	// wander by hundreds of kHz for the same nominal band.
	WideBinHz = 10_000_000
	// NarrowBinHz is used for every other family.
	NarrowBinHz = 1_000
)

// Identity keys the measurement stream. Two samples belong to the same
// record iff their constellation and frequency bin match.
type Identity struct {
	Constellation Constellation `json:"constellation"`
	FrequencyBin  int64         `json:"frequency_bin"`
}

// BinWidthHz returns the divisor applied to carrier frequencies of c.
func BinWidthHz(c Constellation) int64 {
	if c == GLONASS {
		return WideBinHz
	}
	return NarrowBinHz
}

// MakeIdentity quantises a raw carrier frequency into the identity bin for
// its constellation.
func MakeIdentity(c Constellation, rawCarrierFrequencyHz float64) Identity {
	return Identity{
		Constellation: c,
		FrequencyBin:  int64(rawCarrierFrequencyHz) / BinWidthHz(c),
	}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%d", id.Constellation, id.FrequencyBin*BinWidthHz(id.Constellation))
}
