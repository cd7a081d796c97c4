package gnss

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeIdentityIsStable(t *testing.T) {
	a := MakeIdentity(GPS, 1575.42e6)
	b := MakeIdentity(GPS, 1575.42e6)
	assert.Equal(t, a, b)

	seen := map[Identity]bool{a: true}
	assert.True(t, seen[b], "identity must be usable as a map key")
}

func TestMakeIdentityWideBinCollapsesJitter(t *testing.T) {
	// Two GLONASS L1 carriers a few hundred kHz apart inside one 10 MHz bin.
	base := 1_600_000_000.0
	a := MakeIdentity(GLONASS, base+1_000_000)
	b := MakeIdentity(GLONASS, base+1_000_000+WideBinHz-1_500_000)
	assert.Equal(t, a, b)

	// More than one full bin apart.
	c := MakeIdentity(GLONASS, base+1_000_000+WideBinHz+1)
	assert.NotEqual(t, a, c)
}

func TestMakeIdentityNarrowBin(t *testing.T) {
	a := MakeIdentity(GPS, 1_575_420_000)
	b := MakeIdentity(GPS, 1_575_420_999)
	c := MakeIdentity(GPS, 1_575_421_000)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Same frequency, different family.
	assert.NotEqual(t, MakeIdentity(GPS, 1_575_420_000), MakeIdentity(Galileo, 1_575_420_000))
}

func TestBinWidthHz(t *testing.T) {
	for _, c := range Constellations {
		want := int64(NarrowBinHz)
		if c == GLONASS {
			want = WideBinHz
		}
		assert.Equal(t, want, BinWidthHz(c), c.String())
	}
}

func TestConstellationText(t *testing.T) {
	payload, err := json.Marshal(StatusSample{Constellation: GLONASS, Svid: 5})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"constellation":"GLONASS"`)

	var s StatusSample
	require.NoError(t, json.Unmarshal([]byte(`{"constellation":"galileo","svid":11}`), &s))
	assert.Equal(t, Galileo, s.Constellation)

	require.NoError(t, json.Unmarshal([]byte(`{"constellation":"5"}`), &s))
	assert.Equal(t, Beidou, s.Constellation)

	assert.Error(t, json.Unmarshal([]byte(`{"constellation":"MARS"}`), &s))
	assert.Equal(t, "CONSTELLATION(42)", Constellation(42).String())
}

func TestSatKeyLess(t *testing.T) {
	assert.True(t, SatKey{GPS, 30}.Less(SatKey{GLONASS, 1}))
	assert.True(t, SatKey{GPS, 1}.Less(SatKey{GPS, 2}))
	assert.False(t, SatKey{GPS, 2}.Less(SatKey{GPS, 2}))
}
