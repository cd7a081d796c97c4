package fusion

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
)

const (
	gpsL1     = 1_575_420_000.0
	glonassL1 = 1_602_562_500.0 // channel +1
)

type fakeClock struct {
	now atomic.Int64
}

func (c *fakeClock) Now() int64 { return c.now.Load() }
func (c *fakeClock) Set(d time.Duration) { c.now.Store(int64(d)) }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	return NewEngine(Config{Clock: clock.Now}), clock
}

func status(c gnss.Constellation, svid int, elev, az, cn0 float64, used bool) gnss.StatusSample {
	return gnss.StatusSample{
		Constellation: c,
		Svid:          svid,
		ElevationDeg:  elev,
		AzimuthDeg:    az,
		Cn0DbHz:       cn0,
		UsedInFix:     used,
	}
}

func measurement(c gnss.Constellation, svid int, freq, agc float64, at int64) gnss.MeasurementSample {
	return gnss.MeasurementSample{
		Constellation:      c,
		Svid:               svid,
		CarrierFrequencyHz: freq,
		AgcDb:              agc,
		HasAgc:             true,
		ReceivedTimeNanos:  at,
	}
}

func TestSnapshotFusesStatusAndMeasurement(t *testing.T) {
	e, clock := newTestEngine(t)

	e.ApplyStatusSample(status(gnss.GLONASS, 5, 45, 90, 30, true))
	e.ApplyMeasurementSample(measurement(gnss.GLONASS, 5, glonassL1, 40, clock.Now()))

	got := e.Snapshot()
	want := []gnss.Satellite{{
		Svid: 5, Constellation: gnss.GLONASS,
		ElevationDeg: 45, AzimuthDeg: 90, Cn0DbHz: 30,
		UsedInFix: true, HasValidAngles: true,
		CarrierFrequencyHz: glonassL1, HasCarrierFrequency: true,
		AgcDb: 40, HasAgc: true,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotAgcSharedAcrossBand(t *testing.T) {
	e, clock := newTestEngine(t)

	// svid 7 reports its carrier on the status stream; the AGC comes from a
	// different GLONASS satellite measured on the same band.
	s := status(gnss.GLONASS, 7, 20, 10, 25, false)
	s.CarrierFrequencyHz, s.HasCarrierFrequency = glonassL1+400_000, true
	e.ApplyStatusSample(s)
	e.ApplyMeasurementSample(measurement(gnss.GLONASS, 3, glonassL1, 38, clock.Now()))

	snap := e.Snapshot()
	require.Len(t, snap, 2)

	assert.Equal(t, 3, snap[0].Svid)
	assert.False(t, snap[0].HasValidAngles, "measurement-only svid has no angles")
	assert.Equal(t, gnss.NoData, snap[0].ElevationDeg)
	assert.True(t, snap[0].HasAgc)

	assert.Equal(t, 7, snap[1].Svid)
	assert.True(t, snap[1].HasAgc)
	assert.Equal(t, 38.0, snap[1].AgcDb)
}

func TestSnapshotOmitsAgcWithoutIdentityMatch(t *testing.T) {
	e, clock := newTestEngine(t)

	e.ApplyStatusSample(status(gnss.GPS, 12, 60, 200, 41, true))
	// Measurement for another GPS satellite on L5: different identity.
	e.ApplyMeasurementSample(measurement(gnss.GPS, 30, 1_176_450_000, 35, clock.Now()))

	snap := e.Snapshot()
	require.Len(t, snap, 2)
	sat12 := snap[0]
	assert.Equal(t, 12, sat12.Svid)
	assert.False(t, sat12.HasCarrierFrequency)
	assert.False(t, sat12.HasAgc)
	assert.Zero(t, sat12.AgcDb)
}

func TestStalenessWindowBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantAgc bool
	}{
		{"inside window", 4999 * time.Millisecond, true},
		{"exactly window", 5 * time.Second, true},
		{"past window", 5001 * time.Millisecond, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clock := newTestEngine(t)

			e.ApplyMeasurementSample(measurement(gnss.GPS, 3, gpsL1, 42, clock.Now()))
			clock.Advance(tt.elapsed)

			// Keep the status side fresh so only the measurement ages.
			s := status(gnss.GPS, 3, 30, 45, 33, true)
			s.CarrierFrequencyHz, s.HasCarrierFrequency = gpsL1, true
			e.ApplyStatusSample(s)

			snap := e.Snapshot()
			require.Len(t, snap, 1)
			assert.Equal(t, tt.wantAgc, snap[0].HasAgc)

			id := gnss.MakeIdentity(gnss.GPS, gpsL1)
			if tt.wantAgc {
				assert.Equal(t, Fresh, e.MeasurementState(id))
			} else {
				assert.Equal(t, Stale, e.MeasurementState(id))
			}
		})
	}
}

func TestStaleRecordRefreshStartsNewGeneration(t *testing.T) {
	e, clock := newTestEngine(t)
	id := gnss.MakeIdentity(gnss.Galileo, gpsL1)

	assert.Equal(t, Absent, e.MeasurementState(id))
	e.ApplyMeasurementSample(measurement(gnss.Galileo, 11, gpsL1, 30, clock.Now()))
	assert.Equal(t, Fresh, e.MeasurementState(id))

	clock.Advance(6 * time.Second)
	e.Snapshot()
	assert.Equal(t, Stale, e.MeasurementState(id))

	e.ApplyMeasurementSample(measurement(gnss.Galileo, 11, gpsL1, 31, clock.Now()))
	assert.Equal(t, Fresh, e.MeasurementState(id))

	e.mu.Lock()
	rec := e.measurements[id]
	e.mu.Unlock()
	assert.Equal(t, 2, rec.Generation)
	assert.False(t, rec.TimedOut)
	assert.Equal(t, 31.0, rec.AgcDb)
}

func TestStatusEntriesAgeOut(t *testing.T) {
	e, clock := newTestEngine(t)

	e.ApplyStatusSample(status(gnss.GPS, 1, 10, 10, 20, false))
	clock.Advance(3 * time.Second)
	e.ApplyStatusSample(status(gnss.GPS, 2, 10, 10, 20, false))
	clock.Advance(3 * time.Second)

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].Svid)
}

func TestSnapshotAtMostOnePerSatellite(t *testing.T) {
	e, clock := newTestEngine(t)

	for round := 0; round < 5; round++ {
		for svid := 1; svid <= 4; svid++ {
			e.ApplyStatusSample(status(gnss.GPS, svid, float64(10*svid), float64(round), 30, svid%2 == 0))
			e.ApplyMeasurementSample(measurement(gnss.GPS, svid, gpsL1, float64(round), clock.Now()))
			e.ApplyMeasurementSample(measurement(gnss.GLONASS, svid, glonassL1, float64(round), clock.Now()))
		}
		clock.Advance(100 * time.Millisecond)
	}

	snap := e.Snapshot()
	seen := map[gnss.SatKey]bool{}
	for _, sat := range snap {
		assert.False(t, seen[sat.Key()], "duplicate %v", sat.Key())
		seen[sat.Key()] = true
	}
	assert.Len(t, snap, 8)

	for i := 1; i < len(snap); i++ {
		assert.True(t, snap[i-1].Key().Less(snap[i].Key()), "snapshot must be ordered")
	}
	assert.Equal(t, gnss.GPS, snap[0].Constellation)
	assert.Equal(t, 4.0, snap[0].AgcDb)
}

func TestSnapshotMissingAnglesUseSentinel(t *testing.T) {
	e, _ := newTestEngine(t)

	e.ApplyStatusSample(status(gnss.Beidou, 9, gnss.NoData, 120, 22, false))
	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.False(t, snap[0].HasValidAngles)
	assert.Equal(t, gnss.NoData, snap[0].AzimuthDeg)
	assert.Equal(t, 22.0, snap[0].Cn0DbHz)
}

func TestOutOfOrderMeasurementIgnored(t *testing.T) {
	e, clock := newTestEngine(t)
	clock.Set(2 * time.Second)

	e.ApplyMeasurementSample(measurement(gnss.GPS, 3, gpsL1, 40, int64(2*time.Second)))
	e.ApplyMeasurementSample(measurement(gnss.GPS, 3, gpsL1, 10, int64(1*time.Second)))

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 40.0, snap[0].AgcDb)
}

func TestSnapshotIsNotShared(t *testing.T) {
	e, _ := newTestEngine(t)
	e.ApplyStatusSample(status(gnss.GPS, 1, 10, 10, 20, false))

	first := e.Snapshot()
	first[0].Cn0DbHz = 99

	second := e.Snapshot()
	assert.Equal(t, 20.0, second[0].Cn0DbHz)
}

func TestPurge(t *testing.T) {
	e, clock := newTestEngine(t)

	e.ApplyStatusSample(status(gnss.GPS, 1, 10, 10, 20, false))
	e.ApplyMeasurementSample(measurement(gnss.GPS, 1, gpsL1, 40, clock.Now()))
	clock.Advance(10 * time.Second)
	e.ApplyStatusSample(status(gnss.GPS, 2, 10, 10, 20, false))

	// status 1, carrier 1 and the GPS L1 record.
	assert.Equal(t, 3, e.Purge())
	assert.Len(t, e.Snapshot(), 1)
	assert.Zero(t, e.Purge())
}

func TestEmptySnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Empty(t, e.Snapshot())
}

func TestConcurrentProducers(t *testing.T) {
	e := NewEngine(Config{})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				svid := i%8 + 1
				if p%2 == 0 {
					e.ApplyStatusSample(status(gnss.GPS, svid, 30, float64(i%360), 35, true))
				} else {
					e.ApplyMeasurementSample(measurement(gnss.GPS, svid, gpsL1, 30, e.Now()))
				}
			}
		}(p)
	}

	snapshots := make(chan []gnss.Satellite, 1)
	go func() {
		var last []gnss.Satellite
		for {
			select {
			case <-stop:
				snapshots <- last
				return
			default:
				last = e.Snapshot()
				seen := map[gnss.SatKey]bool{}
				for _, sat := range last {
					if seen[sat.Key()] {
						panic(fmt.Sprintf("duplicate %v", sat.Key()))
					}
					seen[sat.Key()] = true
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-snapshots
	assert.Len(t, e.Snapshot(), 8)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	clock := &fakeClock{}
	e := NewEngine(Config{Clock: clock.Now, Metrics: m})

	e.ApplyStatusSample(status(gnss.GPS, 1, 10, 10, 20, false))
	e.ApplyMeasurementSample(measurement(gnss.GPS, 1, gpsL1, 40, 0))
	e.ApplyMeasurementSample(measurement(gnss.GPS, 1, gpsL1, 40, -1))
	e.Snapshot()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusSamples.WithLabelValues("GPS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MeasurementSamples.WithLabelValues("GPS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedSamples))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotSatellites))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FreshMeasurements))

	clock.Advance(6 * time.Second)
	e.Snapshot()
	e.Snapshot()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Timeouts.WithLabelValues("GPS")), "timeout counted once")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SnapshotSatellites))

	again, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, m.StatusSamples, again.StatusSamples)
}
