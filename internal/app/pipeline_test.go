package app

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_skyplot/internal/fusion"
	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
	"github.com/relabs-tech/gnss_skyplot/internal/skyplot"
)

func testPipeline(t *testing.T) (*pipeline, *atomic.Int64) {
	t.Helper()
	var clock atomic.Int64
	clock.Store(int64(time.Hour))
	engine := fusion.NewEngine(fusion.Config{
		StalenessWindow: 5 * time.Second,
		Clock:           clock.Load,
	})
	return newPipeline("test", engine, skyplot.NewView(skyplot.DefaultGeometry)), &clock
}

func TestHandleStatusSingleAndBatch(t *testing.T) {
	p, _ := testPipeline(t)

	n, err := p.handleStatus([]byte(`{"constellation":"GPS","svid":5,"elevation_deg":45,"azimuth_deg":90,"cn0_dbhz":40,"used_in_fix":true}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.handleStatus([]byte(` [{"constellation":"GALILEO","svid":3,"elevation_deg":20,"azimuth_deg":10},
		{"constellation":"GLONASS","svid":7,"elevation_deg":-999,"azimuth_deg":-999}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap := p.engine.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, gnss.GPS, snap[0].Constellation)
	assert.True(t, snap[0].UsedInFix)
	assert.False(t, snap[1].HasValidAngles, "GLONASS sorts before Galileo")
}

func TestHandleMalformedPayloads(t *testing.T) {
	p, _ := testPipeline(t)

	_, err := p.handleStatus([]byte(`{"svid":`))
	assert.ErrorContains(t, err, "status payload")
	_, err = p.handleMeasurement([]byte(`nope`))
	assert.ErrorContains(t, err, "measurement payload")
	assert.ErrorContains(t, p.handlePose([]byte(`[`)), "pose payload")
	assert.Empty(t, p.engine.Snapshot())
}

func TestHandleMeasurementUsesEngineClock(t *testing.T) {
	p, clock := testPipeline(t)

	_, err := p.handleStatus([]byte(`{"constellation":"GPS","svid":5,"elevation_deg":45,"azimuth_deg":90,"cn0_dbhz":40,"carrier_frequency_hz":1575420000,"has_carrier_frequency":true}`))
	require.NoError(t, err)
	// A producer timestamp from another clock domain is ignored.
	_, err = p.handleMeasurement([]byte(`{"constellation":"GPS","svid":5,"carrier_frequency_hz":1575420000,"agc_db":40,"has_agc":true,"received_time_nanos":1}`))
	require.NoError(t, err)

	snap := p.engine.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].HasAgc)
	assert.Equal(t, 40.0, snap[0].AgcDb)

	clock.Add(int64(4 * time.Second))
	_, err = p.handleStatus([]byte(`{"constellation":"GPS","svid":5,"elevation_deg":45,"azimuth_deg":90,"cn0_dbhz":40,"carrier_frequency_hz":1575420000,"has_carrier_frequency":true}`))
	require.NoError(t, err)
	assert.True(t, p.engine.Snapshot()[0].HasAgc, "still inside the window")

	clock.Add(int64(2 * time.Second))
	assert.False(t, p.engine.Snapshot()[0].HasAgc, "measurement went stale")
}

func TestHandlePoseUpdatesView(t *testing.T) {
	p, _ := testPipeline(t)
	require.NoError(t, p.handlePose([]byte(`{"roll":1,"pitch":7,"yaw":-90}`)))

	o := p.view.Orientation()
	assert.Equal(t, 270.0, o.OrientationDeg)
	assert.Equal(t, 7.0, o.TiltDeg)

	// Without a view, poses are accepted and dropped.
	headless := newPipeline("test", p.engine, nil)
	assert.NoError(t, headless.handlePose([]byte(`{"yaw":10}`)))
}

func TestRefresh(t *testing.T) {
	p, _ := testPipeline(t)
	_, err := p.handleStatus([]byte(`[{"constellation":"GPS","svid":5,"elevation_deg":45,"azimuth_deg":90,"cn0_dbhz":40,"used_in_fix":true},{"constellation":"GPS","svid":6,"elevation_deg":10,"azimuth_deg":0,"cn0_dbhz":20}]`))
	require.NoError(t, err)

	snap, f := p.refresh()
	assert.Len(t, snap, 2)
	assert.Len(t, f.Satellites, 2)
	assert.Equal(t, 30.0, f.Stats.AvgCn0InView)

	stored, ok := p.view.Frame()
	require.True(t, ok)
	assert.Equal(t, f.Stats, stored.Stats)

	headless := newPipeline("test", p.engine, nil)
	_, hf := headless.refresh()
	assert.Equal(t, 40.0, hf.Stats.AvgCn0UsedInFix)
	assert.Empty(t, hf.Satellites)
}

func TestRunStops(t *testing.T) {
	p, _ := testPipeline(t)
	stop := make(chan struct{})
	done := make(chan struct{})
	var frames atomic.Int32

	go func() {
		p.run(time.Millisecond, stop, func([]gnss.Satellite, skyplot.Frame) { frames.Add(1) })
		close(done)
	}()

	assert.Eventually(t, func() bool { return frames.Load() > 2 }, time.Second, time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestReadStatus(t *testing.T) {
	input := strings.Join([]string{
		"garbage before the first sentence",
		"$GPGSA,A,3,05,40,,,,,,,,,,,2.0,1.0,1.5*34",
		"$GPGSV,1,1,03,05,45,090,30,12,10,200,,40,,,25*77",
		"$GPGSV,1,1,03,05,45,090,30*00", // bad checksum
		"$GLGSV,1,1,01,70,30,180,35*5F",
	}, "\r\n")

	var batches [][]gnss.StatusSample
	err := readStatus(strings.NewReader(input), gnss.NewStatusDecoder(), func(s []gnss.StatusSample) {
		batches = append(batches, s)
	})
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 3)
	assert.True(t, batches[0][0].UsedInFix)
	assert.Equal(t, gnss.GLONASS, batches[1][0].Constellation)
}

func TestPrintSatellites(t *testing.T) {
	snap := []gnss.Satellite{
		{Svid: 5, Constellation: gnss.GPS, ElevationDeg: 45, AzimuthDeg: 90, Cn0DbHz: 40, UsedInFix: true, HasValidAngles: true, AgcDb: 39.5, HasAgc: true},
		{Svid: 7, Constellation: gnss.GLONASS, ElevationDeg: gnss.NoData, AzimuthDeg: gnss.NoData, Cn0DbHz: 0},
	}
	var buf bytes.Buffer
	printSatellites(&buf, snap, skyplot.ComputeStats(snap))

	out := buf.String()
	assert.Contains(t, out, "view=1 (40.0 dB-Hz)")
	assert.Contains(t, out, "GPS       5 * el=45.0 az= 90.0 cn0=40.0 agc=39.5")
	assert.Contains(t, out, "GLONASS   7")
	assert.NotContains(t, out, "-999")
}

func TestStartStopWaitsForFrameInFlight(t *testing.T) {
	p, _ := testPipeline(t)
	var inFlight, finished atomic.Bool

	stop := p.start(time.Millisecond, func([]gnss.Satellite, skyplot.Frame) {
		if finished.Load() {
			return
		}
		inFlight.Store(true)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		inFlight.Store(false)
	})

	require.Eventually(t, inFlight.Load, time.Second, time.Millisecond)
	stop()
	assert.True(t, finished.Load(), "stop returned while a frame was being drawn")
	assert.False(t, inFlight.Load())

	stop() // idempotent
}
