// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
)

// Metrics bundles the Prometheus collectors updated by the Engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	StatusSamples      *prometheus.CounterVec
	MeasurementSamples *prometheus.CounterVec
	DroppedSamples     prometheus.Counter
	Timeouts           *prometheus.CounterVec
	SnapshotSatellites prometheus.Gauge
	FreshMeasurements  prometheus.Gauge
}

// NewMetrics registers the fusion collectors against reg, defaulting to the
// global registry when nil. Collectors that are already registered are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	status, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_status_samples_total",
		Help: "Status-stream samples applied, by constellation.",
	}, []string{"constellation"}))
	if err != nil {
		return nil, err
	}
	meas, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_measurement_samples_total",
		Help: "Measurement-stream samples applied, by constellation.",
	}, []string{"constellation"}))
	if err != nil {
		return nil, err
	}
	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gnss_measurement_samples_dropped_total",
		Help: "Measurement samples dropped because they arrived out of order.",
	}))
	if err != nil {
		return nil, err
	}
	timeouts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_measurement_timeouts_total",
		Help: "Measurement identities that went stale, by constellation.",
	}, []string{"constellation"}))
	if err != nil {
		return nil, err
	}
	sats, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gnss_snapshot_satellites",
		Help: "Satellites in the latest fused snapshot.",
	}))
	if err != nil {
		return nil, err
	}
	fresh, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gnss_fresh_measurement_identities",
		Help: "Measurement identities that were fresh at the latest snapshot.",
	}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		StatusSamples:      status,
		MeasurementSamples: meas,
		DroppedSamples:     dropped,
		Timeouts:           timeouts,
		SnapshotSatellites: sats,
		FreshMeasurements:  fresh,
	}, nil
}

func (m *Metrics) status(c gnss.Constellation) {
	if m == nil {
		return
	}
	m.StatusSamples.WithLabelValues(c.String()).Inc()
}

func (m *Metrics) measurement(c gnss.Constellation, accepted bool) {
	if m == nil {
		return
	}
	if !accepted {
		m.DroppedSamples.Inc()
		return
	}
	m.MeasurementSamples.WithLabelValues(c.String()).Inc()
}

func (m *Metrics) timeout(c gnss.Constellation) {
	if m == nil {
		return
	}
	m.Timeouts.WithLabelValues(c.String()).Inc()
}

func (m *Metrics) snapshot(satellites, fresh int) {
	if m == nil {
		return
	}
	m.SnapshotSatellites.Set(float64(satellites))
	m.FreshMeasurements.Set(float64(fresh))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register counter vec: %w", err)
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register counter: %w", err)
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register gauge: %w", err)
	}
	return g, nil
}
