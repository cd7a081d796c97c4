// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/gnss_skyplot/internal/config"
	"github.com/relabs-tech/gnss_skyplot/internal/fusion"
	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
	"github.com/relabs-tech/gnss_skyplot/internal/orientation"
	"github.com/relabs-tech/gnss_skyplot/internal/skyplot"
)

// pipeline is the subscriber side shared by the web, console and display
// binaries: MQTT payloads go into the engine, snapshots go out to the view.
type pipeline struct {
	component string
	engine    *fusion.Engine
	view      *skyplot.View // nil when the binary does not draw
}

func newPipeline(component string, engine *fusion.Engine, view *skyplot.View) *pipeline {
	return &pipeline{component: component, engine: engine, view: view}
}

// decodeBatch accepts a single JSON object or an array of them.
func decodeBatch[T any](payload []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

func (p *pipeline) handleStatus(payload []byte) (int, error) {
	samples, err := decodeBatch[gnss.StatusSample](payload)
	if err != nil {
		return 0, fmt.Errorf("status payload: %w", err)
	}
	for _, s := range samples {
		p.engine.ApplyStatusSample(s)
	}
	return len(samples), nil
}

// handleMeasurement stamps every sample with the engine clock: producer
// clocks are not comparable with the staleness sweep.
func (p *pipeline) handleMeasurement(payload []byte) (int, error) {
	samples, err := decodeBatch[gnss.MeasurementSample](payload)
	if err != nil {
		return 0, fmt.Errorf("measurement payload: %w", err)
	}
	for _, m := range samples {
		m.ReceivedTimeNanos = p.engine.Now()
		p.engine.ApplyMeasurementSample(m)
	}
	return len(samples), nil
}

func (p *pipeline) handlePose(payload []byte) error {
	var pose orientation.Pose
	if err := json.Unmarshal(payload, &pose); err != nil {
		return fmt.Errorf("pose payload: %w", err)
	}
	if p.view != nil {
		p.view.SetOrientation(orientation.FromPose(pose))
	}
	return nil
}

// subscribe wires the three topics. Malformed payloads are logged and dropped.
func (p *pipeline) subscribe(client mqtt.Client, cfg *config.Config) error {
	routes := []struct {
		topic  string
		handle func([]byte) error
	}{
		{cfg.TopicGNSSStatus, func(b []byte) error { _, err := p.handleStatus(b); return err }},
		{cfg.TopicGNSSMeasurement, func(b []byte) error { _, err := p.handleMeasurement(b); return err }},
		{cfg.TopicPose, p.handlePose},
	}
	for _, r := range routes {
		handle := r.handle
		token := client.Subscribe(r.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := handle(msg.Payload()); err != nil {
				log.Printf("%s: %v", p.component, err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", r.topic, token.Error())
		}
		log.Printf("%s: subscribed to %s", p.component, r.topic)
	}
	return nil
}

// refresh takes a snapshot and, when there is a view, publishes a new frame.
func (p *pipeline) refresh() ([]gnss.Satellite, skyplot.Frame) {
	snap := p.engine.Snapshot()
	if p.view == nil {
		return snap, skyplot.Frame{Stats: skyplot.ComputeStats(snap)}
	}
	return snap, p.view.Refresh(snap)
}

// run refreshes on every tick until stop is closed. Stale records are
// purged once per window.
func (p *pipeline) run(interval time.Duration, stop <-chan struct{}, onFrame func([]gnss.Satellite, skyplot.Frame)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	purge := time.NewTicker(p.engine.Window())
	defer purge.Stop()

	for {
		select {
		case <-stop:
			return
		case <-purge.C:
			if n := p.engine.Purge(); n > 0 {
				log.Printf("%s: purged %d stale entries", p.component, n)
			}
		case <-ticker.C:
			snap, frame := p.refresh()
			if onFrame != nil {
				onFrame(snap, frame)
			}
		}
	}
}

// start runs the refresh loop in the background. The returned stop function
// returns only after the loop, including any onFrame call in progress, has
// finished.
func (p *pipeline) start(interval time.Duration, onFrame func([]gnss.Satellite, skyplot.Frame)) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.run(interval, quit, onFrame)
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(quit) })
		<-done
	}
}

// connectMQTT connects with the configured client id plus a random suffix so
// two instances of the same binary do not kick each other off the broker.
func connectMQTT(broker, clientID, component string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%s: connect %s: %w", component, broker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", component, broker)
	return client, nil
}

func publishJSON(client mqtt.Client, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	token := client.Publish(topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

func newEngine(cfg *config.Config, metrics *fusion.Metrics) *fusion.Engine {
	return fusion.NewEngine(fusion.Config{
		StalenessWindow: cfg.StalenessWindow(),
		Metrics:         metrics,
	})
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
