// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_skyplot/internal/config"
	"github.com/relabs-tech/gnss_skyplot/internal/orientation"
	"github.com/relabs-tech/gnss_skyplot/internal/sim"
)

// RunMockProducer publishes a simulated sky (status and measurement
// batches) plus a slowly turning pose, for running the subscribers without
// a receiver attached.
func RunMockProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDMock, "mock")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	sky, err := sim.NewSky(sim.Observer{
		LatitudeDeg:  cfg.MockLatitude,
		LongitudeDeg: cfg.MockLongitude,
	}, time.Now())
	if err != nil {
		return err
	}
	log.Printf("mock: simulating %d satellites from %.2f, %.2f", sky.Len(), cfg.MockLatitude, cfg.MockLongitude)

	poses := orientation.NewMockSource()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(millis(cfg.MockPublishInterval))
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Println("mock: shutting down")
			return nil
		case t := <-ticker.C:
			publishMockTick(client, cfg, sky, poses, t)
		}
	}
}

func publishMockTick(client mqtt.Client, cfg *config.Config, sky *sim.Sky, poses orientation.Source, t time.Time) {
	status, meas := sky.Samples(t)
	if err := publishJSON(client, cfg.TopicGNSSStatus, status); err != nil {
		log.Printf("mock: %v", err)
	}
	if err := publishJSON(client, cfg.TopicGNSSMeasurement, meas); err != nil {
		log.Printf("mock: %v", err)
	}

	pose, err := poses.Next()
	if err != nil {
		log.Printf("mock: pose source: %v", err)
		return
	}
	if err := publishJSON(client, cfg.TopicPose, pose); err != nil {
		log.Printf("mock: %v", err)
	}
}
