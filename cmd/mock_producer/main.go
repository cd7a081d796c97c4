package main

import (
	"log"

	"github.com/relabs-tech/gnss_skyplot/internal/app"
	"github.com/relabs-tech/gnss_skyplot/internal/config"
)

func main() {
	log.Println("starting gnss-skyplot MQTT producer (mock)")

	if err := config.InitGlobal("skyplot_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMockProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
