package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gnss_skyplot/internal/config"
	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
	"github.com/relabs-tech/gnss_skyplot/internal/skyplot"
)

// RunConsoleMQTT fuses the GNSS topics and prints the satellite table every
// CONSOLE_LOG_INTERVAL.
func RunConsoleMQTT() error {
	cfg := config.Get()

	p := newPipeline("console", newEngine(cfg, nil), nil)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, "console")
	if err != nil {
		return err
	}

	if err := p.subscribe(client, cfg); err != nil {
		return err
	}

	stop := p.start(millis(cfg.ConsoleLogInterval), func(snap []gnss.Satellite, f skyplot.Frame) {
		printSatellites(os.Stdout, snap, f.Stats)
	})

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	stop()
	client.Disconnect(250)
	return nil
}

func printSatellites(w io.Writer, snap []gnss.Satellite, stats skyplot.Stats) {
	fmt.Fprintf(w, "[SKY ] view=%d (%.1f dB-Hz)  fix=%d (%.1f dB-Hz)\n",
		stats.InView, stats.AvgCn0InView, stats.UsedInFix, stats.AvgCn0UsedInFix)
	for _, s := range snap {
		angles := "   --      --  "
		if s.HasValidAngles {
			angles = fmt.Sprintf("el=%4.1f az=%5.1f", s.ElevationDeg, s.AzimuthDeg)
		}
		agc := "  --"
		if s.HasAgc {
			agc = fmt.Sprintf("%4.1f", s.AgcDb)
		}
		used := " "
		if s.UsedInFix {
			used = "*"
		}
		fmt.Fprintf(w, "  %-7s %3d %s %s cn0=%4.1f agc=%s\n",
			s.Constellation, s.Svid, used, angles, s.Cn0DbHz, agc)
	}
}
