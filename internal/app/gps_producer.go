package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gnss_skyplot/internal/config"
	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
)

// RunGPSProducer opens the GPS serial port, decodes GSA/GSV sentences, and
// publishes status samples as JSON arrays on the status topic, one array per
// GSV sentence.
func RunGPSProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS, "gps")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("gps: open %s: %w", serialOpts.PortName, err)
	}
	defer port.Close()
	log.Printf("gps: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	published := 0
	return readStatus(port, gnss.NewStatusDecoder(), func(samples []gnss.StatusSample) {
		if err := publishJSON(client, cfg.TopicGNSSStatus, samples); err != nil {
			log.Printf("gps: %v", err)
			return
		}
		published += len(samples)
		if published%100 < len(samples) {
			log.Printf("gps: published %d status samples", published)
		}
	})
}

// readStatus feeds NMEA lines from r through the decoder until r is
// exhausted. Lines that fail to parse are skipped; receivers emit partial
// sentences at power-up.
func readStatus(r io.Reader, dec *gnss.StatusDecoder, emit func([]gnss.StatusSample)) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "$") {
			if sentence, perr := nmea.Parse(line); perr == nil {
				if samples := dec.Decode(sentence); len(samples) > 0 {
					emit(samples)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gps: read: %w", err)
		}
	}
}
