package app

import (
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gnss_skyplot/internal/config"
	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
	"github.com/relabs-tech/gnss_skyplot/internal/skyplot"
)

// RunDisplay draws the sky plot on the SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), splash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	view := skyplot.NewView(skyplot.MonoGeometry)
	p := newPipeline("display", newEngine(cfg, nil), view)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := p.subscribe(client, cfg); err != nil {
		return err
	}

	stop := p.start(millis(cfg.DisplayUpdateInterval), func(_ []gnss.Satellite, f skyplot.Frame) {
		img := skyplot.RenderMono(f, view.Geometry())
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	})
	log.Println("display: starting update loop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	// No Draw may be in flight when the panel is halted.
	stop()
	log.Println("display: shutting down")
	return dev.Halt()
}

func splash() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, skyplot.MonoWidth, skyplot.MonoHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(22, 26)
	drawer.DrawBytes([]byte("GNSS Skyplot"))

	drawer.Dot = fixed.P(22, 43)
	drawer.DrawBytes([]byte("Looking for"))

	drawer.Dot = fixed.P(50, 56)
	drawer.DrawBytes([]byte("sats"))

	return img
}
