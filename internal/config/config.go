package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SSD1306Addr is the only I2C address the upstream ssd1306 driver opens.
const SSD1306Addr = 0x3C

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDGPS     string
	MQTTClientIDMock    string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicGNSSStatus      string
	TopicGNSSMeasurement string
	TopicPose            string

	// GPS receiver
	GPSSerialPort string
	GPSBaudRate   int

	// Fusion
	StalenessWindowMs int

	// Sky plot
	SkyplotRefreshInterval int // milliseconds
	SkyplotSize            int // pixels, square
	SkyplotGlyphRadius     float64

	// Web Server
	WebServerPort int

	// Console
	ConsoleLogInterval int // milliseconds

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Mock producer
	MockPublishInterval int // milliseconds
	MockLatitude        float64
	MockLongitude       float64
}

// Package-level singleton: InitGlobal sets it once, Get reads it.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional key set.
func Default() *Config {
	return &Config{
		MQTTBroker:             "tcp://localhost:1883",
		MQTTClientIDGPS:        "skyplot-gps-producer",
		MQTTClientIDMock:       "skyplot-mock-producer",
		MQTTClientIDWeb:        "skyplot-web",
		MQTTClientIDConsole:    "skyplot-console",
		MQTTClientIDDisplay:    "skyplot-display",
		TopicGNSSStatus:        "gnss/status",
		TopicGNSSMeasurement:   "gnss/measurement",
		TopicPose:              "gnss/pose",
		GPSSerialPort:          "/dev/serial0",
		GPSBaudRate:            9600,
		StalenessWindowMs:      5000,
		SkyplotRefreshInterval: 200,
		SkyplotSize:            400,
		SkyplotGlyphRadius:     12,
		WebServerPort:          8080,
		ConsoleLogInterval:     1000,
		DisplayI2CAddr:         SSD1306Addr,
		DisplayUpdateInterval:  500,
		MockPublishInterval:    1000,
		MockLatitude:           48.14,
		MockLongitude:          11.58,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of the defaults. Blank lines and lines
// starting with '#' are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		if err := cfg.setValue(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_MOCK":
		c.MQTTClientIDMock = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_GNSS_STATUS":
		c.TopicGNSSStatus = value
	case "TOPIC_GNSS_MEASUREMENT":
		c.TopicGNSSMeasurement = value
	case "TOPIC_POSE":
		c.TopicPose = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = positiveInt(key, value)

	// Fusion
	case "STALENESS_WINDOW_MS":
		c.StalenessWindowMs, err = positiveInt(key, value)

	// Sky plot
	case "SKYPLOT_REFRESH_INTERVAL":
		c.SkyplotRefreshInterval, err = positiveInt(key, value)
	case "SKYPLOT_SIZE":
		c.SkyplotSize, err = positiveInt(key, value)
	case "SKYPLOT_GLYPH_RADIUS":
		r, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, perr)
		}
		if r < 0 {
			return fmt.Errorf("%s must be >= 0, got %g", key, r)
		}
		c.SkyplotGlyphRadius = r

	// Web
	case "WEB_SERVER_PORT":
		port, perr := positiveInt(key, value)
		if perr != nil {
			return perr
		}
		if port > 65535 {
			return fmt.Errorf("%s must be 1-65535, got %d", key, port)
		}
		c.WebServerPort = port

	// Console
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = positiveInt(key, value)

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, perr)
		}
		if addr != SSD1306Addr {
			return fmt.Errorf("%s %#x not supported: the ssd1306 driver only talks to %#x", key, addr, SSD1306Addr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = positiveInt(key, value)

	// Mock
	case "MOCK_PUBLISH_INTERVAL":
		c.MockPublishInterval, err = positiveInt(key, value)
	case "MOCK_LATITUDE":
		c.MockLatitude, err = boundedFloat(key, value, 90)
	case "MOCK_LONGITUDE":
		c.MockLongitude, err = boundedFloat(key, value, 180)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func positiveInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, v)
	}
	return v, nil
}

func boundedFloat(key, value string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%s must be within ±%g, got %g", key, limit, v)
	}
	return v, nil
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicGNSSStatus == "" || c.TopicGNSSMeasurement == "" || c.TopicPose == "" {
		return fmt.Errorf("TOPIC_GNSS_STATUS, TOPIC_GNSS_MEASUREMENT and TOPIC_POSE must not be empty")
	}
	if 2*c.SkyplotGlyphRadius >= float64(c.SkyplotSize) {
		return fmt.Errorf("SKYPLOT_GLYPH_RADIUS %g too large for SKYPLOT_SIZE %d", c.SkyplotGlyphRadius, c.SkyplotSize)
	}
	return nil
}

// StalenessWindow returns STALENESS_WINDOW_MS as a duration.
func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.StalenessWindowMs) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
