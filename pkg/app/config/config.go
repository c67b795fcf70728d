package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config holds the application configuration.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag FlagConfig `yaml:"-"`
	// WorkIntervalInt is the orchestrator cycle (ms)
	WorkIntervalInt int             `yaml:"workinterval"`
	WorkInterval    time.Duration   `yaml:"-"`
	Rx              RxConfig        `yaml:"rx"`
	Tx              TxConfig        `yaml:"tx"`
	Radio           RadioConfig     `yaml:"radio"`
	Serial          SerialConfig    `yaml:"serial"`
	Debug           DebugConfig     `yaml:"debug"`
	Webserver       WebserverConfig `yaml:"webserver"`
	MQTT            MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
}

// RxConfig defines the receive data pin.
type RxConfig struct {
	// Chip is the gpio character device, e.g. gpiochip0
	Chip string `yaml:"chip"`
	Gpio int    `yaml:"gpio"`
	// Pull is the line bias: pullup, pulldown or none
	Pull string `yaml:"pull"`
	// EndMarker is the byte ending a frame, -1 disables it
	EndMarker int `yaml:"endmarker"`
	// Queue is the depth of the decoder queue
	Queue int `yaml:"queue"`
}

// TxConfig defines the transmit data pin and the transmit queue.
type TxConfig struct {
	Gpio  int `yaml:"gpio"`
	Queue int `yaml:"queue"`
}

// RadioConfig defines the transceiver.
type RadioConfig struct {
	// Driver is cc1101, switch or none
	Driver string `yaml:"driver"`
	// SPI is the spi port of the cc1101, empty selects the first one
	SPI     string `yaml:"spi"`
	SpeedHz int64  `yaml:"speed"`
	// RxEnable and TxEnable are the mode pins of the switch driver
	RxEnable int `yaml:"rxenable"`
	TxEnable int `yaml:"txenable"`
}

// SerialConfig defines the host console, an empty port disables it.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	// Topic receives every frame
	Topic string `yaml:"topic"`
	// TxTopic accepts hex messages to send
	TxTopic string `yaml:"txtopic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		WorkIntervalInt: 1,
		Flag:            FlagConfig{},
		Rx: RxConfig{
			Chip:      "gpiochip0",
			Gpio:      25,
			Pull:      "none",
			EndMarker: 0x35,
			Queue:     8,
		},
		Tx: TxConfig{
			Gpio:  24,
			Queue: 8,
		},
		Radio: RadioConfig{
			Driver:  "cc1101",
			SpeedHz: 500000,
		},
		Serial: SerialConfig{
			Baud: 115200,
		},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"frames":  true,
				"stats":   true,
				"send":    true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "swmodem/rx",
			TxTopic:    "swmodem/tx",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	if c.WorkIntervalInt <= 0 {
		c.WorkIntervalInt = 1
	}
	c.WorkInterval = time.Duration(c.WorkIntervalInt) * time.Millisecond

	// the frame start and one byte may wait for the decoder
	if c.Rx.Queue < 2 {
		c.Rx.Queue = 2
	}

	if c.Rx.EndMarker > 0xFF {
		return fmt.Errorf("invalid end marker %#x", c.Rx.EndMarker)
	}
	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
