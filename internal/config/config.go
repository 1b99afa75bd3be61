// Package config loads the daemon configuration from a YAML file,
// falling back to built-in defaults when no file exists.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/derhofbauer/wristrelay/internal/settings"
)

// ConfigFileName is the file looked up under the settings base path.
const ConfigFileName = "config.yaml"

// Config holds application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`

	// BasePath is where preferences, per-app settings and the calendar
	// store live. Empty means the default settings location.
	BasePath string `yaml:"base_path"`

	// Adapter is the local Bluetooth adapter to watch.
	Adapter string `yaml:"adapter" default:"hci0"`

	Bluetooth BluetoothConfig `yaml:"bluetooth"`
}

// BluetoothConfig tunes the BLE transport.
type BluetoothConfig struct {
	// DeviceName is advertised while waiting for the wearable to connect.
	DeviceName string `yaml:"device_name" default:"WristRelay"`

	// PeerPrefix matches the wearable's advertised name during discovery.
	PeerPrefix string `yaml:"peer_prefix" default:"Steel HR"`

	ScanTimeout  Duration `yaml:"scan_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Duration accepts "30s" style values in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)

	cfg.Bluetooth.ScanTimeout = Duration(30 * time.Second)
	cfg.Bluetooth.WriteTimeout = Duration(10 * time.Second)
	return cfg
}

// Load reads the configuration file at path. An empty path means the
// default location; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		base, err := settings.DefaultBasePath()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(base, ConfigFileName)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
