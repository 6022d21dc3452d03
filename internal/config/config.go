// Package config loads the handeye configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/orientation"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// CameraConfig controls local capture. A negative device disables it and
// frames are expected from the browser instead.
type CameraConfig struct {
	Device int `yaml:"device"`
	FPS    int `yaml:"fps"`
}

// TrackingConfig holds the runtime switches of the tracking loop.
type TrackingConfig struct {
	Enabled     bool               `yaml:"enabled"`
	Gate        bool               `yaml:"gate"`
	Orientation orientation.Config `yaml:"orientation"`
}

// SmoothingConfig configures the smoothing window.
type SmoothingConfig struct {
	Enabled      bool `yaml:"enabled"`
	WindowSize   int  `yaml:"window_size"`
	FilterAbsent bool `yaml:"filter_absent"`
}

// StoreConfig enables session recording when Path is set.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TrayConfig controls the system tray.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config aggregates all configuration sections.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Camera    CameraConfig    `yaml:"camera"`
	Detector  detector.Config `yaml:"detector"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Store     StoreConfig     `yaml:"store"`
	Tray      TrayConfig      `yaml:"tray"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Camera:   CameraConfig{Device: -1, FPS: 20},
		Detector: detector.DefaultConfig(),
		Tracking: TrackingConfig{
			Enabled:     true,
			Gate:        true,
			Orientation: orientation.DefaultConfig(),
		},
		Smoothing: SmoothingConfig{
			Enabled:      true,
			WindowSize:   5,
			FilterAbsent: true,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Smoothing.WindowSize < 1 {
		return fmt.Errorf("%w: smoothing.window_size must be positive, got %d", ErrInvalid, c.Smoothing.WindowSize)
	}
	if c.Tracking.Orientation.GateRatio <= 0 {
		return fmt.Errorf("%w: tracking.orientation.gate_ratio must be positive", ErrInvalid)
	}
	if c.Tracking.Orientation.ZoomOut <= 0 {
		return fmt.Errorf("%w: tracking.orientation.zoom_out must be positive", ErrInvalid)
	}
	if c.Camera.Device >= 0 && c.Camera.FPS <= 0 {
		return fmt.Errorf("%w: camera.fps must be positive", ErrInvalid)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	return nil
}
