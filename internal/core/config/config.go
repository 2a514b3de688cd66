// Package config loads client configuration from YAML with environment
// overrides and defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/simlink/simlink/internal/core/tf"
)

// Transport names accepted in configuration.
const (
	TransportWebSocket = "websocket"
	TransportQUIC      = "quic"
)

// Config is everything needed to open a session and drive it.
type Config struct {
	Host           string        `yaml:"host" env:"SIMLINK_HOST"`
	Port           int           `yaml:"port" env:"SIMLINK_PORT"`
	Transport      string        `yaml:"transport" env:"SIMLINK_TRANSPORT"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"SIMLINK_CONNECT_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SIMLINK_REQUEST_TIMEOUT"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" env:"SIMLINK_PROBE_TIMEOUT"`
	LogLevel       string        `yaml:"log_level" env:"SIMLINK_LOG_LEVEL"`

	Executor ExecutorConfig `yaml:"executor"`
	Scenario Scenario       `yaml:"scenario"`
}

// ExecutorConfig selects and tunes the stepping mode.
type ExecutorConfig struct {
	Mode        string        `yaml:"mode" env:"SIMLINK_EXECUTOR_MODE"` // driven | passive
	Interval    float64       `yaml:"interval" env:"SIMLINK_EXECUTOR_INTERVAL"`
	MinTickWait time.Duration `yaml:"min_tick_wait" env:"SIMLINK_EXECUTOR_MIN_TICK_WAIT"`
}

// Scenario describes the entities a run should spawn.
type Scenario struct {
	Entities []EntitySpec `yaml:"entities"`
}

// EntitySpec is one declarative entity. Parent refers to another spec's
// name; sensors additionally name their kind.
type EntitySpec struct {
	Blueprint  string            `yaml:"blueprint"`
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"` // "", vehicle, camera.rgb, camera.depth, lidar, lidar.semantic, radar
	Pose       tf.Pose           `yaml:"pose"`
	Parent     string            `yaml:"parent"`
	Attributes map[string]string `yaml:"attributes"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           2000,
		Transport:      TransportWebSocket,
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: time.Second,
		ProbeTimeout:   100 * time.Millisecond,
		LogLevel:       "info",
		Executor: ExecutorConfig{
			Mode:     "driven",
			Interval: 0.05,
		},
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Transport {
	case TransportWebSocket, TransportQUIC:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.Executor.Mode {
	case "driven", "passive":
	default:
		return fmt.Errorf("unknown executor mode %q", c.Executor.Mode)
	}
	if c.Executor.Mode == "driven" && c.Executor.Interval <= 0 {
		return fmt.Errorf("driven executor needs a positive interval, got %v", c.Executor.Interval)
	}
	return nil
}

// Addr renders host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
