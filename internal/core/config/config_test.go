package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 2000, cfg.Port)
	assert.Equal(t, TransportWebSocket, cfg.Transport)
	assert.Equal(t, 100*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, "driven", cfg.Executor.Mode)
	assert.Equal(t, 0.05, cfg.Executor.Interval)
	assert.Equal(t, "127.0.0.1:2000", cfg.Addr())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
host: sim.example.com
port: 4000
transport: quic
connect_timeout: 10s
log_level: debug
executor:
  mode: passive
scenario:
  entities:
    - blueprint: vehicle.model3
      name: hero
      pose:
        location: {x: 1, y: 2, z: 0.5}
    - blueprint: sensor.camera.rgb
      kind: camera.rgb
      parent: hero
      attributes:
        image_size_x: "800"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sim.example.com", cfg.Host)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, TransportQUIC, cfg.Transport)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "passive", cfg.Executor.Mode)

	require.Len(t, cfg.Scenario.Entities, 2)
	hero := cfg.Scenario.Entities[0]
	assert.Equal(t, "hero", hero.Name)
	assert.Equal(t, 1.0, hero.Pose.Location.X)
	cam := cfg.Scenario.Entities[1]
	assert.Equal(t, "hero", cam.Parent)
	assert.Equal(t, "800", cam.Attributes["image_size_x"])
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	path := writeConfig(t, "host: from-yaml\nport: 3000\n")
	t.Setenv("SIMLINK_HOST", "from-env")
	t.Setenv("SIMLINK_EXECUTOR_MODE", "passive")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "passive", cfg.Executor.Mode)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty host", func(c *Config) { c.Host = "" }, false},
		{"port too high", func(c *Config) { c.Port = 70000 }, false},
		{"port zero", func(c *Config) { c.Port = 0 }, false},
		{"bad transport", func(c *Config) { c.Transport = "carrier-pigeon" }, false},
		{"bad executor mode", func(c *Config) { c.Executor.Mode = "turbo" }, false},
		{"driven without interval", func(c *Config) { c.Executor.Interval = 0 }, false},
		{"passive without interval", func(c *Config) {
			c.Executor.Mode = "passive"
			c.Executor.Interval = 0
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
