package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadLayers(t *testing.T) {
	file := filepath.Join(t.TempDir(), "camwatch.yaml")
	data := []byte(`
camera:
  index: 2
  width: 1280
monitor:
  check_interval: 30s
  ptz_cycle: true
quality:
  edges: 50
snapshot_keep: 10
`)
	if err := os.WriteFile(file, data, 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAMWATCH_CAMERA_WIDTH", "800")
	t.Setenv("CAMWATCH_SNAPSHOT_DIR", "/var/frames")

	cfg, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Camera.Index != 2 {
		t.Errorf("index: %d", cfg.Camera.Index)
	}
	if cfg.Camera.Width != 800 {
		t.Errorf("env should win over file, width: %d", cfg.Camera.Width)
	}
	if cfg.Camera.Height != 480 {
		t.Errorf("default height lost: %d", cfg.Camera.Height)
	}
	if cfg.Monitor.CheckInterval != 30*time.Second || !cfg.Monitor.PTZCycle {
		t.Errorf("monitor: %+v", cfg.Monitor)
	}
	if cfg.Quality.Edges != 50 || cfg.Quality.Mean != 20 {
		t.Errorf("quality: %+v", cfg.Quality)
	}
	if cfg.SnapshotKeep != 10 {
		t.Errorf("snapshot_keep: %d", cfg.SnapshotKeep)
	}
	if cfg.SnapshotDir() != "/var/frames" {
		t.Errorf("snapshot dir: %s", cfg.SnapshotDir())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative index", func(c *Config) { c.Camera.Index = -1 }},
		{"zero width", func(c *Config) { c.Camera.Width = 0 }},
		{"compression", func(c *Config) { c.Camera.Compression = 101 }},
		{"fourcc", func(c *Config) { c.Camera.FourCC = "MJPEG" }},
		{"check interval", func(c *Config) { c.Monitor.CheckInterval = 0 }},
		{"snapshot interval", func(c *Config) { c.Monitor.SnapshotInterval = -time.Second }},
		{"retries", func(c *Config) { c.Monitor.Retries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.BaseDir = "/data"
	if got := cfg.StatusFile(); got != filepath.Join("/data", "status.json") {
		t.Errorf("status file: %s", got)
	}
	if got := cfg.LogFile(); got != filepath.Join("/data", "logs", "camera_monitor.log") {
		t.Errorf("log file: %s", got)
	}
	if got := cfg.SnapshotDir(); got != filepath.Join("/data", "monitor_frames") {
		t.Errorf("snapshot dir: %s", got)
	}
}
