package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"camwatch/pkg/camera"
	"camwatch/pkg/quality"
	"camwatch/pkg/storage/consts"
)

var ErrInvalid = errors.New("invalid config")

type Camera struct {
	Index       int           `yaml:"index" env:"CAMWATCH_CAMERA_INDEX"`
	Width       int           `yaml:"width" env:"CAMWATCH_CAMERA_WIDTH"`
	Height      int           `yaml:"height" env:"CAMWATCH_CAMERA_HEIGHT"`
	FourCC      string        `yaml:"fourcc" env:"CAMWATCH_CAMERA_FOURCC"`
	Compression int           `yaml:"compression" env:"CAMWATCH_CAMERA_COMPRESSION"`
	ProbeRange  int           `yaml:"probe_range" env:"CAMWATCH_CAMERA_PROBE_RANGE"`
	ReadTimeout time.Duration `yaml:"read_timeout" env:"CAMWATCH_CAMERA_READ_TIMEOUT"`
}

type Monitor struct {
	CheckInterval    time.Duration `yaml:"check_interval" env:"CAMWATCH_MONITOR_CHECK_INTERVAL"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval" env:"CAMWATCH_MONITOR_SNAPSHOT_INTERVAL"`
	PTZCycle         bool          `yaml:"ptz_cycle" env:"CAMWATCH_MONITOR_PTZ_CYCLE"`
	WarmupFrames     int           `yaml:"warmup_frames" env:"CAMWATCH_MONITOR_WARMUP_FRAMES"`
	WarmupPause      time.Duration `yaml:"warmup_pause" env:"CAMWATCH_MONITOR_WARMUP_PAUSE"`
	Retries          int           `yaml:"retries" env:"CAMWATCH_MONITOR_RETRIES"`
	ReadRetryPause   time.Duration `yaml:"read_retry_pause" env:"CAMWATCH_MONITOR_READ_RETRY_PAUSE"`
	BlankRetryPause  time.Duration `yaml:"blank_retry_pause" env:"CAMWATCH_MONITOR_BLANK_RETRY_PAUSE"`
	DownAfter        int           `yaml:"down_after" env:"CAMWATCH_MONITOR_DOWN_AFTER"`
}

type Paths struct {
	BaseDir     string `yaml:"base_dir" env:"CAMWATCH_BASE_DIR"`
	LogFile     string `yaml:"log_file" env:"CAMWATCH_LOG_FILE"`
	SnapshotDir string `yaml:"snapshot_dir" env:"CAMWATCH_SNAPSHOT_DIR"`
	StatusFile  string `yaml:"status_file" env:"CAMWATCH_STATUS_FILE"`
}

type Probe struct {
	// Command empty selects the OS default inventory tool.
	Command string   `yaml:"command" env:"CAMWATCH_PROBE_COMMAND"`
	Args    []string `yaml:"args" env:"CAMWATCH_PROBE_ARGS"`
	Match   []string `yaml:"match" env:"CAMWATCH_PROBE_MATCH"`
	// Nodes is a glob of device nodes; none matching means absent.
	Nodes string `yaml:"nodes" env:"CAMWATCH_PROBE_NODES"`
}

type Config struct {
	Camera       Camera             `yaml:"camera"`
	Monitor      Monitor            `yaml:"monitor"`
	Quality      quality.Thresholds `yaml:"quality"`
	Paths        Paths              `yaml:"paths"`
	Probe        Probe              `yaml:"probe"`
	SnapshotKeep int                `yaml:"snapshot_keep" env:"CAMWATCH_SNAPSHOT_KEEP"`
	NTPServer    string             `yaml:"ntp_server" env:"CAMWATCH_NTP_SERVER"`
}

func Default() Config {
	return Config{
		Camera: Camera{
			Index:       0,
			Width:       640,
			Height:      480,
			FourCC:      "MJPG",
			Compression: 90,
			ProbeRange:  camera.DefaultProbeRange,
			ReadTimeout: 3 * time.Second,
		},
		Monitor: Monitor{
			CheckInterval:    10 * time.Second,
			SnapshotInterval: time.Minute,
			WarmupFrames:     15,
			WarmupPause:      50 * time.Millisecond,
			Retries:          5,
			ReadRetryPause:   200 * time.Millisecond,
			BlankRetryPause:  500 * time.Millisecond,
			DownAfter:        3,
		},
		Quality: quality.DefaultThresholds(),
		Paths: Paths{
			BaseDir: ".",
		},
	}
}

func Load(file string) (Config, error) {
	cfg := Default()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", file, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Camera.Index < 0 {
		errs = append(errs, fmt.Errorf("camera.index %d is negative", c.Camera.Index))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera resolution %dx%d must be positive", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.Compression < 1 || c.Camera.Compression > 100 {
		errs = append(errs, fmt.Errorf("camera.compression %d not in 1..100", c.Camera.Compression))
	}
	if c.Camera.FourCC != "" && len(c.Camera.FourCC) != 4 {
		errs = append(errs, fmt.Errorf("camera.fourcc %q must be 4 characters", c.Camera.FourCC))
	}
	if c.Monitor.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("monitor.check_interval must be positive"))
	}
	if c.Monitor.SnapshotInterval <= 0 {
		errs = append(errs, fmt.Errorf("monitor.snapshot_interval must be positive"))
	}
	if c.Monitor.Retries <= 0 {
		errs = append(errs, fmt.Errorf("monitor.retries must be positive"))
	}
	if c.Monitor.WarmupFrames < 0 {
		errs = append(errs, fmt.Errorf("monitor.warmup_frames is negative"))
	}
	if c.SnapshotKeep < 0 {
		errs = append(errs, fmt.Errorf("snapshot_keep is negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	return nil
}

func (c Config) resolve(p, def string) string {
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.BaseDir, p)
}

func (c Config) LogFile() string {
	return c.resolve(c.Paths.LogFile, filepath.Join(consts.DefaultLogDir, consts.DefaultLogFile))
}

func (c Config) SnapshotDir() string {
	return c.resolve(c.Paths.SnapshotDir, consts.DefaultSnapshotDir)
}

func (c Config) StatusFile() string {
	return c.resolve(c.Paths.StatusFile, consts.DefaultStatusFile)
}
