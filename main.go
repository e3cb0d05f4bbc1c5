package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"camwatch/pkg/camera"
	"camwatch/pkg/camera/cv"
	"camwatch/pkg/camera/v4l"
	"camwatch/pkg/config"
	"camwatch/pkg/monitor"
	"camwatch/pkg/probe"
	"camwatch/pkg/storage"
	"camwatch/pkg/utils"
	"camwatch/pkg/utils/ps"
)

const maxClockDrift = 2 * time.Second

var (
	configFile string
	baseDir    string
	index      int
	interval   time.Duration
	ptzCycle   bool

	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:           "camwatch",
	Short:         "Poll an attached camera and record whether it yields usable frames",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the polling monitor until interrupted (default)",
	RunE:  runMonitor,
}

func init() {
	logger = utils.GetLogger()

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "YAML config file")
	pf.StringVar(&baseDir, "dir", "", "base directory for logs, snapshots and the status file")
	pf.IntVarP(&index, "index", "i", 0, "configured device index")
	pf.DurationVar(&interval, "interval", 0, "time between checks")
	pf.BoolVar(&ptzCycle, "ptz", false, "cycle digital pan/tilt/zoom effects on captured frames")

	rootCmd.AddCommand(runCmd, checkCmd, exportCmd, ptzCmd)
}

func main() {
	ctx, stop := utils.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Errorf("camwatch: %s", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Paths.BaseDir = baseDir
	}
	if flags.Changed("index") {
		cfg.Camera.Index = index
	}
	if flags.Changed("interval") {
		cfg.Monitor.CheckInterval = interval
	}
	if flags.Changed("ptz") {
		cfg.Monitor.PTZCycle = ptzCycle
	}

	return cfg, cfg.Validate()
}

func newSelector(cfg config.Config) *camera.Selector {
	return camera.NewSelector(
		[]camera.Driver{v4l.New(cfg.Camera.ReadTimeout), cv.New()},
		camera.WithProbeRange(cfg.Camera.ProbeRange),
		camera.WithLogger(logger),
	)
}

func newProber(cfg config.Config) probe.Prober {
	var c *probe.Command
	if cfg.Probe.Command == "" {
		c = probe.Default()
	} else {
		c = probe.NewCommand(cfg.Probe.Command, cfg.Probe.Args, cfg.Probe.Match)
		c.Nodes = cfg.Probe.Nodes
	}
	return c.WithLogger(logger)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err = utils.SetupLogger(cfg.LogFile()); err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	logger = utils.GetLogger()
	defer func() {
		_ = logger.Sync()
	}()

	checkClock(cfg.NTPServer)

	snapshotDir := cfg.SnapshotDir()
	snaps, err := storage.NewSnapshots(snapshotDir, cfg.Camera.Compression, cfg.SnapshotKeep)
	if err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	status := storage.NewStatusStore(cfg.StatusFile()).WithLogger(logger)

	m := monitor.New(cfg, newProber(cfg), newSelector(cfg), status,
		monitor.WithLogger(logger),
		monitor.WithSnapshots(snaps.WithLogger(logger)),
		monitor.WithHostSampler(func() (ps.Host, error) {
			return ps.Sample(snapshotDir)
		}),
	)
	logger.Infof("status file %s, snapshots in %s, log %s", cfg.StatusFile(), snapshotDir, cfg.LogFile())

	return m.Run(cmd.Context())
}

// checkClock warns when snapshot names would be skewed by a wrong clock.
func checkClock(server string) {
	if server == "" {
		return
	}
	offset, err := utils.ClockOffset(server)
	if err != nil {
		logger.Warnf("clock: query %s: %s", server, err)
		return
	}
	if utils.AbsDuration(offset) > maxClockDrift {
		logger.Warnf("clock: local time is off by %s according to %s", offset, server)
		return
	}
	logger.Debugf("clock: offset %s", offset)
}
