package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"camwatch/pkg/monitor"
	"camwatch/pkg/quality"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe, open and read one frame, then exit 0 on success or 1 on failure",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if !newProber(cfg).Present(ctx) {
			return monitor.ErrDeviceAbsent
		}
		sess, err := newSelector(cfg).Open(ctx, cfg.Camera.Index)
		if err != nil {
			return err
		}
		defer func() {
			_ = sess.Close()
		}()

		frame, err := sess.Read()
		if err != nil {
			return fmt.Errorf("%s index %d: %w", sess.Backend, sess.Index, err)
		}
		res := quality.Classify(frame, cfg.Quality)
		b := frame.Bounds()
		logger.Infof("check: read %dx%d frame via %s index %d: %s", b.Dx(), b.Dy(), sess.Backend, sess.Index, res.Diagnostics)
		if res.Blank {
			// a single read right after open is often dark, report without failing
			logger.Warnf("check: frame looks blank (%s)", res.Reason())
		}

		return nil
	},
}
