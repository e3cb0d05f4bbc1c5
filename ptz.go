package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"camwatch/pkg/camera"
	"camwatch/pkg/utils"
)

var ErrNoHardwarePTZ = errors.New("device has no hardware pan/tilt/zoom, use --ptz for the digital cycle")

var (
	ptzPan, ptzTilt, ptzZoom float64
	ptzReset                 bool
)

var ptzCmd = &cobra.Command{
	Use:   "ptz",
	Short: "Report or drive the hardware pan/tilt/zoom controls of the device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		sess, err := newSelector(cfg).Open(ctx, cfg.Camera.Index)
		if err != nil {
			return err
		}
		defer func() {
			_ = sess.Close()
		}()
		logger.Infof("ptz: %s index %d before: %s", sess.Backend, sess.Index, camera.ReadPosition(sess))

		var moves []camera.Move
		flags := cmd.Flags()
		for _, m := range []camera.Move{
			{Axis: camera.PropPan, Value: ptzPan},
			{Axis: camera.PropTilt, Value: ptzTilt},
			{Axis: camera.PropZoom, Value: ptzZoom},
		} {
			if flags.Changed(m.Axis.String()) {
				moves = append(moves, m)
			}
		}
		if ptzReset || len(moves) > 0 {
			accepted := camera.Drive(sess, ptzReset, moves...)
			logger.Infof("ptz: accepted %v", accepted)
			// motors need a moment before the position reads back
			if err = utils.Sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
		}

		pos := camera.ReadPosition(sess)
		logger.Infof("ptz: %s", pos)
		if !pos.Supported() {
			return ErrNoHardwarePTZ
		}

		return nil
	},
}

func init() {
	f := ptzCmd.Flags()
	f.Float64Var(&ptzPan, "pan", 0, "absolute pan")
	f.Float64Var(&ptzTilt, "tilt", 0, "absolute tilt")
	f.Float64Var(&ptzZoom, "zoom", 0, "absolute zoom")
	f.BoolVar(&ptzReset, "reset", false, "home pan and tilt to 0 and zoom to its widest")
}
