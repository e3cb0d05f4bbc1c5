package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"camwatch/pkg/storage"
	"camwatch/pkg/storage/consts"
	"camwatch/pkg/video"
)

var (
	exportOut string
	exportFPS int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Assemble saved snapshots into an MJPEG AVI",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		snaps, err := storage.NewSnapshots(cfg.SnapshotDir(), cfg.Camera.Compression, 0)
		if err != nil {
			return err
		}
		files, err := snaps.List()
		if err != nil {
			return err
		}
		logger.Infof("export: %d snapshots in %s", len(files), snaps.Dir())

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("exporting"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		b, skipped, err := video.Export(exportOut, files, exportFPS, func() {
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		for _, s := range skipped {
			logger.Warnf("export: skipped %s: %s", s.Name, s.Err)
		}
		if err != nil {
			return err
		}
		logger.Infof("export: wrote %d frames (%s) to %s", b.GetCnt(), humanize.Bytes(uint64(b.GetBytes())), exportOut)

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "snapshots"+consts.DefaultVideoExt, "output AVI file")
	exportCmd.Flags().IntVar(&exportFPS, "fps", 5, "frames per second")
}
