package consts

const (
	DefaultSnapshotDir = "monitor_frames"
	DefaultLogDir      = "logs"
	DefaultLogFile     = "camera_monitor.log"
	DefaultStatusFile  = "status.json"

	DefaultImageExt = ".jpg"
	DefaultVideoExt = ".avi"

	DefaultFilePerm = 0660
	DefaultDirPerm  = 0750

	// SnapshotLayout names snapshot files by capture time.
	SnapshotLayout = "20060102_150405"
	// TimestampLayout is the status record timestamp, ISO-8601 to the second.
	TimestampLayout = "2006-01-02T15:04:05"
)
