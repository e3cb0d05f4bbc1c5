package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
)

func init() {
	logger = NewLogger()
}

func GetLogger() *zap.SugaredLogger {
	return logger
}

// SetupLogger replaces the global logger with one that mirrors every line to
// stderr and to file. An empty file keeps stderr only.
func SetupLogger(file string) error {
	paths := []string{"stderr"}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
			return err
		}
		paths = append(paths, file)
	}
	l, err := buildLogger(paths)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func NewLogger() *zap.SugaredLogger {
	l, err := buildLogger([]string{"stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

func buildLogger(outputs []string) (*zap.SugaredLogger, error) {
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "msg",
			LevelKey:    "level",
			TimeKey:     "time",
			EncodeLevel: zapcore.CapitalLevelEncoder,
			EncodeTime:  zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
