package subsense

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/subsense/subsense/internal"
)

// newLog returns an slog logger writing to both stdout and a rotated log
// file, and installs it as the default. The disable level short-circuits to a
// logger that never touches the filesystem.
func newLog(logPath string, level slog.Level) (*slog.Logger, io.Writer) {
	if level >= internal.Disable {
		logger := internal.NoOpLogger()
		slog.SetDefault(logger)
		return logger, io.Discard
	}
	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logWriter := io.MultiWriter(os.Stdout, rotator)
	logger := internal.NewLogger(logWriter, level)
	slog.SetDefault(logger)
	return logger, logWriter
}
