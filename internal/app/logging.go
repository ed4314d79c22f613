package app

import (
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the application logger. Logs go to a rotated JSON
// file so diagnostics never mix into the interactive terminal; debug
// mode fans out a text copy to stderr.
func NewLogger(level string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	file := &lumberjack.Logger{
		Filename:   filepath.Join("logs", "chatstorm.log"),
		MaxSize:    16, // megabytes
		MaxBackups: 4,
		MaxAge:     28, // days
		Compress:   true,
	}

	var handler slog.Handler = slog.NewJSONHandler(file, opts)
	if debug {
		handler = slogmulti.Fanout(
			handler,
			slog.NewTextHandler(os.Stderr, opts),
		)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
