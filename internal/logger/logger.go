package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var Log *slog.Logger

// Init installs the process logger: JSON lines to stdout and to a rotated
// app.log under dir. Calls made before Init are dropped.
func Init(dir, level string) {
	if dir == "" {
		dir = "logs"
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	if err := os.MkdirAll(dir, 0755); err != nil {
		// Fallback to stderr if the directory cannot be created
		Log = slog.New(slog.NewJSONHandler(os.Stderr, opts))
		slog.SetDefault(Log)
		return
	}

	writer := io.MultiWriter(os.Stdout, rotatingFile(dir, "app.log"))
	Log = slog.New(slog.NewJSONHandler(writer, opts))
	slog.SetDefault(Log)
}

func rotatingFile(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Info(msg string, args ...any) {
	if Log != nil {
		Log.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Log != nil {
		Log.Error(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Log != nil {
		Log.Warn(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Log != nil {
		Log.Debug(msg, args...)
	}
}
