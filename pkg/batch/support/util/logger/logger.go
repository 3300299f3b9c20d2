// Package logger provides the leveled, package-level logging functions used across the batch.
// Output goes through log/slog; the console handler is tint, the alternative is slog's JSON handler.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

// LevelFatal sits above slog.LevelError.
const LevelFatal = slog.Level(12)

var (
	level   = new(slog.LevelVar)
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	current.Store(slog.New(newHandler(os.Stderr, "console")))
}

func newHandler(w io.Writer, format string) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

// Configure replaces the output handler. format is "console" (default) or "json".
func Configure(w io.Writer, format string) {
	current.Store(slog.New(newHandler(w, format)))
}

// SetLogLevel sets the global level. Valid values are DEBUG, INFO, WARN, ERROR and FATAL
// (case-insensitive); anything else falls back to INFO.
func SetLogLevel(lvl string) {
	switch strings.ToUpper(lvl) {
	case "DEBUG", "TRACE":
		level.Set(slog.LevelDebug)
	case "INFO":
		level.Set(slog.LevelInfo)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	case "FATAL":
		level.Set(LevelFatal)
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", lvl)
		level.Set(slog.LevelInfo)
	}
}

func logf(l slog.Level, format string, v ...interface{}) {
	lg := current.Load()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, v...))
}

// Debugf logs at DEBUG level.
func Debugf(format string, v ...interface{}) { logf(slog.LevelDebug, format, v...) }

// Infof logs at INFO level.
func Infof(format string, v ...interface{}) { logf(slog.LevelInfo, format, v...) }

// Warnf logs at WARN level.
func Warnf(format string, v ...interface{}) { logf(slog.LevelWarn, format, v...) }

// Errorf logs at ERROR level.
func Errorf(format string, v ...interface{}) { logf(slog.LevelError, format, v...) }

// Fatalf logs at FATAL level and exits the process with status 1.
func Fatalf(format string, v ...interface{}) {
	current.Load().Log(context.Background(), LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}
