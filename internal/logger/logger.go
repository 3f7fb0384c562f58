// Package logger holds the process-wide structured logger used by the heap
// packages to report detected misuse. Output is discarded until Init enables
// it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	current atomic.Pointer[slog.Logger]

	// mu serializes Init; file is the log file opened by the last Init.
	mu   sync.Mutex
	file *os.File
)

func init() {
	current.Store(discard())
}

// L returns the global logger. It discards all output until Init enables it.
func L() *slog.Logger { return current.Load() }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	defaultPrefix = "heapkit"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Writer  io.Writer  // Destination; takes precedence over LogDir
	LogDir  string     // Directory for dated log files when Writer is nil
	Prefix  string     // Log file name prefix. Default: heapkit
	JSON    bool       // Emit JSON records instead of text
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
}

// Init configures logging. Call from main() before any log calls.
// With neither Writer nor LogDir set, records go to stderr. A log file opened
// by an earlier Init is closed once the new logger is in place.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if !opts.Enabled {
		swap(discard(), nil)
		return nil
	}

	w := opts.Writer
	var f *os.File
	if w == nil && opts.LogDir != "" {
		var err error
		f, err = openLogFile(opts.LogDir, opts.Prefix)
		if err != nil {
			return err
		}
		w = f
	}
	if w == nil {
		w = os.Stderr
	}

	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.JSON {
		swap(slog.New(slog.NewJSONHandler(w, handlerOpts)), f)
	} else {
		swap(slog.New(slog.NewTextHandler(w, handlerOpts)), f)
	}
	return nil
}

// swap installs l and closes the previously owned log file. Callers hold mu.
func swap(l *slog.Logger, f *os.File) {
	current.Store(l)
	if file != nil {
		_ = file.Close()
	}
	file = f
}

func openLogFile(logDir, prefix string) (*os.File, error) {
	if prefix == "" {
		prefix = defaultPrefix
	}
	prefix += "-"

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	// Clean up old logs (best-effort, ignore errors)
	cleanOldLogs(logDir, prefix, time.Now())

	filename := filepath.Join(logDir, prefix+time.Now().Format("2006-01-02")+logSuffix)
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir, prefix string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// Parse date from filename: heapctl-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), prefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L().Error(msg, args...) }
