// Package logging provides structured logging with slog for layoutd.
//
// Privacy note: the daemon handles keystrokes. Word content is logged at
// debug level only; production levels (info and above) must never include
// typed text beyond the words the engine itself corrected.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string

	// Format is "text" or "json".
	Format string

	// Output is "stdout", "stderr", or "file".
	Output string

	// FilePath is the log file path when Output is "file".
	FilePath string
}

// DefaultConfig returns text logs at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

var (
	mu      sync.Mutex
	root    *slog.Logger
	closers []io.Closer
)

// Setup initializes the process logger and installs it as slog's default.
func Setup(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	w, closer, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)

	mu.Lock()
	root = logger
	if closer != nil {
		closers = append(closers, closer)
	}
	mu.Unlock()

	slog.SetDefault(logger)
	return logger, nil
}

// Component returns a child logger tagged with a component name.
func Component(name string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		return slog.Default().With("component", name)
	}
	return root.With("component", name)
}

// Close releases any open log files.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, c := range closers {
		c.Close()
	}
	closers = nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q", s)
}

func openOutput(cfg Config) (io.Writer, io.Closer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging: output=file requires file_path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0700); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
	return nil, nil, fmt.Errorf("logging: unknown output %q", cfg.Output)
}
