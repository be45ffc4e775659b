// Package logging sets up the zerolog loggers used across the core.
// Every component gets its own child logger tagged with a "component"
// field, matching the teacher's per-package debug-tag convention
// (watcher.go's "[DEBUG] ..." prefixes) but structured instead of
// printf'd, so the same stream can fan out to console and to a single
// guideai.log file under ~/.guideai/logs/. There are no per-provider or
// per-component files: every component writes to that one file, told
// apart only by its "component" field.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	root zerolog.Logger
)

// Init configures the root logger. logsDir may be empty, in which case
// only the console writer is used.
func Init(logsDir string, debug bool) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

		writers := []io.Writer{console}
		if logsDir != "" {
			if err := os.MkdirAll(logsDir, 0o700); err == nil {
				if f, err := os.OpenFile(filepath.Join(logsDir, "guideai.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
					writers = append(writers, f)
				}
			}
		}

		root = zerolog.New(zerolog.MultiLevelWriter(writers...)).
			Level(level).
			With().Timestamp().Logger()
	})
}

// For returns a child logger tagged with the given component name. If
// Init has not been called yet, it lazily initializes a console-only
// logger so packages can be used in isolation (e.g. in tests).
func For(component string) zerolog.Logger {
	once.Do(func() {
		root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(zerolog.InfoLevel).
			With().Timestamp().Logger()
	})
	return root.With().Str("component", component).Logger()
}
