// Package logging builds the zerolog logger shared by the server, the
// pipeline and the CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/config"
)

// Field names used across components.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldVideoID   = "video_id"
	FieldService   = "service"
)

// Setup returns a logger configured from cfg, writing to stderr.
func Setup(cfg config.LogConfig) zerolog.Logger {
	return New(cfg, os.Stderr)
}

// New returns a logger configured from cfg, writing to w.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if strings.ToLower(cfg.Format) != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str(FieldService, config.AppDirName).
		Logger()
}

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}
