// Package logger builds slog loggers for billingkit services: JSON output
// for production aggregation, text for development, level and format
// driven by environment configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config is the environment-driven logger configuration, loaded via
// pkg/config.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Option configures logger creation.
type Option func(*settings)

type settings struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithFormat sets the output format. Panics on an unknown format so a
// misconfigured service fails at startup instead of logging garbage.
func WithFormat(f Format) Option {
	return func(s *settings) {
		switch f {
		case FormatJSON, FormatText:
			s.format = f
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
		}
	}
}

// WithOutput sets the output destination; nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithAttr attaches static attributes to every record, e.g. the service
// name.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) { s.attrs = append(s.attrs, attrs...) }
}

// New builds a slog.Logger with the given options. Defaults: info level,
// JSON format, stdout.
func New(opts ...Option) *slog.Logger {
	s := &settings{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	handlerOpts := &slog.HandlerOptions{Level: s.level}

	var handler slog.Handler
	switch s.format {
	case FormatText:
		handler = slog.NewTextHandler(s.output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(s.output, handlerOpts)
	}
	if len(s.attrs) > 0 {
		handler = handler.WithAttrs(s.attrs)
	}

	return slog.New(handler)
}

// NewFromConfig builds a logger from environment configuration.
func NewFromConfig(cfg Config, opts ...Option) *slog.Logger {
	base := []Option{
		WithLevel(parseLevel(cfg.Level)),
		WithFormat(Format(strings.ToLower(cfg.Format))),
	}
	return New(append(base, opts...)...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
