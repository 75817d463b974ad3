// Package observability carries the ambient stack: structured logging
// with secret redaction, Prometheus metrics, and OpenTelemetry tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string

	// Format is "json" (production default) or "text".
	Format string

	// Output defaults to os.Stdout.
	Output io.Writer

	// AddSource includes file:line in records.
	AddSource bool

	// RedactPatterns are extra regexes redacted from every record, on
	// top of the built-in secret patterns.
	RedactPatterns []string
}

// Built-in secret shapes scrubbed from every log record before it
// reaches a sink.
var defaultRedactPatterns = []string{
	`sk-ant-[a-zA-Z0-9_-]{8,}`,
	`sk-[a-zA-Z0-9]{20,}`,
	`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
	`(?i)(api[_-]?key|token|secret|password)[\s:=]+\S+`,
	`postgres://[^@\s]+@`,
}

// Logger wraps slog with redaction installed at the handler level, so
// every record — including ones logged through the default logger by
// deeper packages — passes through the same scrubbing.
type Logger struct {
	logger *slog.Logger
}

// NewLogger builds a Logger from cfg.
func NewLogger(cfg LogConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	redacts := make([]*regexp.Regexp, 0, len(defaultRedactPatterns)+len(cfg.RedactPatterns))
	for _, p := range append(append([]string{}, defaultRedactPatterns...), cfg.RedactPatterns...) {
		if re, err := regexp.Compile(p); err == nil {
			redacts = append(redacts, re)
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindString {
				a.Value = slog.StringValue(redact(a.Value.String(), redacts))
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &Logger{logger: slog.New(&redactingHandler{inner: handler, redacts: redacts})}
}

// Slog exposes the underlying slog.Logger for packages that take a plain
// *slog.Logger dependency.
func (l *Logger) Slog() *slog.Logger { return l.logger }

// redactingHandler scrubs record messages; attribute values are handled
// by ReplaceAttr on the inner handler.
type redactingHandler struct {
	inner   slog.Handler
	redacts []*regexp.Regexp
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, redact(record.Message, h.redacts), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(a)
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &redactingHandler{inner: h.inner.WithAttrs(attrs), redacts: h.redacts}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), redacts: h.redacts}
}

func redact(s string, redacts []*regexp.Regexp) string {
	for _, re := range redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}
