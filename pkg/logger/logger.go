package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// New creates a structured slog.Logger. Console output is text. When dir is
// set, records are also written as JSON to dir/info.log, and errors are
// duplicated to dir/error.log.
func New(level, dir string) (*slog.Logger, error) {
	handlerLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel})
	if dir == "" {
		return slog.New(consoleHandler), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	infoFile, err := openLog(filepath.Join(dir, "info.log"))
	if err != nil {
		return nil, err
	}
	errorFile, err := openLog(filepath.Join(dir, "error.log"))
	if err != nil {
		return nil, err
	}

	handler := &fanoutHandler{
		level: handlerLevel,
		sinks: []sink{
			{handler: consoleHandler, min: slog.LevelDebug},
			{handler: slog.NewJSONHandler(infoFile, &slog.HandlerOptions{Level: handlerLevel}), min: slog.LevelDebug},
			{handler: slog.NewJSONHandler(errorFile, &slog.HandlerOptions{Level: slog.LevelError}), min: slog.LevelError},
		},
	}
	return slog.New(handler), nil
}

// Discard returns a logger that drops every record. Used by tests and scripts.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type sink struct {
	handler slog.Handler
	min     slog.Level
}

// fanoutHandler routes each record to every sink whose minimum level it meets.
type fanoutHandler struct {
	level slog.Leveler
	sinks []sink
}

func (h *fanoutHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range h.sinks {
		if r.Level < s.min {
			continue
		}
		if err := s.handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) *fanoutHandler {
	next := &fanoutHandler{level: h.level, sinks: make([]sink, len(h.sinks))}
	for i, s := range h.sinks {
		next.sinks[i] = sink{handler: fn(s.handler), min: s.min}
	}
	return next
}

func parseLevel(level string) (slog.Leveler, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, errors.New("invalid log level")
	}
}
