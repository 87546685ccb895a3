// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package logging provides structured logging with OpenTelemetry trace context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Options selects the output format and minimum level.
type Options struct {
	Format string // "json" or "text" (defaults to "json" if empty)
	Level  string // "debug", "info", "warn", "error" (defaults to "info" if empty)
}

// traceHandler stamps every record with the process identity and, when
// ctx carries a span, its trace and span ids.
type traceHandler struct {
	next     slog.Handler
	identity []slog.Attr
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.identity...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	//nolint:wrapcheck // slog.Handler contract
	return h.next.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{next: h.next.WithAttrs(attrs), identity: h.identity}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{next: h.next.WithGroup(name), identity: h.identity}
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, oops.Code("INVALID_LOG_LEVEL").
			With("level", name).
			Errorf("log level must be debug, info, warn or error, got %q", name)
	}
}

// Setup builds a logger writing opts.Format records to w, or to stderr
// when w is nil.
func Setup(service, version string, opts Options, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	ho := &slog.HandlerOptions{Level: level}
	var next slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "json":
		next = slog.NewJSONHandler(w, ho)
	case "text":
		next = slog.NewTextHandler(w, ho)
	default:
		return nil, oops.Code("INVALID_LOG_FORMAT").
			With("format", opts.Format).
			Errorf("log format must be json or text, got %q", opts.Format)
	}

	return slog.New(&traceHandler{
		next: next,
		identity: []slog.Attr{
			slog.String("service", service),
			slog.String("version", version),
		},
	}), nil
}

// SetDefault installs a Setup logger writing to stderr as the slog default.
func SetDefault(service, version string, opts Options) error {
	logger, err := Setup(service, version, opts, nil)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
