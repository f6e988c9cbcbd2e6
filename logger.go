// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with ricedb field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger on handler. A nil handler writes text to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger discards everything. It is the Client default.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithTransport tags records with the transport name.
func (l *Logger) WithTransport(name string) *Logger {
	return &Logger{Logger: l.Logger.With("transport", name)}
}

// LogCall records one RPC at debug, or at warn when it failed.
func (l *Logger) LogCall(ctx context.Context, method, requestID string, d time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "rpc failed",
			"method", method,
			"request_id", requestID,
			"duration", d,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "rpc",
		"method", method,
		"request_id", requestID,
		"duration", d,
	)
}
