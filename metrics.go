// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives per-call measurements from both drivers.
// See the promstats package for a Prometheus implementation.
type MetricsCollector interface {
	// RecordCall is called after every RPC, including each poll made on
	// behalf of an HTTP stream. method is the bare operation name.
	RecordCall(transport, method string, duration time.Duration, err error)

	// RecordFallback is called when auto mode abandons one transport for
	// another.
	RecordFallback(from, to string)
}

type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCall(string, string, time.Duration, error) {}
func (NoopMetricsCollector) RecordFallback(string, string)                   {}

// BasicMetricsCollector keeps in-memory totals.
type BasicMetricsCollector struct {
	Calls      atomic.Int64
	Errors     atomic.Int64
	TotalNanos atomic.Int64
	Fallbacks  atomic.Int64
}

// RecordCall implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCall(_, _ string, duration time.Duration, err error) {
	b.Calls.Add(1)
	b.TotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.Errors.Add(1)
	}
}

// RecordFallback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFallback(string, string) {
	b.Fallbacks.Add(1)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	Calls     int64
	Errors    int64
	AvgNanos  int64
	Fallbacks int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Calls:     b.Calls.Load(),
		Errors:    b.Errors.Load(),
		Fallbacks: b.Fallbacks.Load(),
	}
	if s.Calls > 0 {
		s.AvgNanos = b.TotalNanos.Load() / s.Calls
	}
	return s
}
