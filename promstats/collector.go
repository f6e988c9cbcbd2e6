// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package promstats exports client call metrics to Prometheus.
//
//	c := promstats.New("ricedb")
//	prometheus.MustRegister(c)
//	client, err := ricedb.Dial(ctx, ricedb.WithMetrics(c))
package promstats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/ricedb"
)

var _ ricedb.MetricsCollector = (*Collector)(nil)

// Collector implements ricedb.MetricsCollector and prometheus.Collector.
type Collector struct {
	calls     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
}

// New creates a Collector whose metric names start with namespace.
func New(namespace string) *Collector {
	return &Collector{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_calls_total",
			Help:      "RPCs issued by the client.",
		}, []string{"transport", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_call_duration_seconds",
			Help:      "Latency of client RPCs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "method"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_transport_fallbacks_total",
			Help:      "Times auto mode switched transports.",
		}, []string{"from", "to"}),
	}
}

func (c *Collector) RecordCall(transport, method string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.calls.WithLabelValues(transport, method, status).Inc()
	c.latency.WithLabelValues(transport, method).Observe(duration.Seconds())
}

func (c *Collector) RecordFallback(from, to string) {
	c.fallbacks.WithLabelValues(from, to).Inc()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.calls.Describe(ch)
	c.latency.Describe(ch)
	c.fallbacks.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.calls.Collect(ch)
	c.latency.Collect(ch)
	c.fallbacks.Collect(ch)
}
