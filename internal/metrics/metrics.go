/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package metrics tracks the counters behind the protocol's "statistics"
// request type and exposes the same numbers to Prometheus for operators
// who'd rather scrape than poll the wire protocol.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics accumulates per-process counters since start. One instance is
// shared by every connection the dispatcher serves.
type Metrics struct {
	start time.Time

	mu             sync.Mutex
	transactions   uint64
	errors         uint64
	bytesIn        uint64
	bytesOut       uint64
	totalRespNanos int64
	maxRespNanos   int64
	lastTxnAt      time.Time

	promTransactions prometheus.Counter
	promErrors       prometheus.Counter
	promBytesIn      prometheus.Counter
	promBytesOut     prometheus.Counter
	promResponse     prometheus.Histogram
}

// New builds a Metrics instance and registers its Prometheus collectors
// against reg. reg may be nil to skip Prometheus registration entirely
// (e.g. in tests).
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		start: time.Now(),
		promTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskd",
			Name:      "transactions_total",
			Help:      "Total sync and statistics requests handled.",
		}),
		promErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskd",
			Name:      "errors_total",
			Help:      "Total requests that ended in a non-success response code.",
		}),
		promBytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskd",
			Name:      "bytes_in_total",
			Help:      "Total request payload bytes received.",
		}),
		promBytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskd",
			Name:      "bytes_out_total",
			Help:      "Total response payload bytes produced.",
		}),
		promResponse: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskd",
			Name:      "response_seconds",
			Help:      "Time to produce a response envelope for one request.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.promTransactions, m.promErrors, m.promBytesIn, m.promBytesOut, m.promResponse)
	}
	return m
}

// Observe records one completed request/response turn.
func (m *Metrics) Observe(reqBytes, respBytes int, dur time.Duration, failed bool) {
	m.promTransactions.Inc()
	m.promBytesIn.Add(float64(reqBytes))
	m.promBytesOut.Add(float64(respBytes))
	m.promResponse.Observe(dur.Seconds())
	if failed {
		m.promErrors.Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions++
	m.bytesIn += uint64(reqBytes)
	m.bytesOut += uint64(respBytes)
	ns := dur.Nanoseconds()
	m.totalRespNanos += ns
	if ns > m.maxRespNanos {
		m.maxRespNanos = ns
	}
	if failed {
		m.errors++
	}
	m.lastTxnAt = time.Now()
}

// Snapshot is the statistics response: one field per required response
// header (spec.md §6). Values are numeric; the caller renders them as
// decimal text.
type Snapshot struct {
	Uptime                time.Duration
	Transactions          uint64
	Errors                uint64
	Idle                  time.Duration
	TotalBytesIn          uint64
	TotalBytesOut         uint64
	AverageRequestBytes   float64
	AverageResponseBytes  float64
	AverageResponseTime   time.Duration
	MaximumResponseTime   time.Duration
	TransactionsPerSecond float64
}

// Snapshot computes the current statistics. Counters are process-lifetime
// only; spec.md §9 leaves persistence across restarts unspecified, so
// none is attempted.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	uptime := time.Since(m.start)
	s := Snapshot{
		Uptime:        uptime,
		Transactions:  m.transactions,
		Errors:        m.errors,
		TotalBytesIn:  m.bytesIn,
		TotalBytesOut: m.bytesOut,
	}
	if !m.lastTxnAt.IsZero() {
		s.Idle = time.Since(m.lastTxnAt)
	} else {
		s.Idle = uptime
	}
	if m.transactions > 0 {
		s.AverageRequestBytes = float64(m.bytesIn) / float64(m.transactions)
		s.AverageResponseBytes = float64(m.bytesOut) / float64(m.transactions)
		s.AverageResponseTime = time.Duration(m.totalRespNanos / int64(m.transactions))
	}
	s.MaximumResponseTime = time.Duration(m.maxRespNanos)
	if uptime.Seconds() > 0 {
		s.TransactionsPerSecond = float64(m.transactions) / uptime.Seconds()
	}
	return s
}
