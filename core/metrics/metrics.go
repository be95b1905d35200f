// Package metrics tracks the serving plane's counters: accept failures by
// errno class, connection closes by reason, and request totals. Counters are
// plain relaxed atomics so reactor threads never contend on them; a
// Prometheus collector reads the same atomics on scrape.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// AcceptCounters tracks accept() failures and EMFILE recoveries.
type AcceptCounters struct {
	EMFILE    atomic.Uint64
	ENFILE    atomic.Uint64
	ENOMEM    atomic.Uint64
	ENOBUFS   atomic.Uint64
	Other     atomic.Uint64
	Recovered atomic.Uint64
}

// Total returns the sum of all failure counters (recoveries excluded).
func (c *AcceptCounters) Total() uint64 {
	return c.EMFILE.Load() + c.ENFILE.Load() + c.ENOMEM.Load() +
		c.ENOBUFS.Load() + c.Other.Load()
}

// CloseCounters tracks connection closes by reason.
type CloseCounters struct {
	ReadError   atomic.Uint64
	ReadEOF     atomic.Uint64
	ParseError  atomic.Uint64
	WriteError  atomic.Uint64
	CloseHeader atomic.Uint64
	Drained     atomic.Uint64
}

// RequestCounters tracks served requests.
type RequestCounters struct {
	Total  atomic.Uint64
	Errors atomic.Uint64
}

// ServerMetrics groups all counters one server instance maintains.
type ServerMetrics struct {
	Accept   AcceptCounters
	Close    CloseCounters
	Requests RequestCounters
}

// Collector adapts ServerMetrics to a prometheus.Collector. Scrapes read the
// atomics directly; nothing is buffered.
type Collector struct {
	m *ServerMetrics

	acceptDesc    *prometheus.Desc
	recoveredDesc *prometheus.Desc
	closeDesc     *prometheus.Desc
	requestsDesc  *prometheus.Desc
	errorsDesc    *prometheus.Desc
}

// NewCollector creates a collector over m. Register it with a prometheus
// registry to expose the serving counters.
func NewCollector(m *ServerMetrics) *Collector {
	return &Collector{
		m: m,
		acceptDesc: prometheus.NewDesc(
			"katana_accept_errors_total",
			"Accept failures by errno class.",
			[]string{"reason"}, nil,
		),
		recoveredDesc: prometheus.NewDesc(
			"katana_accept_recovered_total",
			"EMFILE recoveries performed via the reserve descriptor.",
			nil, nil,
		),
		closeDesc: prometheus.NewDesc(
			"katana_connection_closes_total",
			"Connection closes by reason.",
			[]string{"reason"}, nil,
		),
		requestsDesc: prometheus.NewDesc(
			"katana_requests_total",
			"Requests dispatched.",
			nil, nil,
		),
		errorsDesc: prometheus.NewDesc(
			"katana_request_errors_total",
			"Requests answered with a status code of 400 or above.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acceptDesc
	ch <- c.recoveredDesc
	ch <- c.closeDesc
	ch <- c.requestsDesc
	ch <- c.errorsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counter := func(desc *prometheus.Desc, v uint64, labels ...string) prometheus.Metric {
		m, _ := prometheus.NewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
		return m
	}
	a := &c.m.Accept
	ch <- counter(c.acceptDesc, a.EMFILE.Load(), "emfile")
	ch <- counter(c.acceptDesc, a.ENFILE.Load(), "enfile")
	ch <- counter(c.acceptDesc, a.ENOMEM.Load(), "enomem")
	ch <- counter(c.acceptDesc, a.ENOBUFS.Load(), "enobufs")
	ch <- counter(c.acceptDesc, a.Other.Load(), "other")
	ch <- counter(c.recoveredDesc, a.Recovered.Load())

	cl := &c.m.Close
	ch <- counter(c.closeDesc, cl.ReadError.Load(), "read_error")
	ch <- counter(c.closeDesc, cl.ReadEOF.Load(), "read_eof")
	ch <- counter(c.closeDesc, cl.ParseError.Load(), "parse_error")
	ch <- counter(c.closeDesc, cl.WriteError.Load(), "write_error")
	ch <- counter(c.closeDesc, cl.CloseHeader.Load(), "close_header")
	ch <- counter(c.closeDesc, cl.Drained.Load(), "drained")

	ch <- counter(c.requestsDesc, c.m.Requests.Total.Load())
	ch <- counter(c.errorsDesc, c.m.Requests.Errors.Load())
}
