// Package metrics counts the library's use: dispatched calls, invoked
// callbacks, registry mutations, and state-dump throughput. The core
// packages never touch it; the embedding layer (cmd/sidedemo)
// constructs one and updates its collectors itself.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Config configures the optional Prometheus exposition server.
type Config struct {
	// Addr is the listen address for the metrics server. Empty
	// disables Start (the Metrics struct still collects in-process).
	Addr string `yaml:"addr"`
}

// Metrics exposes Prometheus instrumentation for the core's own
// operations.
type Metrics struct {
	log      logrus.FieldLogger
	addr     string
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry

	CallsDispatched      prometheus.Counter
	CallbacksInvoked     prometheus.Counter
	RegistryInserts      prometheus.Counter
	RegistryRemoves      prometheus.Counter
	EventsRegistered     prometheus.Gauge
	StatedumpRequests    prometheus.Counter
	StatedumpCompletions prometheus.Counter
	StatedumpQueueDepth  prometheus.Gauge
}

// New creates a Metrics collector registered against its own
// Prometheus registry (never the global default registry, so multiple
// cores can coexist in one process without collector collisions).
func New(log logrus.FieldLogger, cfg Config) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		log:      log.WithField("component", "metrics"),
		addr:     cfg.Addr,
		registry: reg,

		CallsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "side",
			Name:      "calls_dispatched_total",
			Help:      "Total dispatch fast-path invocations across all events.",
		}),
		CallbacksInvoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "side",
			Name:      "callbacks_invoked_total",
			Help:      "Total attached callback invocations.",
		}),
		RegistryInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "side",
			Name:      "registry_inserts_total",
			Help:      "Total callback register operations.",
		}),
		RegistryRemoves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "side",
			Name:      "registry_removes_total",
			Help:      "Total callback unregister operations.",
		}),
		EventsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "side",
			Name:      "events_registered",
			Help:      "Number of currently registered event descriptions.",
		}),
		StatedumpRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "side",
			Name:      "statedump_requests_total",
			Help:      "Total state-dump requests enqueued.",
		}),
		StatedumpCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "side",
			Name:      "statedump_completions_total",
			Help:      "Total state-dump notifications fully run.",
		}),
		StatedumpQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "side",
			Name:      "statedump_queue_depth",
			Help:      "Pending state-dump notifications not yet run.",
		}),
	}

	reg.MustRegister(
		m.CallsDispatched,
		m.CallbacksInvoked,
		m.RegistryInserts,
		m.RegistryRemoves,
		m.EventsRegistered,
		m.StatedumpRequests,
		m.StatedumpCompletions,
		m.StatedumpQueueDepth,
	)

	return m
}

// Start begins serving /metrics. No-op if Addr is empty.
func (m *Metrics) Start(_ context.Context) error {
	if m.addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", m.addr, err)
	}

	m.listener = ln
	m.server = &http.Server{Handler: mux}

	go func() {
		m.log.WithField("addr", ln.Addr().String()).Info("metrics server started")

		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.log.WithError(err).Error("metrics server error")
		}
	}()

	return nil
}

// Addr returns the actual listener address. Useful when started with
// ":0" to get the OS-assigned port.
func (m *Metrics) Addr() string {
	if m.listener != nil {
		return m.listener.Addr().String()
	}

	return m.addr
}

// Stop closes the metrics server immediately, if one was started.
func (m *Metrics) Stop() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}
