package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls        *prometheus.CounterVec   // by tool and status
	toolCallDuration *prometheus.HistogramVec // by tool
	watchConversions *prometheus.CounterVec   // by mode and status
	connections      prometheus.Gauge         // open daemon connections
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "morse_tool_calls_total",
				Help: "Tool calls handled, by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "morse_tool_call_duration_seconds",
				Help:    "Tool call latency",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"tool"},
		),
		watchConversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "morse_watch_conversions_total",
				Help: "Files converted by watch rules, by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		connections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "morse_daemon_connections",
				Help: "Open daemon socket connections",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveToolCall implements tools.Observer.
func (m *Metrics) ObserveToolCall(name string, duration time.Duration, err error) {
	m.toolCalls.WithLabelValues(name, status(err)).Inc()
	m.toolCallDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func (m *Metrics) ObserveConversion(mode string, err error) {
	m.watchConversions.WithLabelValues(mode, status(err)).Inc()
}

func (m *Metrics) ConnectionOpened() { m.connections.Inc() }
func (m *Metrics) ConnectionClosed() { m.connections.Dec() }

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
