// Package metrics exports CtrlCmd call and reservation statistics to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd"
)

const namespace = "edcbmon"

// Metrics holds the exporter's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	reservations prometheus.Gauge
	recording    prometheus.Gauge
	lastPoll     prometheus.Gauge
}

var _ ctrlcmd.Observer = (*Metrics)(nil)

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ctrlcmd",
				Name:      "calls_total",
				Help:      "Total CtrlCmd exchanges by command and status.",
			},
			[]string{"cmd", "status"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ctrlcmd",
				Name:      "call_duration_seconds",
				Help:      "CtrlCmd exchange duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"cmd"},
		),
		reservations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "reservations",
			Help:      "Reservations seen in the last poll.",
		}),
		recording: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "recording",
			Help:      "Reservations recording at the last poll.",
		}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last successful poll.",
		}),
	}
	m.registry.MustRegister(
		m.calls, m.callDuration, m.reservations, m.recording, m.lastPoll,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCall records one exchange.
func (m *Metrics) ObserveCall(cmd ctrlcmd.Command, code ctrlcmd.ErrCode, elapsed time.Duration) {
	m.calls.WithLabelValues(cmd.String(), code.String()).Inc()
	m.callDuration.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
}

// ObserveSnapshot records the outcome of a monitor poll.
func (m *Metrics) ObserveSnapshot(at time.Time, total, recording int) {
	m.reservations.Set(float64(total))
	m.recording.Set(float64(recording))
	m.lastPoll.Set(float64(at.Unix()))
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
