package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kioskctl",
			Subsystem: "status_http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kioskctl",
			Subsystem: "status_http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	channelDatagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kioskctl",
			Subsystem: "channel",
			Name:      "datagrams_total",
			Help:      "Control channel readiness events by dispatch outcome.",
		},
		[]string{"outcome"},
	)
	channelCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kioskctl",
			Subsystem: "channel",
			Name:      "commands_total",
			Help:      "Decoded control commands by tag.",
		},
		[]string{"command"},
	)
	navigations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kioskctl",
			Subsystem: "host",
			Name:      "navigations_total",
			Help:      "Navigations handed to the renderer.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, channelDatagrams, channelCommands, navigations)
	})
}

func RecordStatusRequest(method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

func RecordDatagram(outcome string) {
	RegisterMetrics()
	channelDatagrams.WithLabelValues(outcome).Inc()
}

func RecordCommand(command string) {
	RegisterMetrics()
	channelCommands.WithLabelValues(command).Inc()
}

func RecordNavigation() {
	RegisterMetrics()
	navigations.Inc()
}

// ChannelRecorder reports dispatcher outcomes to the process registry.
type ChannelRecorder struct{}

func (ChannelRecorder) Outcome(outcome string) {
	RecordDatagram(outcome)
}

func (ChannelRecorder) Command(command string) {
	RecordCommand(command)
}
