package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for fileguardcore. Pass to
// components that need to record metrics.
type Metrics struct {
	RulesTotal         prometheus.Gauge
	DecisionsTotal     *prometheus.CounterVec
	MonitorQueueDepth  prometheus.Gauge
	MonitorDroppedTotal prometheus.Counter
	FramesSentTotal    prometheus.Counter
	ControlRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RulesTotal: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fileguardcore",
				Name:      "rules_total",
				Help:      "Number of rules currently stored",
			},
		),
		DecisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileguardcore",
				Name:      "decisions_total",
				Help:      "Total pre-callback decisions made",
			},
			[]string{"decision"}, // decision=allow/deny/allow_and_track
		),
		MonitorQueueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fileguardcore",
				Name:      "monitor_queue_depth",
				Help:      "Number of audit records currently queued",
			},
		),
		MonitorDroppedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "fileguardcore",
				Name:      "monitor_dropped_total",
				Help:      "Total audit records dropped due to a full queue",
			},
		),
		FramesSentTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "fileguardcore",
				Name:      "frames_sent_total",
				Help:      "Total monitor frames sent to the attached admin consumer",
			},
		),
		ControlRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileguardcore",
				Name:      "control_requests_total",
				Help:      "Total control-channel requests handled",
			},
			[]string{"type", "result"},
		),
	}
}
