package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus metrics for the poll cycle. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	pollDuration     prometheus.Histogram
	lastPoll         prometheus.Gauge
	stepFailures     *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	gossipTimeouts   prometheus.Counter
	gossipMessages   prometheus.Gauge
	boardSize        *prometheus.GaugeVec
	round            prometheus.Gauge
	stage            prometheus.Gauge
}

// NewMetrics registers metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swarmwatch_poll_duration_seconds",
			Help:    "Latency of a full cache poll cycle",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmwatch_last_poll_timestamp_seconds",
			Help: "Unix time the last poll cycle completed",
		}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmwatch_poll_step_failures_total",
			Help: "Poll step failures grouped by step",
		}, []string{"step"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmwatch_upstream_failures_total",
			Help: "Failed upstream lookups grouped by source",
		}, []string{"source"}),
		gossipTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmwatch_gossip_timeouts_total",
			Help: "Gossip scans cut short by the time budget",
		}),
		gossipMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmwatch_gossip_messages",
			Help: "Number of messages in the current gossip feed",
		}),
		boardSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swarmwatch_leaderboard_entries",
			Help: "Number of leaderboard entries grouped by board",
		}, []string{"board"}),
		round: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmwatch_current_round",
			Help: "Last round reported by the coordinator",
		}),
		stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmwatch_current_stage",
			Help: "Last stage reported by the coordinator",
		}),
	}

	reg.MustRegister(
		m.pollDuration,
		m.lastPoll,
		m.stepFailures,
		m.upstreamFailures,
		m.gossipTimeouts,
		m.gossipMessages,
		m.boardSize,
		m.round,
		m.stage,
	)
	return m
}

func (m *Metrics) observePoll(d time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.pollDuration.Observe(d.Seconds())
	m.lastPoll.Set(float64(at.Unix()))
}

func (m *Metrics) observeStepFailure(step string) {
	if m == nil {
		return
	}
	m.stepFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) observeUpstreamFailure(source string) {
	if m == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) observeGossipTimeout() {
	if m == nil {
		return
	}
	m.gossipTimeouts.Inc()
}

func (m *Metrics) setGossipMessages(n int) {
	if m == nil {
		return
	}
	m.gossipMessages.Set(float64(n))
}

func (m *Metrics) setBoardSize(board string, n int) {
	if m == nil {
		return
	}
	m.boardSize.WithLabelValues(board).Set(float64(n))
}

func (m *Metrics) setPosition(round, stage int) {
	if m == nil {
		return
	}
	m.round.Set(float64(round))
	m.stage.Set(float64(stage))
}
