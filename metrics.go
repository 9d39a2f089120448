package yarpwbi

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "wbi_states"

// Metrics are the Prometheus collectors updated by an Estimator.
type Metrics struct {
	Cycles        prometheus.Counter
	ReadFailures  *prometheus.CounterVec
	Resizes       *prometheus.CounterVec
	SensorCount   *prometheus.GaugeVec
	CycleDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_total",
			Help:      "Number of completed estimation cycles.",
		}),
		ReadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "read_failures_total",
			Help:      "Number of failed sensor reads by sensor type.",
		}, []string{"sensor"}),
		Resizes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resizes_total",
			Help:      "Number of channel resizes following a sensor set change.",
		}, []string{"channel"}),
		SensorCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sensors",
			Help:      "Current number of sensors by sensor type.",
		}, []string{"sensor"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one estimation cycle.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Cycles, m.ReadFailures, m.Resizes, m.SensorCount, m.CycleDuration)
	}
	return m
}

func (m *Metrics) readFailed(t SensorType) {
	if m == nil {
		return
	}
	m.ReadFailures.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) resized(ch Channel) {
	if m == nil {
		return
	}
	m.Resizes.WithLabelValues(ch.String()).Inc()
}

func (m *Metrics) sensors(t SensorType, n int) {
	if m == nil {
		return
	}
	m.SensorCount.WithLabelValues(t.String()).Set(float64(n))
}

func (m *Metrics) cycle(seconds float64) {
	if m == nil {
		return
	}
	m.Cycles.Inc()
	m.CycleDuration.Observe(seconds)
}
