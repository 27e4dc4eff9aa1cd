package monitor

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

type MetricsMonitor struct {
	cycles    *prometheus.CounterVec
	direction *prometheus.CounterVec
	duration  prometheus.Histogram
	size      prometheus.Gauge
}

func NewMetricsMonitor(reg prometheus.Registerer) *MetricsMonitor {
	m := &MetricsMonitor{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decision_cycles_total",
			Help: "Decision cycles by final status.",
		}, []string{"status"}),
		direction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decision_direction_total",
			Help: "Decisions by direction.",
		}, []string{"direction"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "decision_cycle_duration_seconds",
			Help:    "Wall time of a decision cycle.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decision_size_fraction",
			Help: "Size fraction of the latest decision.",
		}),
	}
	reg.MustRegister(m.cycles, m.direction, m.duration, m.size)
	return m
}

func (m *MetricsMonitor) Report(ctx context.Context, r Report) error {
	if !r.Final() {
		return nil
	}
	m.cycles.WithLabelValues(r.Status).Inc()
	m.duration.Observe(r.Duration().Seconds())
	if d := r.Decision; d != nil {
		m.direction.WithLabelValues(string(d.Direction)).Inc()
		m.size.Set(d.SizeFraction)
	}
	return nil
}
