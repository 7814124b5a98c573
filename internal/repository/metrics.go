package repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts repository operations. A nil *Metrics records nothing.
type Metrics struct {
	Ops       *prometheus.CounterVec
	UsedBytes prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialconnect",
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Repository operations by name and result (ok, error, noop).",
		}, []string{"op", "result"}),
		UsedBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "socialconnect",
			Subsystem: "repository",
			Name:      "storage_used_bytes",
			Help:      "Serialized size of the owned keys at the last usage check.",
		}),
	}
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Ops.WithLabelValues(op, result).Inc()
}

func (m *Metrics) noop(op string) {
	if m == nil {
		return
	}
	m.Ops.WithLabelValues(op, "noop").Inc()
}

func (m *Metrics) setUsed(n int64) {
	if m == nil {
		return
	}
	m.UsedBytes.Set(float64(n))
}
