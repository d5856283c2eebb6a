package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks sync activity. A nil registerer yields working but
// unregistered collectors, which keeps tests independent.
type Metrics struct {
	Pushes       *prometheus.CounterVec
	PushDuration prometheus.Histogram
	QueueDepth   prometheus.Gauge
	Pulls        *prometheus.CounterVec
	Merged       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Pushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dayplan",
			Subsystem: "sync",
			Name:      "pushes_total",
			Help:      "Remote writes by record kind and outcome (ok, error, superseded, dropped).",
		}, []string{"kind", "result"}),
		PushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dayplan",
			Subsystem: "sync",
			Name:      "push_duration_seconds",
			Help:      "Time spent on one remote write including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "dayplan",
			Subsystem: "sync",
			Name:      "queue_depth",
			Help:      "Pending remote writes.",
		}),
		Pulls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dayplan",
			Subsystem: "sync",
			Name:      "pulls_total",
			Help:      "Remote fetch-and-merge runs by outcome.",
		}, []string{"result"}),
		Merged: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dayplan",
			Subsystem: "sync",
			Name:      "merged_records_total",
			Help:      "Records in merged collections.",
		}),
	}
}
