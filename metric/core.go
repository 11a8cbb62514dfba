package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core pipeline metrics shared across the process.
type Metrics struct {
	JobsSubmitted *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	WorkersLive   prometheus.Gauge
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all pipeline metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		JobsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fiddletunes",
				Subsystem: "jobs",
				Name:      "submitted_total",
				Help:      "Total number of analysis jobs submitted",
			},
			[]string{"stage"},
		),

		JobsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fiddletunes",
				Subsystem: "jobs",
				Name:      "completed_total",
				Help:      "Total number of analysis jobs completed",
			},
			[]string{"stage", "status"},
		),

		JobsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fiddletunes",
				Subsystem: "jobs",
				Name:      "failed_total",
				Help:      "Total number of analysis jobs that returned an error",
			},
			[]string{"stage", "class"},
		),

		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fiddletunes",
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Analysis job duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		WorkersLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fiddletunes",
				Subsystem: "workers",
				Name:      "live",
				Help:      "Number of workers currently executing a job",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fiddletunes",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of memoized result hits",
			},
			[]string{"stage"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fiddletunes",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of memoized result misses",
			},
			[]string{"stage"},
		),
	}
}

// RecordJobSubmitted increments the submitted job counter.
func (c *Metrics) RecordJobSubmitted(stage string) {
	c.JobsSubmitted.WithLabelValues(stage).Inc()
}

// RecordJobCompleted increments the completed job counter.
func (c *Metrics) RecordJobCompleted(stage, status string) {
	c.JobsCompleted.WithLabelValues(stage, status).Inc()
}

// RecordJobFailed increments the failed job counter.
func (c *Metrics) RecordJobFailed(stage, class string) {
	c.JobsFailed.WithLabelValues(stage, class).Inc()
}

// RecordJobDuration records job execution time.
func (c *Metrics) RecordJobDuration(stage string, duration time.Duration) {
	c.JobDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordCacheHit increments the cache hit counter.
func (c *Metrics) RecordCacheHit(stage string) {
	c.CacheHits.WithLabelValues(stage).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (c *Metrics) RecordCacheMiss(stage string) {
	c.CacheMisses.WithLabelValues(stage).Inc()
}
