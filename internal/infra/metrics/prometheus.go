package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vfx_jobs_processed_total",
		Help: "Total number of extraction jobs finished, by outcome",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vfx_job_duration_seconds",
		Help:    "Wall-clock duration of frame extraction jobs",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfx_frames_extracted_total",
		Help: "Total number of frames extracted across all jobs",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vfx_active_workers",
		Help: "Number of pool slots currently running extraction",
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vfx_cache_lookups_total",
		Help: "Recent-frames cache lookups, by result",
	}, []string{"result"})

	CacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfx_cache_evictions_total",
		Help: "Per-job cache entries evicted on cancellation",
	})
)
