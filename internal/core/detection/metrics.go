package detection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 每個層級的嘗試次數與結果
	tierAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_vision_detection_attempts_total",
			Help: "Total number of detection tier attempts",
		},
		[]string{"tier", "outcome"},
	)

	tierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipe_vision_detection_tier_duration_seconds",
			Help:    "Detection tier latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tier"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_vision_detection_cache_lookups_total",
			Help: "Detection cache lookups by result",
		},
		[]string{"result"},
	)
)
