package recipe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_vision_recipe_generations_total",
			Help: "Total number of recipe generation requests by outcome",
		},
		[]string{"outcome"},
	)

	llmDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_vision_llm_request_duration_seconds",
			Help:    "Language model call latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)
)
