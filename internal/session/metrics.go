package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recognitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pogopad_recognitions_total",
			Help: "Total number of applied recognition results",
		},
		[]string{"status"},
	)

	recognitionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pogopad_recognition_duration_seconds",
			Help:    "Recognition duration in seconds, decode included",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
	)

	hitTestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pogopad_hit_tests_total",
			Help: "Total number of pointer hit-tests",
		},
		[]string{"result"}, // hit, miss
	)

	staleResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pogopad_stale_results_total",
			Help: "Recognition results discarded because a newer request or file superseded them",
		},
	)

	savesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pogopad_saves_total",
			Help: "Total number of save attempts",
		},
		[]string{"status"},
	)
)
