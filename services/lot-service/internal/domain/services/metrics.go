package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lotCopyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lot_copy_total",
			Help: "Total number of processed source lots by outcome",
		},
		[]string{"outcome"},
	)

	imageRelayTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_relay_total",
			Help: "Total number of relayed images by outcome",
		},
		[]string{"outcome"},
	)

	subcategoryFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copy_subcategory_failures_total",
			Help: "Total number of subcategories skipped because their lots could not be fetched",
		},
	)

	sessionRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copy_session_refreshes_total",
			Help: "Total number of marketplace session refreshes during copy operations",
		},
	)

	copyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "copy_operation_duration_seconds",
			Help:    "Duration of whole copy operations",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)
