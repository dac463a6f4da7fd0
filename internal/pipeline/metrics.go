// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	iterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadsmith",
			Subsystem: "pipeline",
			Name:      "iterations_total",
			Help:      "Completed iterations by outcome.",
		},
		[]string{"outcome"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadsmith",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Finished runs by terminal state.",
		},
		[]string{"state"},
	)

	reviewFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cadsmith",
			Subsystem: "pipeline",
			Name:      "review_fallbacks_total",
			Help:      "Reviews replaced by a fallback verdict after an error.",
		},
	)
)
