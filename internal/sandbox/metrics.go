// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"time"

	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scriptExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadsmith",
			Subsystem: "sandbox",
			Name:      "executions_total",
			Help:      "Macro executions by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cadsmith",
			Subsystem: "sandbox",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock time spent executing a macro.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"strategy"},
	)

	strategyFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cadsmith",
			Subsystem: "sandbox",
			Name:      "strategy_fallbacks_total",
			Help:      "Times the process strategy was abandoned for simulation.",
		},
	)
)

func observeExecution(result models.ScriptExecutionResult, elapsed time.Duration) {
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	scriptExecutions.WithLabelValues(result.Strategy, outcome).Inc()
	executionDuration.WithLabelValues(result.Strategy).Observe(elapsed.Seconds())
}
