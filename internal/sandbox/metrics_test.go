// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"testing"
	"time"

	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveExecution(t *testing.T) {
	tests := []struct {
		name    string
		result  models.ScriptExecutionResult
		outcome string
	}{
		{
			name:    "success",
			result:  models.ScriptExecutionResult{Success: true, Strategy: models.StrategyProcess},
			outcome: "success",
		},
		{
			name:    "failure",
			result:  models.ScriptExecutionResult{Error: "Traceback", Strategy: models.StrategyEmbedded},
			outcome: "failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := scriptExecutions.WithLabelValues(tt.result.Strategy, tt.outcome)
			before := testutil.ToFloat64(counter)

			observeExecution(tt.result, 250*time.Millisecond)

			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
	assert.Positive(t, testutil.CollectAndCount(executionDuration))
}
