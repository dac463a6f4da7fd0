// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/models"
)

// DefaultTailLines caps how much output a feedback block quotes
const DefaultTailLines = 40

// FormatFeedback describes a failed execution for the next generation prompt
func FormatFeedback(iteration int, result models.ScriptExecutionResult, tailLimit int) string {
	lines := []string{fmt.Sprintf("Iteration %d FreeCAD execution failed.", iteration)}
	if result.Error != "" {
		lines = append(lines, "Error: "+result.Error)
	}
	if len(result.OutputLog) > 0 {
		lines = append(lines, "Recent FreeCAD output:")
		lines = append(lines, TailLines(result.OutputLog, tailLimit)...)
	}
	if result.Error == "" && len(result.OutputLog) == 0 {
		lines = append(lines, "No output was captured before the failure.")
	}
	return strings.Join(lines, "\n")
}

// TailLines keeps the last limit lines, prefixed by a count of the dropped ones
func TailLines(lines []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultTailLines
	}
	if len(lines) <= limit {
		return append([]string(nil), lines...)
	}
	truncated := len(lines) - limit
	out := make([]string, 0, limit+1)
	out = append(out, fmt.Sprintf("... truncated %d earlier lines ...", truncated))
	return append(out, lines[truncated:]...)
}
