// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/models"
)

// simulate is the offline stand-in for the host. The verdict depends only on
// whether the body contains "raise"; this is a textual sentinel, not a parse.
func simulate(scriptBody, scriptPath string) models.ScriptExecutionResult {
	output := []string{
		fmt.Sprintf("[simulated] Running FreeCAD macro %s", filepath.Base(scriptPath)),
		"[simulated] FreeCAD started in headless mode",
	}
	result := models.ScriptExecutionResult{
		ScriptPath: scriptPath,
		Strategy:   models.StrategySimulation,
	}

	if strings.Contains(scriptBody, "raise") {
		result.OutputLog = output
		result.Error = "Script contains explicit raise statement"
		return result
	}

	result.Success = true
	result.OutputLog = append(output, "[simulated] FreeCAD finished successfully")
	return result
}
