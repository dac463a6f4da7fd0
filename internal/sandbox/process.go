// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kusari-oss/cadsmith/internal/core/executor"
	"github.com/kusari-oss/cadsmith/internal/core/models"
)

const offscreenVar = "QT_QPA_PLATFORM"

// runProcess invokes the host executable on a persisted macro. The second
// return value is true when the executable vanished since discovery.
func (e *Engine) runProcess(ctx context.Context, executable, scriptPath string, iteration int) (models.ScriptExecutionResult, bool) {
	logPath := e.LogPath(iteration)
	result := models.ScriptExecutionResult{
		ScriptPath: scriptPath,
		Strategy:   models.StrategyProcess,
	}

	// a log left by an earlier run would be merged into this one
	if err := os.Remove(logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Debug("could not remove stale log", "path", logPath, "error", err)
	}

	// FreeCAD runs inside the workspace so relative exports land next to the macros
	workDir, err := filepath.Abs(e.workspace)
	if err != nil {
		result.Error = fmt.Sprintf("could not resolve workspace: %v", err)
		return result, false
	}
	cmd := executor.NewCommandExecutor(executable, e.cfg.Args).
		WithWorkingDir(workDir).
		WithTimeout(time.Duration(e.cfg.TimeoutSeconds) * time.Second).
		WithEnvironment(e.environment()).
		WithLogger(e.logger)

	if err := cmd.ProcessParameters(map[string]interface{}{
		"script_path": filepath.Join(workDir, filepath.Base(scriptPath)),
		"log_path":    filepath.Join(workDir, filepath.Base(logPath)),
		"iteration":   iteration,
	}); err != nil {
		result.Error = fmt.Sprintf("invalid argument template: %v", err)
		return result, false
	}

	out, err := cmd.Execute(ctx)
	switch {
	case out != nil && out.TimedOut:
		result.OutputLog = []string{"FreeCAD execution timed out"}
		result.Error = "Execution timed out"
		return result, false
	case err != nil && executor.IsNotFound(err):
		return result, true
	case err != nil && out == nil:
		result.Error = fmt.Sprintf("failed to start FreeCAD: %v", err)
		return result, false
	}

	output := splitLines(string(out.Stdout))
	output = append(output, splitLines(string(out.Stderr))...)
	if data, readErr := os.ReadFile(logPath); readErr == nil {
		output = append(output, splitLines(string(data))...)
	}
	result.OutputLog = output

	switch {
	case out.ExitStatus != 0:
		result.Error = fmt.Sprintf("FreeCAD exited with code %d", out.ExitStatus)
	case err != nil:
		result.Error = fmt.Sprintf("FreeCAD execution failed: %v", err)
	default:
		result.Error = scanForErrors(output)
	}
	result.Success = result.Error == ""
	return result, false
}

// environment inherits the caller's environment, forcing offscreen rendering when headless
func (e *Engine) environment() []string {
	env := os.Environ()
	if e.cfg.Headless {
		if _, set := os.LookupEnv(offscreenVar); !set {
			env = append(env, offscreenVar+"=offscreen")
		}
	}
	return env
}

func splitLines(data string) []string {
	data = strings.TrimRight(data, "\r\n")
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
