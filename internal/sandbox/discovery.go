// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"os/exec"

	"github.com/kusari-oss/cadsmith/internal/core/config"
)

// DiscoverExecutable resolves the FreeCAD command line binary. Candidates in
// order: the configured path as a file, the configured path looked up on PATH,
// then the environment variable named by cfg.ExecutableEnv. Empty means none.
func DiscoverExecutable(cfg config.CADConfig) string {
	if found := resolve(cfg.ExecutablePath); found != "" {
		return found
	}
	if cfg.ExecutableEnv != "" {
		if found := resolve(os.Getenv(cfg.ExecutableEnv)); found != "" {
			return found
		}
	}
	return ""
}

func resolve(candidate string) string {
	if candidate == "" {
		return ""
	}
	candidate = config.ExpandPathWithTilde(candidate)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	if found, err := exec.LookPath(candidate); err == nil {
		return found
	}
	return ""
}
