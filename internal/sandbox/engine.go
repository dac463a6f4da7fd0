// SPDX-License-Identifier: Apache-2.0

// Package sandbox runs generated CAD macros. A macro is always written to the
// workspace first, then executed by one of three strategies chosen once when the
// Engine is built: inside a live host session, through the host's command line
// executable, or by an offline simulation that needs no host at all.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/core/models"
)

type strategyKind int

const (
	kindEmbedded strategyKind = iota
	kindProcess
	kindSimulation
)

func (k strategyKind) String() string {
	switch k {
	case kindEmbedded:
		return models.StrategyEmbedded
	case kindProcess:
		return models.StrategyProcess
	default:
		return models.StrategySimulation
	}
}

// Engine persists and executes macros
type Engine struct {
	cfg        config.CADConfig
	workspace  string
	session    Session
	dispatcher Dispatcher
	logger     *slog.Logger

	mu         sync.Mutex
	kind       strategyKind
	executable string
}

// Option configures an Engine
type Option func(*Engine)

// WithSession makes a live host session available for embedded execution
func WithSession(session Session) Option {
	return func(e *Engine) {
		e.session = session
	}
}

// WithDispatcher sets how calls are marshalled onto the session's owner thread
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = dispatcher
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine writing into workspace and selects its strategy
func New(cfg config.CADConfig, workspace string, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		workspace: workspace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	switch {
	case e.session != nil:
		e.kind = kindEmbedded
	default:
		if exe := DiscoverExecutable(cfg); exe != "" {
			e.kind = kindProcess
			e.executable = exe
		} else {
			e.kind = kindSimulation
			e.logger.Warn("FreeCAD executable not found, falling back to simulation",
				"configured", cfg.ExecutablePath, "env", cfg.ExecutableEnv)
		}
	}
	e.logger.Debug("execution strategy selected", "strategy", e.kind.String(), "executable", e.executable)
	return e
}

// Strategy reports the strategy the next RunScript call will use
func (e *Engine) Strategy() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kind.String()
}

// Executable returns the discovered host executable, if any
func (e *Engine) Executable() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executable
}

// ScriptPath is where the macro for an iteration is persisted
func (e *Engine) ScriptPath(iteration int) string {
	return filepath.Join(e.workspace, fmt.Sprintf("iteration_%d.py", iteration))
}

// LogPath is where the host writes its log for an iteration
func (e *Engine) LogPath(iteration int) string {
	return filepath.Join(e.workspace, fmt.Sprintf("iteration_%d.log", iteration))
}

// RunScript persists scriptBody and executes it. Failures are reported in the
// result, never as a Go error.
func (e *Engine) RunScript(ctx context.Context, scriptBody string, iteration int) models.ScriptExecutionResult {
	scriptPath := e.ScriptPath(iteration)

	e.mu.Lock()
	kind, executable := e.kind, e.executable
	e.mu.Unlock()

	if err := e.persist(scriptPath, scriptBody); err != nil {
		e.logger.Error("failed to store macro", "path", scriptPath, "error", err)
		return models.ScriptExecutionResult{
			ScriptPath: scriptPath,
			Error:      err.Error(),
			Strategy:   kind.String(),
		}
	}
	e.logger.Info("stored FreeCAD macro", "path", scriptPath, "iteration", iteration)

	start := time.Now()
	var result models.ScriptExecutionResult
	switch kind {
	case kindEmbedded:
		result = e.runEmbedded(ctx, scriptBody, scriptPath)
	case kindProcess:
		var notFound bool
		result, notFound = e.runProcess(ctx, executable, scriptPath, iteration)
		if notFound {
			e.logger.Error("FreeCAD executable disappeared at runtime, using simulation", "executable", executable)
			e.demote()
			result = simulate(scriptBody, scriptPath)
		}
	default:
		result = simulate(scriptBody, scriptPath)
	}

	observeExecution(result, time.Since(start))
	if result.Success {
		e.logger.Info("macro executed", "iteration", iteration, "strategy", result.Strategy)
	} else {
		e.logger.Warn("macro failed", "iteration", iteration, "strategy", result.Strategy, "error", result.Error)
	}
	return result
}

func (e *Engine) persist(path, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating workspace: %w", err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return fmt.Errorf("error writing macro: %w", err)
	}
	return nil
}

// demote drops the executable so every later call simulates
func (e *Engine) demote() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executable = ""
	e.kind = kindSimulation
	strategyFallbacks.Inc()
}
