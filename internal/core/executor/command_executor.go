// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kusari-oss/cadsmith/internal/core/template"
)

// ErrTimeout is returned when the command outlives its timeout
var ErrTimeout = errors.New("command timed out")

// waitDelay bounds how long Execute waits for output pipes after the process is killed
const waitDelay = 2 * time.Second

// CommandExecutor handles running an external command
type CommandExecutor struct {
	command     string
	args        []string
	workingDir  string
	environment []string
	timeout     time.Duration
	logger      *slog.Logger
}

// CommandResult holds the result of command execution
type CommandResult struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
	TimedOut   bool
	Duration   time.Duration
}

// NewCommandExecutor creates a new command executor
func NewCommandExecutor(command string, args []string) *CommandExecutor {
	return &CommandExecutor{
		command: command,
		args:    args,
		logger:  slog.Default(),
	}
}

// WithWorkingDir sets the working directory
func (e *CommandExecutor) WithWorkingDir(dir string) *CommandExecutor {
	e.workingDir = dir
	return e
}

// WithEnvironment sets the complete process environment
func (e *CommandExecutor) WithEnvironment(env []string) *CommandExecutor {
	e.environment = env
	return e
}

// WithTimeout bounds the wall-clock time of Execute; zero means no limit
func (e *CommandExecutor) WithTimeout(timeout time.Duration) *CommandExecutor {
	e.timeout = timeout
	return e
}

// WithLogger sets the logger used for command tracing
func (e *CommandExecutor) WithLogger(logger *slog.Logger) *CommandExecutor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Args returns the argument list as it will be passed to the command
func (e *CommandExecutor) Args() []string {
	return append([]string(nil), e.args...)
}

// ProcessParameters expands the templated arguments with params
func (e *CommandExecutor) ProcessParameters(params map[string]interface{}) error {
	processedArgs, err := template.ProcessStrings(e.args, params)
	if err != nil {
		return fmt.Errorf("error processing argument: %w", err)
	}
	e.args = processedArgs
	return nil
}

// Execute runs the command and returns its captured output.
// A non-zero exit is reported through both ExitStatus and the returned error.
// When the timeout elapses the result has TimedOut set and the error wraps ErrTimeout.
func (e *CommandExecutor) Execute(ctx context.Context) (*CommandResult, error) {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.command, e.args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if e.workingDir != "" {
		cmd.Dir = e.workingDir
	}
	if len(e.environment) > 0 {
		cmd.Env = e.environment
	}

	e.logger.Debug("executing command", "command", e.command, "args", strings.Join(e.args, " "))

	start := time.Now()
	err := cmd.Run()

	result := &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	if e.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		return result, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		result.ExitStatus = exitError.ExitCode()
	}

	return result, err
}

// IsNotFound reports whether err means the command itself could not be found
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
