// SPDX-License-Identifier: Apache-2.0

package executor_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kusari-oss/cadsmith/internal/core/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandExecutor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}

	tempDir := t.TempDir()
	outputFile := filepath.Join(tempDir, "output.txt")

	tests := []struct {
		name        string
		command     string
		args        []string
		params      map[string]interface{}
		env         []string
		workDir     string
		shouldError bool
		outputCheck func(t *testing.T, result *executor.CommandResult, err error)
	}{
		{
			name:    "echo command",
			command: "echo",
			args:    []string{"Hello, {{.name}}!"},
			params:  map[string]interface{}{"name": "World"},
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				assert.Contains(t, string(result.Stdout), "Hello, World!")
				assert.Equal(t, 0, result.ExitStatus)
			},
		},
		{
			name:    "write to file",
			command: "bash",
			args:    []string{"-c", "echo '{{.content}}' > {{.output_file}}"},
			params: map[string]interface{}{
				"content":     "File content",
				"output_file": outputFile,
			},
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				content, readErr := os.ReadFile(outputFile)
				require.NoError(t, readErr)
				assert.Contains(t, string(content), "File content")
			},
		},
		{
			name:    "command with working directory",
			command: "pwd",
			args:    []string{},
			params:  map[string]interface{}{},
			workDir: tempDir,
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				assert.Contains(t, string(result.Stdout), tempDir)
			},
		},
		{
			name:    "stderr is captured separately",
			command: "bash",
			args:    []string{"-c", "echo out; echo err 1>&2"},
			params:  map[string]interface{}{},
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				assert.Equal(t, "out\n", string(result.Stdout))
				assert.Equal(t, "err\n", string(result.Stderr))
			},
		},
		{
			name:    "command with environment variables",
			command: "bash",
			args:    []string{"-c", "echo $TEST_VAR"},
			params:  map[string]interface{}{},
			env:     []string{"TEST_VAR=environment test", "PATH=" + os.Getenv("PATH")},
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				assert.Contains(t, string(result.Stdout), "environment test")
			},
		},
		{
			name:        "non-zero exit",
			command:     "bash",
			args:        []string{"-c", "echo partial; exit 3"},
			params:      map[string]interface{}{},
			shouldError: true,
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				assert.Equal(t, 3, result.ExitStatus)
				assert.Equal(t, "partial\n", string(result.Stdout))
				assert.False(t, executor.IsNotFound(err))
			},
		},
		{
			name:        "nonexistent command",
			command:     "thiscommanddoesnotexist",
			args:        []string{},
			params:      map[string]interface{}{},
			shouldError: true,
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				assert.True(t, executor.IsNotFound(err))
			},
		},
		{
			name:        "nonexistent absolute path",
			command:     filepath.Join(tempDir, "missing-binary"),
			args:        []string{},
			params:      map[string]interface{}{},
			shouldError: true,
			outputCheck: func(t *testing.T, result *executor.CommandResult, err error) {
				assert.True(t, executor.IsNotFound(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmdExecutor := executor.NewCommandExecutor(tt.command, tt.args)
			if tt.env != nil {
				cmdExecutor.WithEnvironment(tt.env)
			}
			if tt.workDir != "" {
				cmdExecutor.WithWorkingDir(tt.workDir)
			}

			err := cmdExecutor.ProcessParameters(tt.params)
			require.NoError(t, err, "Failed to process parameters")

			result, err := cmdExecutor.Execute(context.Background())
			if tt.shouldError {
				assert.Error(t, err, "Expected error for command: %s", tt.command)
			} else {
				assert.NoError(t, err, "Unexpected error for command: %s %v", tt.command, tt.args)
			}
			if tt.outputCheck != nil {
				require.NotNil(t, result)
				tt.outputCheck(t, result, err)
			}
		})
	}
}

func TestCommandExecutorTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}

	cmdExecutor := executor.NewCommandExecutor("sleep", []string{"5"}).
		WithTimeout(100 * time.Millisecond)

	start := time.Now()
	result, err := cmdExecutor.Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrTimeout)
	assert.True(t, result.TimedOut)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandExecutorWithInvalidTemplates(t *testing.T) {
	cmdExecutor := executor.NewCommandExecutor("echo", []string{"Hello, {{.missing_param}}!"})

	err := cmdExecutor.ProcessParameters(map[string]interface{}{
		"name": "World",
	})

	assert.Error(t, err, "Expected error for missing parameter")
	assert.Contains(t, err.Error(), "error processing argument")
}

func TestCommandExecutorWithMultipleArguments(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}

	cmdExecutor := executor.NewCommandExecutor("echo", []string{
		"{{.first}}",
		"{{.second}}",
		"{{.third}}",
	})

	err := cmdExecutor.ProcessParameters(map[string]interface{}{
		"first":  "one",
		"second": "two",
		"third":  "three",
	})
	require.NoError(t, err, "Failed to process parameters")
	assert.Equal(t, []string{"one", "two", "three"}, cmdExecutor.Args())

	result, err := cmdExecutor.Execute(context.Background())
	assert.NoError(t, err, "Failed to execute command")
	assert.Contains(t, string(result.Stdout), "one two three")
}
