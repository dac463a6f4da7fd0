// SPDX-License-Identifier: Apache-2.0

package generator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kusari-oss/cadsmith/internal/core/llm"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/kusari-oss/cadsmith/internal/generator"
	"github.com/kusari-oss/cadsmith/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// indexOf fails the test when needle is missing so ordering checks stay meaningful
func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, idx, 0, "missing %q in prompt:\n%s", needle, haystack)
	return idx
}

func TestBuildUserPrompt(t *testing.T) {
	gen := generator.New(&testutil.MockLLMClient{}, generator.WithLogger(quietLogger()))

	t.Run("first iteration has no history or errors", func(t *testing.T) {
		prompt := gen.BuildUserPrompt(generator.Context{
			Requirement: "  Create a 10x20x30 mm block  ",
			Environment: models.DefaultEnvironment(),
		})

		assert.True(t, strings.HasPrefix(prompt, "=== DESIGN REQUIREMENT ===\nCreate a 10x20x30 mm block\n"))
		assert.Contains(t, prompt, "FreeCAD version: 0.21")
		assert.Contains(t, prompt, "Installed extensions: Part (vbuiltin), Sketcher (vbuiltin), TechDraw (vbuiltin), Assembly3 (v0.11), Assembly4 (v0.50), A2plus (v0.4)")
		assert.Contains(t, prompt, "Notes: Headless mode with automatic recompute")
		assert.NotContains(t, prompt, "=== PREVIOUS PYTHON CONTEXT ===")
		assert.NotContains(t, prompt, "=== PREVIOUS ERRORS ===")
		assert.NotContains(t, prompt, "additional projections")
		assert.NotContains(t, prompt, "references an assembly")
		assert.True(t, strings.HasSuffix(prompt,
			"Reuse the document named 'LLMAgentProject', creating it only if it does not exist.\n"+
				"Return only Python code without markdown fences."))
	})

	t.Run("sections appear in a fixed order", func(t *testing.T) {
		prompt := gen.BuildUserPrompt(generator.Context{
			Requirement:            "Build an assembly of two plates",
			PreviousErrors:         []string{"Iteration 1 execution failed.\nError: boom"},
			Environment:            models.DefaultEnvironment(),
			RequestAdditionalViews: true,
			RequiresAssembly:       true,
			ScriptHistory:          []string{"print('one')\n"},
		})

		order := []string{
			"=== DESIGN REQUIREMENT ===",
			"=== ENVIRONMENT ===",
			"=== PREVIOUS PYTHON CONTEXT ===",
			"# --- script 1 ---\nprint('one')\n",
			"=== PREVIOUS ERRORS ===",
			"Iteration 1 execution failed.\nError: boom",
			"Render additional projections for better inspection.",
			"The requirement references an assembly.",
			"Reuse the document named",
			"Return only Python code without markdown fences.",
		}
		last := -1
		for _, section := range order {
			idx := indexOf(t, prompt, section)
			assert.Greater(t, idx, last, "%q out of order", section)
			last = idx
		}
	})

	t.Run("environment without extensions or notes", func(t *testing.T) {
		prompt := gen.BuildUserPrompt(generator.Context{
			Requirement: "x",
			Environment: models.EnvironmentInfo{
				HostVersion: "1.0",
				Extensions:  []models.ExtensionInfo{{Name: "Curves"}},
			},
		})
		assert.Contains(t, prompt, "FreeCAD version: 1.0\nInstalled extensions: Curves\n")
		assert.NotContains(t, prompt, "Notes:")

		prompt = gen.BuildUserPrompt(generator.Context{Requirement: "x"})
		assert.Contains(t, prompt, "Installed extensions: none")
	})
}

func TestHistoryWindow(t *testing.T) {
	history := []string{"s1", "s2", "s3", "s4", "s5"}

	tests := []struct {
		name    string
		window  int
		present []string
		absent  []string
	}{
		{
			name:    "default keeps the last three with absolute labels",
			window:  -1,
			present: []string{"# --- script 3 ---\ns3", "# --- script 4 ---\ns4", "# --- script 5 ---\ns5"},
			absent:  []string{"# --- script 2 ---", "s1"},
		},
		{
			name:    "window larger than history",
			window:  10,
			present: []string{"# --- script 1 ---\ns1", "# --- script 5 ---\ns5"},
		},
		{
			name:   "zero disables history",
			window: 0,
			absent: []string{"=== PREVIOUS PYTHON CONTEXT ===", "s5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []generator.Option{generator.WithLogger(quietLogger())}
			if tt.window >= 0 {
				opts = append(opts, generator.WithHistoryWindow(tt.window))
			}
			gen := generator.New(&testutil.MockLLMClient{}, opts...)
			prompt := gen.BuildUserPrompt(generator.Context{Requirement: "r", ScriptHistory: history})

			for _, s := range tt.present {
				assert.Contains(t, prompt, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, prompt, s)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	t.Run("sends system and user prompts without images", func(t *testing.T) {
		client := &testutil.MockLLMClient{}
		gen := generator.New(client, generator.WithProjectDocument("Gearbox"), generator.WithLogger(quietLogger()))

		client.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
			return len(msgs) == 2 &&
				msgs[0].Role == llm.RoleSystem &&
				strings.Contains(msgs[0].Content, "FreeCAD automation expert") &&
				msgs[1].Role == llm.RoleUser &&
				strings.Contains(msgs[1].Content, "Reuse the document named 'Gearbox'")
		}), []string(nil)).Return("import FreeCAD", nil).Once()

		script, err := gen.Generate(context.Background(), generator.Context{Requirement: "gear"})
		require.NoError(t, err)
		assert.Equal(t, "import FreeCAD", script)
		client.AssertExpectations(t)
	})

	t.Run("client errors are wrapped", func(t *testing.T) {
		client := &testutil.MockLLMClient{}
		gen := generator.New(client, generator.WithLogger(quietLogger()))
		cause := errors.New("quota exceeded")
		client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", cause)

		_, err := gen.Generate(context.Background(), generator.Context{Requirement: "gear"})
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "error generating script")
	})

	t.Run("works against the offline client", func(t *testing.T) {
		gen := generator.New(llm.NewDummyClient("LLMAgentProject", quietLogger()), generator.WithLogger(quietLogger()))
		script, err := gen.Generate(context.Background(), generator.Context{
			Requirement: "Create a block",
			Environment: models.DefaultEnvironment(),
		})
		require.NoError(t, err)
		assert.Contains(t, script, "LLMAgentProject")
		assert.NotContains(t, script, "```")
	})
}
