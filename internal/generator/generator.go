// SPDX-License-Identifier: Apache-2.0

// Package generator turns a design requirement and the feedback gathered so far
// into a prompt, and asks the language model for a CAD macro.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/llm"
	"github.com/kusari-oss/cadsmith/internal/core/models"
)

const systemPrompt = "You are a FreeCAD automation expert. Generate executable Python macros " +
	"that follow FreeCAD API best practices and always call doc.recompute()."

// DefaultHistoryWindow is how many previous scripts are quoted back to the model
const DefaultHistoryWindow = 3

// Context is everything a single generation call needs to know
type Context struct {
	Requirement            string
	PreviousErrors         []string
	Environment            models.EnvironmentInfo
	RequestAdditionalViews bool
	RequiresAssembly       bool
	ScriptHistory          []string
}

// Generator builds prompts and delegates completion to an llm.Client
type Generator struct {
	client        llm.Client
	historyWindow int
	project       string
	logger        *slog.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithHistoryWindow sets how many trailing scripts appear in the prompt
func WithHistoryWindow(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.historyWindow = n
		}
	}
}

// WithProjectDocument names the persistent document the macro must reuse
func WithProjectDocument(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.project = name
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Generator
func New(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		client:        client,
		historyWindow: DefaultHistoryWindow,
		project:       "LLMAgentProject",
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks the model for a macro. The returned text is not validated here;
// execution is the validator.
func (g *Generator) Generate(ctx context.Context, gc Context) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: g.BuildUserPrompt(gc)},
	}

	g.logger.Debug("requesting macro",
		"previous_errors", len(gc.PreviousErrors),
		"history", len(gc.ScriptHistory),
		"additional_views", gc.RequestAdditionalViews,
		"assembly", gc.RequiresAssembly)

	script, err := g.client.Complete(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("error generating script: %w", err)
	}
	return script, nil
}

// BuildUserPrompt assembles the user prompt in its fixed section order
func (g *Generator) BuildUserPrompt(gc Context) string {
	lines := []string{
		"=== DESIGN REQUIREMENT ===",
		strings.TrimSpace(gc.Requirement),
		"",
		"=== ENVIRONMENT ===",
		fmt.Sprintf("FreeCAD version: %s", gc.Environment.HostVersion),
		fmt.Sprintf("Installed extensions: %s", formatExtensions(gc.Environment.Extensions)),
	}
	if gc.Environment.Notes != "" {
		lines = append(lines, fmt.Sprintf("Notes: %s", gc.Environment.Notes))
	}
	lines = append(lines, "")

	if history := g.historyLines(gc.ScriptHistory); len(history) > 0 {
		lines = append(lines, "=== PREVIOUS PYTHON CONTEXT ===")
		lines = append(lines, history...)
		lines = append(lines, "")
	}

	if len(gc.PreviousErrors) > 0 {
		lines = append(lines, "=== PREVIOUS ERRORS ===")
		lines = append(lines, gc.PreviousErrors...)
		lines = append(lines, "")
	}

	if gc.RequestAdditionalViews {
		lines = append(lines, "Render additional projections for better inspection.")
	}

	if gc.RequiresAssembly {
		lines = append(lines,
			"",
			"The requirement references an assembly. Import dependent parts using Assembly3/Assembly4/A2plus",
			"workbenches and ensure each sub-component document is loaded before constraints are solved.",
		)
	}

	lines = append(lines,
		fmt.Sprintf("Reuse the document named '%s', creating it only if it does not exist.", g.project),
		"Return only Python code without markdown fences.",
	)
	return strings.Join(lines, "\n")
}

// historyLines quotes the trailing window of scripts, labelled by absolute position
func (g *Generator) historyLines(history []string) []string {
	if g.historyWindow == 0 || len(history) == 0 {
		return nil
	}
	start := len(history) - g.historyWindow
	if start < 0 {
		start = 0
	}

	var lines []string
	for i := start; i < len(history); i++ {
		lines = append(lines, fmt.Sprintf("# --- script %d ---", i+1))
		lines = append(lines, strings.TrimRight(history[i], "\n"))
	}
	return lines
}

func formatExtensions(exts []models.ExtensionInfo) string {
	if len(exts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext.Version == "" {
			parts = append(parts, ext.Name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (v%s)", ext.Name, ext.Version))
	}
	return strings.Join(parts, ", ")
}
