// SPDX-License-Identifier: Apache-2.0

// Package models holds the records passed between the pipeline components.
// Everything here is created once and handed off; only PipelineReport grows.
package models

import "time"

// Execution strategy names reported in ScriptExecutionResult.Strategy
const (
	StrategyEmbedded   = "embedded"
	StrategyProcess    = "process"
	StrategySimulation = "simulation"
)

// ScriptExecutionResult is the outcome of a single RunScript call
type ScriptExecutionResult struct {
	Success         bool     `json:"success" yaml:"success"`
	ScriptPath      string   `json:"script_path" yaml:"script_path"`
	OutputLog       []string `json:"output_log" yaml:"output_log"`
	Error           string   `json:"error,omitempty" yaml:"error,omitempty"`
	AffectedObjects []string `json:"affected_objects,omitempty" yaml:"affected_objects,omitempty"`
	Strategy        string   `json:"strategy" yaml:"strategy"`
}

// RenderResult is one rendered view of the current model
type RenderResult struct {
	View      string `json:"view" yaml:"view"`
	ImagePath string `json:"image_path" yaml:"image_path"`
}

// RenderReview is the reviewer's verdict on a set of renders
type RenderReview struct {
	Feedback             string `json:"feedback" yaml:"feedback"`
	NeedsAdditionalViews bool   `json:"needs_additional_views" yaml:"needs_additional_views"`
}

// IterationArtifact records everything one iteration produced
type IterationArtifact struct {
	Iteration       int      `json:"iteration" yaml:"iteration"`
	ScriptPath      string   `json:"script_path" yaml:"script_path"`
	ScriptBody      string   `json:"script_body" yaml:"script_body"`
	OutputLog       []string `json:"output_log" yaml:"output_log"`
	RenderPaths     []string `json:"render_paths" yaml:"render_paths"`
	Success         bool     `json:"success" yaml:"success"`
	Error           string   `json:"error,omitempty" yaml:"error,omitempty"`
	RenderFeedback  string   `json:"render_feedback,omitempty" yaml:"render_feedback,omitempty"`
	AffectedObjects []string `json:"affected_objects,omitempty" yaml:"affected_objects,omitempty"`
}

// PipelineReport owns the artifacts of one run, in iteration order
type PipelineReport struct {
	RunID       string              `json:"run_id" yaml:"run_id"`
	Requirement string              `json:"requirement" yaml:"requirement"`
	StartedAt   time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time           `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Artifacts   []IterationArtifact `json:"artifacts" yaml:"artifacts"`
}

// NewPipelineReport creates an empty report for the requirement
func NewPipelineReport(runID, requirement string) *PipelineReport {
	return &PipelineReport{
		RunID:       runID,
		Requirement: requirement,
		StartedAt:   time.Now().UTC(),
		Artifacts:   []IterationArtifact{},
	}
}

// Append adds a finished iteration to the report
func (r *PipelineReport) Append(artifact IterationArtifact) {
	r.Artifacts = append(r.Artifacts, artifact)
}

// Successful reports whether any iteration succeeded
func (r *PipelineReport) Successful() bool {
	for _, artifact := range r.Artifacts {
		if artifact.Success {
			return true
		}
	}
	return false
}

// LastError returns the error of the most recent artifact that has one
func (r *PipelineReport) LastError() string {
	for i := len(r.Artifacts) - 1; i >= 0; i-- {
		if r.Artifacts[i].Error != "" {
			return r.Artifacts[i].Error
		}
	}
	return ""
}

// ExtensionInfo names an add-on installed in the CAD host
type ExtensionInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// EnvironmentInfo describes the CAD host the generated macros will run in
type EnvironmentInfo struct {
	HostVersion string          `json:"host_version" yaml:"host_version"`
	Extensions  []ExtensionInfo `json:"extensions" yaml:"extensions"`
	Notes       string          `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// DefaultEnvironment is the environment assumed when none is configured
func DefaultEnvironment() EnvironmentInfo {
	return EnvironmentInfo{
		HostVersion: "0.21",
		Extensions: []ExtensionInfo{
			{Name: "Part", Version: "builtin"},
			{Name: "Sketcher", Version: "builtin"},
			{Name: "TechDraw", Version: "builtin"},
			{Name: "Assembly3", Version: "0.11"},
			{Name: "Assembly4", Version: "0.50"},
			{Name: "A2plus", Version: "0.4"},
		},
		Notes: "Headless mode with automatic recompute",
	}
}
