// SPDX-License-Identifier: Apache-2.0

// Package review asks the language model to inspect rendered previews.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/llm"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/kusari-oss/cadsmith/internal/core/schema"
)

const systemPrompt = "You are a manufacturing inspector reviewing rendered CAD previews. " +
	"Respond with JSON containing 'needs_additional_views' (true/false) and 'feedback'."

// Feedback used when the model gives nothing usable
const (
	FeedbackRenderingDisabled = "Rendering disabled"
	FeedbackStructuredDefault = "LLM render review complete"
	FeedbackRawDefault        = "Render review response received"
)

// verdictSchema accepts the structured reply; both fields are optional
var verdictSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"needs_additional_views": map[string]interface{}{"type": "boolean"},
		"feedback":               map[string]interface{}{"type": "string"},
	},
}

type verdict struct {
	NeedsAdditionalViews bool   `json:"needs_additional_views"`
	Feedback             string `json:"feedback"`
}

// Reviewer sends renders to the model and parses its verdict
type Reviewer struct {
	client llm.Client
	logger *slog.Logger
}

// New creates a Reviewer
func New(client llm.Client, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{client: client, logger: logger}
}

// Review asks the model whether the renders are sufficient. Without renders no
// request is made. Client errors are returned unchanged for the caller to absorb.
func (r *Reviewer) Review(ctx context.Context, requirement string, iteration int, renderPaths []string, succeeded bool) (models.RenderReview, error) {
	if len(renderPaths) == 0 {
		return models.RenderReview{Feedback: FeedbackRenderingDisabled}, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: BuildUserPrompt(requirement, iteration, succeeded)},
	}
	response, err := r.client.Complete(ctx, messages, renderPaths)
	if err != nil {
		return models.RenderReview{}, err
	}
	return r.Parse(response), nil
}

// BuildUserPrompt formats the review request
func BuildUserPrompt(requirement string, iteration int, succeeded bool) string {
	return strings.Join([]string{
		"=== RENDER REVIEW ===",
		fmt.Sprintf("Requirement: %s", strings.TrimSpace(requirement)),
		fmt.Sprintf("Iteration: %d", iteration),
		fmt.Sprintf("Succeeded: %t", succeeded),
		"If geometry is unclear request additional projections.",
	}, "\n")
}

// Parse reads a structured verdict, falling back to a keyword scan of free text
func (r *Reviewer) Parse(response string) models.RenderReview {
	if err := schema.ValidateJSON(verdictSchema, []byte(response)); err == nil {
		var v verdict
		if err := json.Unmarshal([]byte(response), &v); err == nil {
			if v.Feedback == "" {
				v.Feedback = FeedbackStructuredDefault
			}
			return models.RenderReview{Feedback: v.Feedback, NeedsAdditionalViews: v.NeedsAdditionalViews}
		}
	} else {
		r.logger.Debug("review response is not a structured verdict", "error", err)
	}

	lowered := strings.ToLower(response)
	feedback := strings.TrimSpace(response)
	if feedback == "" {
		feedback = FeedbackRawDefault
	}
	return models.RenderReview{
		Feedback:             feedback,
		NeedsAdditionalViews: strings.Contains(lowered, "additional") || strings.Contains(lowered, "extra view"),
	}
}
