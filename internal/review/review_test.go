// SPDX-License-Identifier: Apache-2.0

package review_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/kusari-oss/cadsmith/internal/core/llm"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/kusari-oss/cadsmith/internal/review"
	"github.com/kusari-oss/cadsmith/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	r := review.New(&testutil.MockLLMClient{}, quietLogger())

	tests := []struct {
		name     string
		response string
		want     models.RenderReview
	}{
		{
			name:     "structured verdict",
			response: `{"needs_additional_views": true, "feedback": "Show the underside"}`,
			want:     models.RenderReview{Feedback: "Show the underside", NeedsAdditionalViews: true},
		},
		{
			name:     "structured verdict without feedback",
			response: `{"needs_additional_views": false}`,
			want:     models.RenderReview{Feedback: review.FeedbackStructuredDefault},
		},
		{
			name:     "missing flag means no extra views",
			response: `{"feedback": "Looks right"}`,
			want:     models.RenderReview{Feedback: "Looks right"},
		},
		{
			name:     "free text asking for more",
			response: "  Please provide additional projections of the flange.  ",
			want:     models.RenderReview{Feedback: "Please provide additional projections of the flange.", NeedsAdditionalViews: true},
		},
		{
			name:     "free text asking for an extra view",
			response: "An EXTRA VIEW from below would help",
			want:     models.RenderReview{Feedback: "An EXTRA VIEW from below would help", NeedsAdditionalViews: true},
		},
		{
			name:     "free text satisfied",
			response: "Geometry matches the requirement.",
			want:     models.RenderReview{Feedback: "Geometry matches the requirement."},
		},
		{
			name:     "empty response",
			response: "   ",
			want:     models.RenderReview{Feedback: review.FeedbackRawDefault},
		},
		{
			name:     "wrong field types fall back to text",
			response: `{"needs_additional_views": "yes", "feedback": "additional views"}`,
			want:     models.RenderReview{Feedback: `{"needs_additional_views": "yes", "feedback": "additional views"}`, NeedsAdditionalViews: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Parse(tt.response))
		})
	}
}

func TestReview(t *testing.T) {
	t.Run("no renders skips the model", func(t *testing.T) {
		client := &testutil.MockLLMClient{}
		got, err := review.New(client, quietLogger()).Review(context.Background(), "block", 1, nil, true)

		require.NoError(t, err)
		assert.Equal(t, models.RenderReview{Feedback: review.FeedbackRenderingDisabled}, got)
		client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sends prompts and attaches renders", func(t *testing.T) {
		client := &testutil.MockLLMClient{}
		paths := []string{"/r/01_front.png", "/r/01_top.png"}
		client.On("Complete", mock.Anything, []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a manufacturing inspector reviewing rendered CAD previews. Respond with JSON containing 'needs_additional_views' (true/false) and 'feedback'."},
			{Role: llm.RoleUser, Content: "=== RENDER REVIEW ===\nRequirement: block\nIteration: 2\nSucceeded: false\nIf geometry is unclear request additional projections."},
		}, paths).Return(`{"needs_additional_views": true, "feedback": "rotate"}`, nil).Once()

		got, err := review.New(client, quietLogger()).Review(context.Background(), "  block \n", 2, paths, false)

		require.NoError(t, err)
		assert.Equal(t, models.RenderReview{Feedback: "rotate", NeedsAdditionalViews: true}, got)
		client.AssertExpectations(t)
	})

	t.Run("client errors are returned", func(t *testing.T) {
		client := &testutil.MockLLMClient{}
		cause := errors.New("network down")
		client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", cause)

		_, err := review.New(client, quietLogger()).Review(context.Background(), "block", 1, []string{"a.png"}, true)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("offline client verdict", func(t *testing.T) {
		client := llm.NewDummyClient("", quietLogger())
		got, err := review.New(client, quietLogger()).Review(context.Background(), "block", 1, []string{"a.png"}, true)

		require.NoError(t, err)
		assert.Equal(t, models.RenderReview{Feedback: "Rendered projections inspected in dummy mode."}, got)
	})
}
