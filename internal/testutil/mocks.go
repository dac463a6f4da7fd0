// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"

	"github.com/kusari-oss/cadsmith/internal/core/llm"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/kusari-oss/cadsmith/internal/generator"
	"github.com/stretchr/testify/mock"
)

func hasExpectations(m *mock.Mock) bool {
	return len(m.ExpectedCalls) > 0
}

// MockLLMClient mocks llm.Client
type MockLLMClient struct {
	mock.Mock
}

// Complete mocks the Complete method
func (m *MockLLMClient) Complete(ctx context.Context, messages []llm.Message, images []string) (string, error) {
	args := m.Called(ctx, messages, images)
	return args.String(0), args.Error(1)
}

// MockGenerator mocks the pipeline's script generator
type MockGenerator struct {
	mock.Mock
}

// Generate mocks the Generate method
func (m *MockGenerator) Generate(ctx context.Context, gc generator.Context) (string, error) {
	args := m.Called(ctx, gc)
	return args.String(0), args.Error(1)
}

// MockRunner mocks the pipeline's script runner
type MockRunner struct {
	mock.Mock
}

// RunScript mocks the RunScript method
func (m *MockRunner) RunScript(ctx context.Context, scriptBody string, iteration int) models.ScriptExecutionResult {
	args := m.Called(ctx, scriptBody, iteration)
	return args.Get(0).(models.ScriptExecutionResult)
}

// MockRenderer mocks the renderer. Without expectations it renders nothing.
type MockRenderer struct {
	mock.Mock
}

// Render mocks the Render method
func (m *MockRenderer) Render(ctx context.Context, requirement string, iteration int) []models.RenderResult {
	if !hasExpectations(&m.Mock) {
		return nil
	}
	args := m.Called(ctx, requirement, iteration)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.RenderResult)
}

// MockReviewer mocks the render reviewer. Without expectations it approves silently.
type MockReviewer struct {
	mock.Mock
}

// Review mocks the Review method
func (m *MockReviewer) Review(ctx context.Context, requirement string, iteration int, renderPaths []string, succeeded bool) (models.RenderReview, error) {
	if !hasExpectations(&m.Mock) {
		return models.RenderReview{Feedback: "ok"}, nil
	}
	args := m.Called(ctx, requirement, iteration, renderPaths, succeeded)
	return args.Get(0).(models.RenderReview), args.Error(1)
}
