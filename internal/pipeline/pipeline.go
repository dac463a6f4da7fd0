// SPDX-License-Identifier: Apache-2.0

// Package pipeline drives the generate, execute, render and review loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/kusari-oss/cadsmith/internal/generator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrCancelled is returned when the cancellation check fires between steps
var ErrCancelled = errors.New("pipeline run was cancelled")

var tracer = otel.Tracer("cadsmith.pipeline")

// Terminal states
const (
	StateDone      = "done"
	StateExhausted = "exhausted"
	StateCancelled = "cancelled"
	StateFailed    = "failed"
)

// Generator produces a macro for a generation context
type Generator interface {
	Generate(ctx context.Context, gc generator.Context) (string, error)
}

// Runner persists and executes a macro
type Runner interface {
	RunScript(ctx context.Context, scriptBody string, iteration int) models.ScriptExecutionResult
}

// Renderer produces preview images; it never fails, it renders less
type Renderer interface {
	Render(ctx context.Context, requirement string, iteration int) []models.RenderResult
}

// Reviewer inspects the renders of an iteration
type Reviewer interface {
	Review(ctx context.Context, requirement string, iteration int, renderPaths []string, succeeded bool) (models.RenderReview, error)
}

// Controller owns the running state of one run at a time
type Controller struct {
	cfg         config.PipelineConfig
	environment models.EnvironmentInfo
	generator   Generator
	runner      Runner
	renderer    Renderer
	reviewer    Reviewer
	classifier  Classifier
	logger      *slog.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithClassifier replaces the keyword assembly classifier
func WithClassifier(classifier Classifier) Option {
	return func(c *Controller) {
		if classifier != nil {
			c.classifier = classifier
		}
	}
}

// WithEnvironment sets the host metadata quoted to the generator
func WithEnvironment(env models.EnvironmentInfo) Option {
	return func(c *Controller) {
		c.environment = env
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Controller
func New(cfg config.PipelineConfig, gen Generator, runner Runner, renderer Renderer, reviewer Reviewer, opts ...Option) *Controller {
	c := &Controller{
		cfg:         cfg,
		environment: models.DefaultEnvironment(),
		generator:   gen,
		runner:      runner,
		renderer:    renderer,
		reviewer:    reviewer,
		classifier:  NewKeywordClassifier(cfg.AssemblyKeywords...),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// runState is the controller's private running state for one run
type runState struct {
	errors                 []string
	history                []string
	pendingAdditionalViews bool
	requiresAssembly       bool
}

// Run iterates until a macro executes successfully or max iterations are spent.
// isCancelled may be nil. The report is always returned; the error is
// ErrCancelled when a checkpoint observed cancellation, or the generation error
// that stopped the run.
func (c *Controller) Run(ctx context.Context, requirement string, isCancelled func() bool) (*models.PipelineReport, error) {
	report := models.NewPipelineReport(uuid.NewString(), requirement)

	ctx, span := tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run_id", report.RunID),
			attribute.Int("max_iterations", c.cfg.MaxIterations),
		),
	)
	defer span.End()

	state := &runState{requiresAssembly: c.requiresAssembly(requirement)}
	c.logger.Info("pipeline started",
		"run_id", report.RunID,
		"max_iterations", c.cfg.MaxIterations,
		"requires_assembly", state.requiresAssembly)

	cancelled := func() bool {
		return ctx.Err() != nil || (isCancelled != nil && isCancelled())
	}

	finish := func(terminal string, err error) (*models.PipelineReport, error) {
		report.FinishedAt = time.Now().UTC()
		runsTotal.WithLabelValues(terminal).Inc()
		span.SetAttributes(attribute.String("state", terminal), attribute.Int("iterations", len(report.Artifacts)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Warn("pipeline stopped", "run_id", report.RunID, "state", terminal, "error", err)
		} else {
			span.SetStatus(codes.Ok, "")
			c.logger.Info("pipeline finished", "run_id", report.RunID, "state", terminal, "iterations", len(report.Artifacts))
		}
		return report, err
	}

	for iteration := 1; iteration <= c.cfg.MaxIterations; iteration++ {
		artifact, err := c.iterate(ctx, requirement, iteration, state, cancelled)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				return finish(StateCancelled, err)
			}
			return finish(StateFailed, err)
		}
		report.Append(artifact)
		if artifact.Success {
			return finish(StateDone, nil)
		}
		if cancelled() {
			return finish(StateCancelled, ErrCancelled)
		}
	}
	return finish(StateExhausted, nil)
}

// iterate runs one iteration. It returns an error only for cancellation and
// generation failures; everything else ends up in the artifact.
func (c *Controller) iterate(ctx context.Context, requirement string, iteration int, state *runState, cancelled func() bool) (models.IterationArtifact, error) {
	ctx, span := tracer.Start(ctx, "pipeline.iteration", trace.WithAttributes(attribute.Int("iteration", iteration)))
	defer span.End()

	// Cancellation is observed at the checkpoints only; a step in flight runs to completion.
	work := context.WithoutCancel(ctx)

	if cancelled() {
		return models.IterationArtifact{}, ErrCancelled
	}
	c.logger.Info("starting iteration", "iteration", iteration)

	gc := generator.Context{
		Requirement:            requirement,
		PreviousErrors:         append([]string(nil), state.errors...),
		Environment:            c.environment,
		RequestAdditionalViews: (c.cfg.RequestAdditionalViewsOnFailure && len(state.errors) > 0) || state.pendingAdditionalViews,
		RequiresAssembly:       state.requiresAssembly,
		ScriptHistory:          append([]string(nil), state.history...),
	}
	script, err := c.generator.Generate(work, gc)
	if err != nil {
		if cancelled() {
			return models.IterationArtifact{}, ErrCancelled
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.IterationArtifact{}, fmt.Errorf("iteration %d: %w", iteration, err)
	}
	state.history = append(state.history, script)
	if cancelled() {
		return models.IterationArtifact{}, ErrCancelled
	}

	execution := c.runner.RunScript(work, script, iteration)
	span.SetAttributes(attribute.String("strategy", execution.Strategy), attribute.Bool("success", execution.Success))
	if cancelled() {
		return models.IterationArtifact{}, ErrCancelled
	}

	renders := c.renderer.Render(work, requirement, iteration)
	if cancelled() {
		return models.IterationArtifact{}, ErrCancelled
	}

	renderPaths := make([]string, 0, len(renders))
	for _, r := range renders {
		renderPaths = append(renderPaths, r.ImagePath)
	}
	review := c.review(work, requirement, iteration, renderPaths, execution.Success)
	state.pendingAdditionalViews = state.pendingAdditionalViews || review.NeedsAdditionalViews

	artifact := models.IterationArtifact{
		Iteration:       iteration,
		ScriptPath:      execution.ScriptPath,
		ScriptBody:      script,
		OutputLog:       execution.OutputLog,
		RenderPaths:     renderPaths,
		Success:         execution.Success,
		Error:           execution.Error,
		RenderFeedback:  review.Feedback,
		AffectedObjects: execution.AffectedObjects,
	}

	if execution.Success {
		iterationsTotal.WithLabelValues("success").Inc()
		c.logger.Info("iteration succeeded", "iteration", iteration, "strategy", execution.Strategy)
		return artifact, nil
	}

	iterationsTotal.WithLabelValues("failure").Inc()
	span.SetStatus(codes.Error, execution.Error)
	c.logger.Warn("iteration failed", "iteration", iteration, "error", execution.Error)
	state.errors = append(state.errors, FormatFeedback(iteration, execution, c.cfg.FeedbackTailLines))
	return artifact, nil
}

func (c *Controller) review(ctx context.Context, requirement string, iteration int, renderPaths []string, succeeded bool) models.RenderReview {
	review, err := c.reviewer.Review(ctx, requirement, iteration, renderPaths, succeeded)
	if err != nil {
		reviewFallbacks.Inc()
		c.logger.Warn("render review failed", "iteration", iteration, "error", err)
		return models.RenderReview{Feedback: fmt.Sprintf("Render review failed: %v", err)}
	}
	return review
}

func (c *Controller) requiresAssembly(requirement string) bool {
	ok, err := c.classifier.RequiresAssembly(requirement)
	if err != nil {
		c.logger.Warn("assembly classifier failed, assuming a single part", "error", err)
		return false
	}
	return ok
}
