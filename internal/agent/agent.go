// SPDX-License-Identifier: Apache-2.0

// Package agent wires configuration into a ready to run design pipeline.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/artifacts"
	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/core/format"
	"github.com/kusari-oss/cadsmith/internal/core/llm"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/kusari-oss/cadsmith/internal/generator"
	"github.com/kusari-oss/cadsmith/internal/pipeline"
	"github.com/kusari-oss/cadsmith/internal/render"
	"github.com/kusari-oss/cadsmith/internal/review"
	"github.com/kusari-oss/cadsmith/internal/sandbox"
)

// ReportFileName is written into the workspace after every run
const ReportFileName = "report.json"

// ErrEmptyScript is returned when a macro to execute has no content
var ErrEmptyScript = errors.New("script is empty")

// Agent holds the collaborators of one configured pipeline
type Agent struct {
	cfg        *config.Config
	client     llm.Client
	engine     *sandbox.Engine
	controller *pipeline.Controller
	logger     *slog.Logger
}

// Option configures an Agent
type Option func(*options)

type options struct {
	client     llm.Client
	session    sandbox.Session
	dispatcher sandbox.Dispatcher
	logger     *slog.Logger
}

// WithClient replaces the provider selected by the configuration
func WithClient(client llm.Client) Option {
	return func(o *options) { o.client = client }
}

// WithSession runs macros inside a live FreeCAD session
func WithSession(session sandbox.Session, dispatcher sandbox.Dispatcher) Option {
	return func(o *options) {
		o.session = session
		o.dispatcher = dispatcher
	}
}

// WithLogger sets the logger shared by every component
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds an Agent. Configuration problems such as missing credentials or
// an invalid assembly expression are reported here, before any run starts.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		var err error
		client, err = llm.NewClient(cfg.LLM, cfg.CAD.ProjectDocument, o.logger)
		if err != nil {
			return nil, fmt.Errorf("error creating llm client: %w", err)
		}
	}

	classifier, err := pipeline.NewClassifier(cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	engine := newEngine(cfg, o)

	controller := pipeline.New(cfg.Pipeline,
		generator.New(client,
			generator.WithHistoryWindow(cfg.Pipeline.HistoryWindow),
			generator.WithProjectDocument(cfg.CAD.ProjectDocument),
			generator.WithLogger(o.logger)),
		engine,
		render.New(cfg.Renderer, cfg.ImageDirPath(), o.logger),
		review.New(client, o.logger),
		pipeline.WithClassifier(classifier),
		pipeline.WithEnvironment(cfg.Environment),
		pipeline.WithLogger(o.logger),
	)

	return &Agent{cfg: cfg, client: client, engine: engine, controller: controller, logger: o.logger}, nil
}

// NewEngine builds only the execution engine, for running macros without a model
func NewEngine(cfg *config.Config, opts ...Option) *sandbox.Engine {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return newEngine(cfg, o)
}

func newEngine(cfg *config.Config, o *options) *sandbox.Engine {
	engineOpts := []sandbox.Option{sandbox.WithLogger(o.logger)}
	if o.session != nil {
		engineOpts = append(engineOpts, sandbox.WithSession(o.session))
	}
	if o.dispatcher != nil {
		engineOpts = append(engineOpts, sandbox.WithDispatcher(o.dispatcher))
	}
	return sandbox.New(cfg.CAD, cfg.Pipeline.Workspace, engineOpts...)
}

// Engine exposes the execution engine, mainly to report its strategy
func (a *Agent) Engine() *sandbox.Engine {
	return a.engine
}

// Run executes the pipeline for requirement
func (a *Agent) Run(ctx context.Context, requirement string, isCancelled func() bool) (*models.PipelineReport, error) {
	return a.controller.Run(ctx, requirement, isCancelled)
}

// ExecuteScript runs an existing macro through engine without the model
func ExecuteScript(ctx context.Context, engine *sandbox.Engine, body string, iteration int) (models.ScriptExecutionResult, error) {
	if strings.TrimSpace(body) == "" {
		return models.ScriptExecutionResult{}, ErrEmptyScript
	}
	return engine.RunScript(ctx, body, iteration), nil
}

// ReportPath is where WriteReport stores the report
func (a *Agent) ReportPath() string {
	return filepath.Join(a.cfg.Pipeline.Workspace, ReportFileName)
}

// WriteReport saves the report into the workspace
func (a *Agent) WriteReport(report *models.PipelineReport) (string, error) {
	path := a.ReportPath()
	if err := format.WriteFile(path, report); err != nil {
		return "", fmt.Errorf("error writing report: %w", err)
	}
	return path, nil
}

// Publish uploads the run to the configured artifacts backend; with none
// configured it does nothing
func (a *Agent) Publish(ctx context.Context, report *models.PipelineReport, reportPath string) ([]artifacts.Upload, error) {
	store, err := artifacts.NewStore(ctx, a.cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("error opening artifacts store: %w", err)
	}
	if store == nil {
		return nil, nil
	}
	uploads, err := artifacts.Publish(ctx, store, a.cfg.Artifacts.Prefix, report, reportPath)
	if err != nil {
		return uploads, fmt.Errorf("error publishing artifacts: %w", err)
	}
	a.logger.Info("published run artifacts", "run_id", report.RunID, "files", len(uploads))
	return uploads, nil
}

// LoadRequirement returns the requirement text. The argument is read as a file
// when isFile is set or when a file with that name exists.
func LoadRequirement(arg string, isFile bool) (string, error) {
	if !isFile {
		if info, err := os.Stat(arg); err != nil || info.IsDir() {
			return arg, nil
		}
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("error reading requirement file: %w", err)
	}
	return string(data), nil
}

// ArtifactSummary is one iteration in the CLI summary
type ArtifactSummary struct {
	Iteration int      `json:"iteration"`
	Script    string   `json:"script"`
	Renders   []string `json:"renders"`
	Success   bool     `json:"success"`
	Error     *string  `json:"error"`
}

// Summary is the JSON document printed after a run
type Summary struct {
	RunID     string            `json:"run_id"`
	Success   bool              `json:"success"`
	Artifacts []ArtifactSummary `json:"artifacts"`
}

// Summarize condenses a report for printing
func Summarize(report *models.PipelineReport) Summary {
	s := Summary{RunID: report.RunID, Success: report.Successful(), Artifacts: []ArtifactSummary{}}
	for _, a := range report.Artifacts {
		item := ArtifactSummary{
			Iteration: a.Iteration,
			Script:    a.ScriptPath,
			Renders:   append([]string{}, a.RenderPaths...),
			Success:   a.Success,
		}
		if a.Error != "" {
			msg := a.Error
			item.Error = &msg
		}
		s.Artifacts = append(s.Artifacts, item)
	}
	return s
}
