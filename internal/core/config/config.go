// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kusari-oss/cadsmith/internal/core/format"
	"github.com/kusari-oss/cadsmith/internal/core/models"
)

// Constants for default paths
const (
	DefaultConfigDir      = ".cadsmith"
	DefaultConfigFileName = "config.yaml"
	DefaultExecutablePath = "/usr/bin/freecadcmd"
	DefaultExecutableEnv  = "FREECAD_EXECUTABLE"
	DefaultProjectName    = "LLMAgentProject"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML nor JSON
var ErrUnsupportedFormat = format.ErrUnsupportedFormat

// API key environment fallbacks, keyed by provider
var apiKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"local":      "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"azure":      "AZURE_OPENAI_API_KEY",
}

// CADConfig describes how to reach the CAD host
type CADConfig struct {
	ExecutablePath  string   `yaml:"executable_path" json:"executable_path"`
	ExecutableEnv   string   `yaml:"executable_env" json:"executable_env"`
	Headless        bool     `yaml:"headless" json:"headless"`
	TimeoutSeconds  int      `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gt=0"`
	Args            []string `yaml:"args" json:"args" validate:"min=1,dive,required"`
	ProjectDocument string   `yaml:"project_document" json:"project_document" validate:"required"`
}

// LLMConfig selects and configures the language model provider
type LLMConfig struct {
	Provider          string            `yaml:"provider" json:"provider" validate:"oneof=dummy openai azure local openrouter"`
	Model             string            `yaml:"model" json:"model"`
	APIKey            string            `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	APIBase           string            `yaml:"api_base,omitempty" json:"api_base,omitempty"`
	Organization      string            `yaml:"organization,omitempty" json:"organization,omitempty"`
	OpenRouterAPIBase string            `yaml:"openrouter_api_base,omitempty" json:"openrouter_api_base,omitempty"`
	OpenRouterSiteURL string            `yaml:"openrouter_site_url,omitempty" json:"openrouter_site_url,omitempty"`
	OpenRouterAppName string            `yaml:"openrouter_app_name,omitempty" json:"openrouter_app_name,omitempty"`
	AzureEndpoint     string            `yaml:"azure_endpoint,omitempty" json:"azure_endpoint,omitempty"`
	AzureDeployment   string            `yaml:"azure_deployment,omitempty" json:"azure_deployment,omitempty"`
	AzureAPIVersion   string            `yaml:"azure_api_version" json:"azure_api_version"`
	LocalEndpoint     string            `yaml:"local_endpoint,omitempty" json:"local_endpoint,omitempty"`
	LocalHeaders      map[string]string `yaml:"local_headers,omitempty" json:"local_headers,omitempty"`
	MaxTokens         int               `yaml:"max_tokens" json:"max_tokens" validate:"gt=0"`
	Temperature       float32           `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxRetries        int               `yaml:"max_retries" json:"max_retries" validate:"gte=0"`
	RequestsPerMinute int               `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gte=0"`
}

// RendererConfig controls the preview images produced per iteration
type RendererConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	ImageDir string   `yaml:"image_dir" json:"image_dir" validate:"required"`
	Views    []string `yaml:"views" json:"views" validate:"dive,required"`
	Width    int      `yaml:"width" json:"width" validate:"gt=0"`
	Height   int      `yaml:"height" json:"height" validate:"gt=0"`
}

// PipelineConfig controls the iteration loop
type PipelineConfig struct {
	MaxIterations                   int      `yaml:"max_iterations" json:"max_iterations" validate:"gte=1"`
	RequestAdditionalViewsOnFailure bool     `yaml:"request_additional_views_on_failure" json:"request_additional_views_on_failure"`
	Workspace                       string   `yaml:"workspace" json:"workspace" validate:"required"`
	HistoryWindow                   int      `yaml:"history_window" json:"history_window" validate:"gte=0"`
	FeedbackTailLines               int      `yaml:"feedback_tail_lines" json:"feedback_tail_lines" validate:"gte=1"`
	AssemblyKeywords                []string `yaml:"assembly_keywords" json:"assembly_keywords" validate:"dive,required"`
	AssemblyExpression              string   `yaml:"assembly_expression,omitempty" json:"assembly_expression,omitempty"`
}

// ArtifactsConfig selects where run artifacts are published after a run
type ArtifactsConfig struct {
	Backend   string `yaml:"backend" json:"backend" validate:"oneof=none local s3"`
	Dir       string `yaml:"dir,omitempty" json:"dir,omitempty" validate:"required_if=Backend local"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" validate:"required_if=Backend s3"`
	Bucket    string `yaml:"bucket,omitempty" json:"bucket,omitempty" validate:"required_if=Backend s3"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty" json:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty" json:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
}

// Config holds the application configuration
type Config struct {
	CAD         CADConfig              `yaml:"cad" json:"cad"`
	LLM         LLMConfig              `yaml:"llm" json:"llm"`
	Renderer    RendererConfig         `yaml:"renderer" json:"renderer"`
	Pipeline    PipelineConfig         `yaml:"pipeline" json:"pipeline"`
	Environment models.EnvironmentInfo `yaml:"environment" json:"environment"`
	Artifacts   ArtifactsConfig        `yaml:"artifacts" json:"artifacts"`
}

// NewDefaultConfig creates a default configuration
func NewDefaultConfig() *Config {
	return &Config{
		CAD: CADConfig{
			ExecutablePath:  DefaultExecutablePath,
			ExecutableEnv:   DefaultExecutableEnv,
			Headless:        true,
			TimeoutSeconds:  180,
			Args:            []string{"-l", "{{.log_path}}", "{{.script_path}}"},
			ProjectDocument: DefaultProjectName,
		},
		LLM: LLMConfig{
			Provider:        "dummy",
			Model:           "gpt-4o-mini",
			AzureAPIVersion: "2024-02-01",
			MaxTokens:       2048,
			Temperature:     0.1,
			MaxRetries:      3,
		},
		Renderer: RendererConfig{
			Enabled:  true,
			ImageDir: "renders",
			Views:    []string{"isometric", "front", "right", "top"},
			Width:    1280,
			Height:   720,
		},
		Pipeline: PipelineConfig{
			MaxIterations:                   5,
			RequestAdditionalViewsOnFailure: true,
			Workspace:                       "artifacts",
			HistoryWindow:                   3,
			FeedbackTailLines:               40,
			AssemblyKeywords:                []string{"assembly", "assemblies", "сборк"},
		},
		Environment: models.DefaultEnvironment(),
		Artifacts: ArtifactsConfig{
			Backend: "none",
			Prefix:  "runs",
		},
	}
}

// ExpandPathWithTilde expands ~ to user home directory.
// It respects the CADSMITH_HOME environment variable for testing purposes.
func ExpandPathWithTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := getHomeDir()
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func getHomeDir() string {
	if home := os.Getenv("CADSMITH_HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// GlobalConfigFilePath returns the absolute path to the user's config file
func GlobalConfigFilePath() (string, error) {
	home := getHomeDir()
	if home == "" {
		return "", fmt.Errorf("could not get user home directory")
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFileName), nil
}

// ResolvePath returns path, or the user's global config file when path is empty
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	global, err := GlobalConfigFilePath()
	if err != nil {
		return ""
	}
	return global
}

// Load reads the configuration at path on top of the defaults.
// A missing file yields the defaults. A file that is neither YAML nor JSON
// is rejected with ErrUnsupportedFormat.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		path = ExpandPathWithTilde(path)
		if _, err := os.Stat(path); err == nil {
			if err := format.ParseFile(path, cfg); err != nil {
				return nil, fmt.Errorf("error loading config file '%s': %w", path, err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file '%s': %w", path, err)
		}
	}

	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironment fills credentials that were left out of the file
func (c *Config) applyEnvironment() {
	if c.LLM.APIKey != "" {
		return
	}
	if name, ok := apiKeyEnv[c.LLM.Provider]; ok {
		c.LLM.APIKey = os.Getenv(name)
	}
}

// Validate checks the struct tags of every section
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ImageDirPath resolves the render directory; relative paths live under the workspace
func (c *Config) ImageDirPath() string {
	if filepath.IsAbs(c.Renderer.ImageDir) {
		return c.Renderer.ImageDir
	}
	return filepath.Join(c.Pipeline.Workspace, c.Renderer.ImageDir)
}

// EnsureDirectories creates the workspace and render directories
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Pipeline.Workspace, c.ImageDirPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory '%s': %w", dir, err)
		}
	}
	return nil
}

// Save writes the configuration to path in the format implied by its extension
func Save(config *Config, path string) error {
	if err := format.WriteFile(ExpandPathWithTilde(path), config); err != nil {
		return fmt.Errorf("error writing config file '%s': %w", path, err)
	}
	return nil
}
