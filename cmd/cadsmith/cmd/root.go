// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kusari-oss/cadsmith/cmd/cadsmith/cmd/configcmd"
	"github.com/kusari-oss/cadsmith/cmd/cadsmith/cmd/models"
	"github.com/kusari-oss/cadsmith/cmd/cadsmith/cmd/run"
	"github.com/kusari-oss/cadsmith/cmd/cadsmith/cmd/script"
	"github.com/kusari-oss/cadsmith/internal/telemetry"
	"github.com/kusari-oss/cadsmith/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd, rootTelemetry = newRootCmd()

// telemetryState holds what a command invocation must flush on exit
type telemetryState struct {
	metricsFile     string
	shutdownTracing func(context.Context) error
}

// flush stops tracing and writes the metrics file. It runs after the command
// whether or not it failed.
func (s *telemetryState) flush(ctx context.Context) error {
	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
		s.shutdownTracing = nil
	}
	if s.metricsFile != "" {
		return telemetry.WriteMetrics(s.metricsFile)
	}
	return nil
}

func newRootCmd() (*cobra.Command, *telemetryState) {
	var (
		verbose      bool
		logFormat    string
		traceEnabled bool
		state        = &telemetryState{}
	)

	root := &cobra.Command{
		Use:   "cadsmith",
		Short: "LLM driven FreeCAD macro generation",
		Long: `Cadsmith turns a natural language design requirement into a FreeCAD macro.
It generates a macro with a language model, executes it, renders previews,
asks the model to review them and feeds failures back until a macro succeeds.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version.Version, version.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), logFormat, verbose)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			if traceEnabled {
				state.shutdownTracing, err = telemetry.InitTracing(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("error initializing tracing: %w", err)
				}
			}
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "config file, YAML or JSON (default is ~/.cadsmith/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", telemetry.FormatAuto, "log format: auto, text or json")
	root.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "print trace spans to stderr")
	root.PersistentFlags().StringVar(&state.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(run.NewRunCmd())
	root.AddCommand(script.NewScriptCmd())
	root.AddCommand(models.NewModelsCmd())
	root.AddCommand(configcmd.NewConfigCmd())
	return root, state
}

// executeRoot runs root and flushes telemetry afterwards, also when the command failed.
// A flush error is only returned when the command itself succeeded.
func executeRoot(root *cobra.Command, state *telemetryState) (err error) {
	defer func() {
		if flushErr := state.flush(context.Background()); err == nil {
			err = flushErr
		}
	}()
	return root.Execute()
}

func Execute() error {
	return executeRoot(rootCmd, rootTelemetry)
}
