// SPDX-License-Identifier: Apache-2.0

package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/kusari-oss/cadsmith/internal/agent"
	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var (
		isFile        bool
		maxIterations int
	)

	cmd := &cobra.Command{
		Use:   "run <requirement|file>",
		Short: "Generate a FreeCAD macro for a design requirement",
		Long: `Run the generate, execute, render and review loop for a requirement.

The argument is either the requirement text or a path to a file holding it.
A JSON summary of every iteration is printed to stdout and the full report is
written to report.json in the workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requirement, err := agent.LoadRequirement(args[0], isFile)
			if err != nil {
				return err
			}

			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(config.ResolvePath(configPath))
			if err != nil {
				return err
			}
			if maxIterations > 0 {
				cfg.Pipeline.MaxIterations = maxIterations
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			a, err := agent.New(cfg, agent.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			report, runErr := a.Run(ctx, requirement, nil)
			if errors.Is(runErr, pipeline.ErrCancelled) {
				slog.Warn("run cancelled", "completed_iterations", len(report.Artifacts))
			}

			if report != nil {
				reportPath, err := a.WriteReport(report)
				if err != nil {
					return err
				}
				if _, err := a.Publish(cmd.Context(), report, reportPath); err != nil {
					slog.Error("failed to publish artifacts", "error", err)
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				if err := enc.Encode(agent.Summarize(report)); err != nil {
					return fmt.Errorf("error writing summary: %w", err)
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&isFile, "is-file", false, "interpret the argument as a file path")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override pipeline.max_iterations")
	return cmd
}
