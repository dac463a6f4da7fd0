// SPDX-License-Identifier: Apache-2.0

package script

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/kusari-oss/cadsmith/internal/agent"
	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/spf13/cobra"
)

func newExecuteCmd() *cobra.Command {
	var iteration int

	cmd := &cobra.Command{
		Use:   "execute <file>",
		Short: "Execute a macro without involving the language model",
		Long: `Execute a macro file through the execution engine, using the same strategy
selection as a pipeline run. The macro is copied into the workspace as
iteration_<n>.py first. The result is printed as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("error reading macro: %w", err)
			}
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(config.ResolvePath(configPath))
			if err != nil {
				return err
			}

			engine := agent.NewEngine(cfg, agent.WithLogger(slog.Default()))
			result, err := agent.ExecuteScript(cmd.Context(), engine, string(body), iteration)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("error writing result: %w", err)
			}
			if !result.Success {
				return fmt.Errorf("macro execution failed: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&iteration, "iteration", 0, "iteration number used for the workspace file names")
	return cmd
}
