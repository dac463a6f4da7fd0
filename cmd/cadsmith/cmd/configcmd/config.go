// SPDX-License-Identifier: Apache-2.0

package configcmd

import (
	"fmt"
	"os"

	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/core/format"
	"github.com/spf13/cobra"
)

const redacted = "********"

// NewConfigCmd creates the config command group
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the cadsmith configuration file",
	}
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newShowCmd())
	return cmd
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Long: `Write the default configuration to path, or to the --config path, or to
~/.cadsmith/config.yaml. The extension selects YAML or JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				path = args[0]
			}
			path = config.ExpandPathWithTilde(config.ResolvePath(path))
			if path == "" {
				return fmt.Errorf("could not determine a config file path")
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.NewDefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(config.ResolvePath(path))
			if err != nil {
				return err
			}

			shown := *cfg
			if shown.LLM.APIKey != "" {
				shown.LLM.APIKey = redacted
			}
			if shown.Artifacts.SecretKey != "" {
				shown.Artifacts.SecretKey = redacted
			}

			out, err := format.FormatData(shown, !jsonOutput)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}
