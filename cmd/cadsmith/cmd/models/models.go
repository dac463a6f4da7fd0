// SPDX-License-Identifier: Apache-2.0

package models

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/core/llm"
	"github.com/spf13/cobra"
)

// NewModelsCmd creates the models command
func NewModelsCmd() *cobra.Command {
	var (
		apiKey     string
		apiBase    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models available through OpenRouter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(config.ResolvePath(configPath))
			if err != nil {
				return err
			}
			if apiKey == "" && cfg.LLM.Provider == "openrouter" {
				apiKey = cfg.LLM.APIKey
			}
			if apiBase == "" {
				apiBase = cfg.LLM.OpenRouterAPIBase
			}

			models, err := llm.FetchOpenRouterModels(cmd.Context(), apiKey, apiBase)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(models)
			}
			printGrouped(cmd.OutOrStdout(), models)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenRouter API key (default from config or OPENROUTER_API_KEY)")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "OpenRouter API base URL")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

// printGrouped relies on the listing being sorted by vendor
func printGrouped(w io.Writer, models []llm.ModelInfo) {
	vendor := ""
	for _, m := range models {
		if m.Vendor != vendor {
			vendor = m.Vendor
			fmt.Fprintf(w, "%s:\n", vendor)
		}
		images := "unknown"
		if m.SupportsImages != nil {
			images = fmt.Sprintf("%t", *m.SupportsImages)
		}
		fmt.Fprintf(w, "  %s (%s) images=%s\n", m.DisplayName, m.ID, images)
	}
}
