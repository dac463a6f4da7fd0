// SPDX-License-Identifier: Apache-2.0

// Package llm provides the chat completion clients used to generate and review CAD macros.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/config"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrMissingCredentials is returned when a provider is selected without the settings it needs
var ErrMissingCredentials = errors.New("missing provider credentials")

// Message is a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client completes a conversation. When images are given they are attached
// to the last user message, appending one if the conversation ends otherwise.
type Client interface {
	Complete(ctx context.Context, messages []Message, images []string) (string, error)
}

// NewClient builds the client selected by cfg.Provider
func NewClient(cfg config.LLMConfig, projectDocument string, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai provider requires api_key", ErrMissingCredentials)
		}
		return newOpenAIClient(cfg, logger), nil
	case "azure":
		if cfg.APIKey == "" || cfg.AzureEndpoint == "" || cfg.AzureDeployment == "" {
			return nil, fmt.Errorf("%w: azure provider requires api_key, azure_endpoint and azure_deployment", ErrMissingCredentials)
		}
		return newAzureClient(cfg, logger), nil
	case "local":
		if cfg.LocalEndpoint == "" {
			return nil, fmt.Errorf("%w: local provider requires local_endpoint", ErrMissingCredentials)
		}
		return newLocalClient(cfg, logger), nil
	case "openrouter":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openrouter provider requires api_key", ErrMissingCredentials)
		}
		return newOpenRouterClient(cfg, logger), nil
	case "dummy", "":
		return NewDummyClient(projectDocument, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// DumpMessages renders a conversation for debug logging
func DumpMessages(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
