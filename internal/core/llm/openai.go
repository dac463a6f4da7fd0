// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultOpenAIBase     = "https://api.openai.com/v1"
	defaultOpenRouterBase = "https://openrouter.ai/api/v1"
	requestTimeout        = 60 * time.Second
)

// ChatClient talks to any OpenAI-compatible chat completion endpoint
type ChatClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	limiter     *rate.Limiter
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
}

// headerDoer adds fixed headers to every request
type headerDoer struct {
	client  *http.Client
	headers map[string]string
}

func (h *headerDoer) Do(req *http.Request) (*http.Response, error) {
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	return h.client.Do(req)
}

func newHTTPDoer(headers map[string]string) openai.HTTPDoer {
	client := &http.Client{Timeout: requestTimeout}
	if len(headers) == 0 {
		return client
	}
	return &headerDoer{client: client, headers: headers}
}

func newChatClient(clientConfig openai.ClientConfig, model string, cfg config.LLMConfig, logger *slog.Logger) *ChatClient {
	c := &ChatClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		newBackOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:      logger,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

func newOpenAIClient(cfg config.LLMConfig, logger *slog.Logger) *ChatClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = firstNonEmpty(cfg.APIBase, defaultOpenAIBase)
	clientConfig.OrgID = cfg.Organization
	clientConfig.HTTPClient = newHTTPDoer(nil)
	logger.Info("Initializing OpenAI client", "model", cfg.Model, "base", clientConfig.BaseURL)
	return newChatClient(clientConfig, cfg.Model, cfg, logger)
}

func newAzureClient(cfg config.LLMConfig, logger *slog.Logger) *ChatClient {
	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.AzureEndpoint, "/"))
	clientConfig.APIVersion = cfg.AzureAPIVersion
	deployment := cfg.AzureDeployment
	clientConfig.AzureModelMapperFunc = func(string) string { return deployment }
	clientConfig.HTTPClient = newHTTPDoer(nil)
	logger.Info("Initializing Azure OpenAI client", "deployment", deployment)
	return newChatClient(clientConfig, deployment, cfg, logger)
}

func newLocalClient(cfg config.LLMConfig, logger *slog.Logger) *ChatClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.LocalEndpoint, "/")
	clientConfig.HTTPClient = newHTTPDoer(cfg.LocalHeaders)
	logger.Info("Initializing local LLM client", "model", cfg.Model, "endpoint", clientConfig.BaseURL)
	return newChatClient(clientConfig, cfg.Model, cfg, logger)
}

func newOpenRouterClient(cfg config.LLMConfig, logger *slog.Logger) *ChatClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(firstNonEmpty(cfg.OpenRouterAPIBase, defaultOpenRouterBase), "/")
	headers := map[string]string{}
	if cfg.OpenRouterSiteURL != "" {
		headers["HTTP-Referer"] = cfg.OpenRouterSiteURL
	}
	if cfg.OpenRouterAppName != "" {
		headers["X-Title"] = cfg.OpenRouterAppName
	}
	clientConfig.HTTPClient = newHTTPDoer(headers)
	logger.Info("Initializing OpenRouter client", "model", cfg.Model)
	return newChatClient(clientConfig, cfg.Model, cfg, logger)
}

// Complete implements Client
func (c *ChatClient) Complete(ctx context.Context, messages []Message, images []string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    buildChatMessages(messages, images, c.logger),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	operation := func() (string, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", backoff.Permanent(err)
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if !retryable(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", backoff.Permanent(errors.New("response contained no choices"))
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	c.logger.Debug("Requesting chat completion", "model", c.model, "messages", len(req.Messages), "images", len(images))
	content, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Chat completion failed, retrying", "error", err, "backoff", next)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return content, nil
}

// retryable reports whether a failed call is worth repeating: rate limits and server errors
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
