// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"encoding/base64"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
)

// buildChatMessages converts the conversation and attaches images to the last user message
func buildChatMessages(messages []Message, images []string, logger *slog.Logger) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	parts := encodeImages(images, logger)
	if len(parts) == 0 {
		return out
	}

	if len(out) == 0 || out[len(out)-1].Role != openai.ChatMessageRoleUser {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser})
	}
	last := &out[len(out)-1]
	if last.Content != "" {
		parts = append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: last.Content}}, parts...)
		last.Content = ""
	}
	last.MultiContent = parts
	return out
}

// encodeImages turns image files into data-URL parts; missing files are skipped
func encodeImages(paths []string, logger *slog.Logger) []openai.ChatMessagePart {
	parts := make([]openai.ChatMessagePart, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Render image is missing, skipping", "path", path, "error", err)
			continue
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "image/png"
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
			},
		})
	}
	return parts
}
