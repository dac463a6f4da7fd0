// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ModelInfo describes a model offered through OpenRouter.
// SupportsImages is nil when the listing does not say.
type ModelInfo struct {
	ID             string `json:"id" yaml:"id"`
	Vendor         string `json:"vendor" yaml:"vendor"`
	DisplayName    string `json:"display_name" yaml:"display_name"`
	SupportsImages *bool  `json:"supports_images,omitempty" yaml:"supports_images,omitempty"`
}

type openRouterModel struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Architecture *struct {
		InputModalities []string `json:"input_modalities"`
		Modality        string   `json:"modality"`
	} `json:"architecture"`
}

// FetchOpenRouterModels lists the models available to the account, sorted by vendor then name
func FetchOpenRouterModels(ctx context.Context, apiKey, apiBase string) ([]ModelInfo, error) {
	url := strings.TrimRight(firstNonEmpty(apiBase, defaultOpenRouterBase), "/") + "/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := (&http.Client{Timeout: requestTimeout}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error querying %s: unexpected status %s", url, resp.Status)
	}

	var payload struct {
		Data []openRouterModel `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("error decoding model list: %w", err)
	}

	models := make([]ModelInfo, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.ID == "" {
			continue
		}
		models = append(models, ModelInfo{
			ID:             item.ID,
			Vendor:         modelVendor(item),
			DisplayName:    modelDisplayName(item),
			SupportsImages: imageSupport(item),
		})
	}

	sort.SliceStable(models, func(i, j int) bool {
		vi, vj := strings.ToLower(models[i].Vendor), strings.ToLower(models[j].Vendor)
		if vi != vj {
			return vi < vj
		}
		return strings.ToLower(models[i].DisplayName) < strings.ToLower(models[j].DisplayName)
	})
	return models, nil
}

func modelVendor(m openRouterModel) string {
	if vendor, _, ok := strings.Cut(m.ID, "/"); ok {
		return vendor
	}
	if vendor, _, ok := strings.Cut(m.Name, ":"); ok {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(vendor)), " ", "-")
	}
	return "unknown"
}

func modelDisplayName(m openRouterModel) string {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return m.ID
	}
	if _, rest, ok := strings.Cut(name, ":"); ok {
		return strings.TrimSpace(rest)
	}
	return name
}

func imageSupport(m openRouterModel) *bool {
	if m.Architecture == nil {
		return nil
	}
	if len(m.Architecture.InputModalities) > 0 {
		joined := strings.ToLower(strings.Join(m.Architecture.InputModalities, " "))
		supported := strings.Contains(joined, "image")
		return &supported
	}
	if m.Architecture.Modality != "" {
		supported := strings.Contains(strings.ToLower(m.Architecture.Modality), "image")
		return &supported
	}
	return nil
}
