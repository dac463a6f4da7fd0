// SPDX-License-Identifier: Apache-2.0

package format

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned when a file extension is neither YAML nor JSON
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseFile reads a YAML or JSON file, choosing the decoder from the extension
func ParseFile(filePath string, v interface{}) error {
	if !IsYAMLFile(filePath) && !IsJSONFile(filePath) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filePath))
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	if IsJSONFile(filePath) {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("error parsing JSON %s: %w", filePath, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error parsing YAML %s: %w", filePath, err)
	}
	return nil
}

// WriteFile writes data to a file in the format implied by its extension.
// Anything that is not .json is written as YAML.
func WriteFile(filePath string, v interface{}) error {
	data, err := marshal(v, !IsJSONFile(filePath))
	if err != nil {
		return fmt.Errorf("error marshaling data: %w", err)
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}

	return os.WriteFile(filePath, data, 0644)
}

// FormatData formats data as YAML or JSON string
func FormatData(v interface{}, useYAML bool) (string, error) {
	data, err := marshal(v, useYAML)
	if err != nil {
		return "", fmt.Errorf("error formatting data: %w", err)
	}
	return string(data), nil
}

func marshal(v interface{}, useYAML bool) ([]byte, error) {
	if useYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// IsYAMLFile returns true if the file extension suggests it's a YAML file
func IsYAMLFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".yaml" || ext == ".yml"
}

// IsJSONFile returns true if the file extension suggests it's a JSON file
func IsJSONFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".json"
}
