// SPDX-License-Identifier: Apache-2.0

package template

import (
	"bytes"
	"fmt"
	"text/template"
)

// ProcessString processes a template string with the given parameters.
// Referencing a parameter that is not supplied is an error.
func ProcessString(text string, params map[string]interface{}) ([]byte, error) {
	tmpl, err := template.New("template").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("error parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("error executing template: %w", err)
	}

	return buf.Bytes(), nil
}

// ProcessStrings expands every entry of a templated list
func ProcessStrings(texts []string, params map[string]interface{}) ([]string, error) {
	out := make([]string, 0, len(texts))
	for i, text := range texts {
		processed, err := ProcessString(text, params)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, string(processed))
	}
	return out, nil
}
