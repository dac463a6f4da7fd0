// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateJSON validates a raw JSON document against a JSON schema
func ValidateJSON(schema map[string]interface{}, document []byte) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("schema validation error: failed to serialize schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var b strings.Builder
		b.WriteString("document validation failed:\n")
		for _, desc := range result.Errors() {
			fmt.Fprintf(&b, "- %s\n", desc)
		}
		return fmt.Errorf("%s", b.String())
	}

	return nil
}
