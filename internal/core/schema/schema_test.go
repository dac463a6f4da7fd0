// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"testing"

	"github.com/kusari-oss/cadsmith/internal/core/schema"
	"github.com/stretchr/testify/assert"
)

var verdictSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"needs_additional_views"},
	"properties": map[string]interface{}{
		"needs_additional_views": map[string]interface{}{"type": "boolean"},
		"feedback":               map[string]interface{}{"type": "string"},
	},
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name       string
		document   string
		shouldPass bool
	}{
		{
			name:       "valid verdict",
			document:   `{"needs_additional_views": true, "feedback": "show the back"}`,
			shouldPass: true,
		},
		{
			name:       "feedback is optional",
			document:   `{"needs_additional_views": false}`,
			shouldPass: true,
		},
		{
			name:       "missing required flag",
			document:   `{"feedback": "fine"}`,
			shouldPass: false,
		},
		{
			name:       "flag is a string",
			document:   `{"needs_additional_views": "yes"}`,
			shouldPass: false,
		},
		{
			name:       "top level array",
			document:   `[true, "x"]`,
			shouldPass: false,
		},
		{
			name:       "not json at all",
			document:   `The renders look fine.`,
			shouldPass: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.ValidateJSON(verdictSchema, []byte(tt.document))
			if tt.shouldPass {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
