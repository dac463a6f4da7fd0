// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/template"
)

const (
	reviewMarker      = "=== render review ==="
	requirementHeader = "=== design requirement ==="
	errorsHeader      = "=== previous errors ==="
)

const blockMacro = `import FreeCAD as App
import Part
doc = App.getDocument('{{.project}}') if '{{.project}}' in App.listDocuments() else App.newDocument('{{.project}}')
box = Part.makeBox(10, 20, 30)
part_obj = doc.addObject('Part::Feature', 'GeneratedBlock')
part_obj.Shape = box
doc.recompute()
App.setActiveDocument(doc.Name)
print('Model generated successfully')`

const assemblyMacro = `import FreeCAD as App
import Assembly4
doc = App.getDocument('{{.project}}') if '{{.project}}' in App.listDocuments() else App.newDocument('{{.project}}')
doc.recompute()
print('Assembly placeholder created')`

const repairSuffix = "\nprint('Applied fix for previous error')"

// DummyClient is a deterministic offline backend for local development and tests
type DummyClient struct {
	project string
	logger  *slog.Logger
}

// NewDummyClient creates a dummy client whose macros target the given project document
func NewDummyClient(project string, logger *slog.Logger) *DummyClient {
	if logger == nil {
		logger = slog.Default()
	}
	if project == "" {
		project = "LLMAgentProject"
	}
	return &DummyClient{project: project, logger: logger}
}

// Complete implements Client
func (d *DummyClient) Complete(_ context.Context, messages []Message, _ []string) (string, error) {
	prompt := DumpMessages(messages)
	d.logger.Debug("dummy llm received prompt", "prompt", prompt)
	lowered := strings.ToLower(prompt)

	if strings.Contains(lowered, reviewMarker) {
		verdict, err := json.Marshal(map[string]interface{}{
			"needs_additional_views": false,
			"feedback":               "Rendered projections inspected in dummy mode.",
		})
		if err != nil {
			return "", err
		}
		return string(verdict), nil
	}

	subject := requirementSection(lowered)
	if strings.Contains(subject, "assembly") || strings.Contains(subject, "сборк") {
		return d.render(assemblyMacro)
	}
	if strings.Contains(lowered, errorsHeader) || (subject == lowered && strings.Contains(lowered, "error")) {
		macro, err := d.render(blockMacro)
		if err != nil {
			return "", err
		}
		return macro + repairSuffix, nil
	}
	return d.render(blockMacro)
}

func (d *DummyClient) render(macro string) (string, error) {
	out, err := template.ProcessString(macro, map[string]interface{}{"project": d.project})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// requirementSection narrows a generation prompt to its requirement block so that
// environment listings such as Assembly4 do not look like an assembly request.
// Prompts without the block are returned whole.
func requirementSection(lowered string) string {
	idx := strings.Index(lowered, requirementHeader)
	if idx < 0 {
		return lowered
	}
	rest := lowered[idx+len(requirementHeader):]
	if end := strings.Index(rest, "\n==="); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
