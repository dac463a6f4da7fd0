// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"strings"
)

const tracebackMarker = "Traceback"

// errorMarkers are checked in order after the traceback marker. Generated code
// that prints these words on purpose will be reported as failed.
var errorMarkers = []string{"[ERR]", "Error:", "RuntimeError", "Exception"}

// scanForErrors looks for in-band failure markers in a host log
func scanForErrors(lines []string) string {
	joined := strings.Join(lines, "\n")
	if strings.Contains(joined, tracebackMarker) {
		return "FreeCAD reported a traceback"
	}
	for _, marker := range errorMarkers {
		if strings.Contains(joined, marker) {
			return fmt.Sprintf("Detected error marker '%s' in FreeCAD log", marker)
		}
	}
	return ""
}
