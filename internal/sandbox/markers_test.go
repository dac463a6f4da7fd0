// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanForErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{name: "clean", lines: []string{"Model generated successfully"}, want: ""},
		{name: "empty", lines: nil, want: ""},
		{name: "traceback beats everything", lines: []string{"[ERR] x", "Traceback (most recent call last):"}, want: "FreeCAD reported a traceback"},
		{name: "err tag", lines: []string{"[ERR] recompute"}, want: "Detected error marker '[ERR]' in FreeCAD log"},
		{name: "error colon", lines: []string{"Error: null shape"}, want: "Detected error marker 'Error:' in FreeCAD log"},
		{name: "runtime error", lines: []string{"RuntimeError"}, want: "Detected error marker 'RuntimeError' in FreeCAD log"},
		{name: "exception", lines: []string{"Base.FreeCADError Exception"}, want: "Detected error marker 'Exception' in FreeCAD log"},
		{name: "lowercase is not a marker", lines: []string{"no error here"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanForErrors(tt.lines))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Nil(t, splitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
}
