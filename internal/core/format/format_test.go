// SPDX-License-Identifier: Apache-2.0

package format

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type TestStruct struct {
	Name  string   `json:"name" yaml:"name"`
	Value int      `json:"value" yaml:"value"`
	Items []string `json:"items" yaml:"items"`
}

func TestParseFile(t *testing.T) {
	tempDir := t.TempDir()
	expected := TestStruct{
		Name:  "file-test",
		Value: 100,
		Items: []string{"x", "y"},
	}

	t.Run("ParseYAMLFile", func(t *testing.T) {
		path := filepath.Join(tempDir, "test.yaml")
		content := `name: file-test
value: 100
items:
  - x
  - y`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		var result TestStruct
		require.NoError(t, ParseFile(path, &result))
		assert.Equal(t, expected, result)
	})

	t.Run("ParseYMLFile", func(t *testing.T) {
		path := filepath.Join(tempDir, "test.yml")
		require.NoError(t, os.WriteFile(path, []byte("name: file-test\nvalue: 100\nitems: [x, y]\n"), 0644))

		var result TestStruct
		require.NoError(t, ParseFile(path, &result))
		assert.Equal(t, expected, result)
	})

	t.Run("ParseJSONFile", func(t *testing.T) {
		path := filepath.Join(tempDir, "test.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"file-test","value":100,"items":["x","y"]}`), 0644))

		var result TestStruct
		require.NoError(t, ParseFile(path, &result))
		assert.Equal(t, expected, result)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		path := filepath.Join(tempDir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":`), 0644))

		var result TestStruct
		err := ParseFile(path, &result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error parsing JSON")
	})

	t.Run("UnsupportedExtension", func(t *testing.T) {
		path := filepath.Join(tempDir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("name = 'x'"), 0644))

		var result TestStruct
		err := ParseFile(path, &result)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Contains(t, err.Error(), ".toml")
	})

	t.Run("MissingFile", func(t *testing.T) {
		var result TestStruct
		err := ParseFile(filepath.Join(tempDir, "missing.yaml"), &result)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestWriteFile(t *testing.T) {
	tempDir := t.TempDir()
	data := TestStruct{Name: "write-test", Value: 7, Items: []string{"a"}}

	t.Run("WriteJSON", func(t *testing.T) {
		path := filepath.Join(tempDir, "out.json")
		require.NoError(t, WriteFile(path, data))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var result TestStruct
		require.NoError(t, json.Unmarshal(raw, &result))
		assert.Equal(t, data, result)
	})

	t.Run("WriteYAMLIntoNewDirectory", func(t *testing.T) {
		path := filepath.Join(tempDir, "nested", "dir", "out.yaml")
		require.NoError(t, WriteFile(path, data))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var result TestStruct
		require.NoError(t, yaml.Unmarshal(raw, &result))
		assert.Equal(t, data, result)
	})
}

func TestFormatData(t *testing.T) {
	data := TestStruct{Name: "fmt", Value: 1}

	out, err := FormatData(data, true)
	require.NoError(t, err)
	assert.Contains(t, out, "name: fmt")

	out, err = FormatData(data, false)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "fmt"`)
}

func TestFileTypeDetection(t *testing.T) {
	assert.True(t, IsYAMLFile("a.yaml"))
	assert.True(t, IsYAMLFile("a.YML"))
	assert.False(t, IsYAMLFile("a.json"))
	assert.True(t, IsJSONFile("a.JSON"))
	assert.False(t, IsJSONFile("a.txt"))
}
