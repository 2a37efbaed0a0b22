package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWorkspace lays out a config file, manifest and output tree for an
// offline validate run.
func writeWorkspace(t *testing.T, diskFiles map[string][]byte) string {
	t.Helper()
	root := t.TempDir()

	cfgBody := "environment: prod\nedition: \"2024\"\n" +
		"output_dir: " + filepath.Join(root, "downloads") + "\n" +
		"manifest_dir: " + filepath.Join(root, "manifests") + "\n" +
		"data_dir: " + filepath.Join(root, "data") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "odmcheck.yaml"), []byte(cfgBody), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "manifests"), 0o755))
	manifestBody := `{"Recommendations": [{"filename": "resource1.pdf", "minSizeBytes": 100}]}`
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "manifests", "expected_files_2024.json"), []byte(manifestBody), 0o644))

	for name, data := range diskFiles {
		path := filepath.Join(root, "downloads", "Recommendations", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand_Complete(t *testing.T) {
	root := writeWorkspace(t, map[string][]byte{
		"resource1.pdf": make([]byte, 200),
	})

	out, err := execute(t, "validate", "--config", filepath.Join(root, "odmcheck.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "RESULT  COMPLETE")
}

func TestValidateCommand_Incomplete(t *testing.T) {
	root := writeWorkspace(t, nil)

	out, err := execute(t, "validate", "--config", filepath.Join(root, "odmcheck.yaml"))
	require.ErrorIs(t, err, errIncomplete)
	assert.Contains(t, out, "resource1.pdf (MISSING)")
}

func TestCommandTree(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["validate"])
}
