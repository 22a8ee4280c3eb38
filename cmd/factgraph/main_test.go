package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"factgraph/internal/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexThenInspectBatch(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "fixtures", "batch", "batch.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batch.yaml"), src, 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{
		"index", "--root", dir, "--batch", "batch.yaml", "--base-id", "1",
		"-o", "facts.json.zst", "--compress", "zstd", "--log-level", "error",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "10 facts")
	assert.FileExists(t, filepath.Join(dir, "facts.json.zst"))

	stdout.Reset()
	rootCmd.SetArgs([]string{"inspect", filepath.Join(dir, "facts.json.zst"), "--verify", "--json"})
	require.NoError(t, rootCmd.Execute())

	var summary output.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, 10, summary.Facts)
	assert.Equal(t, 4, summary.Uses)
	assert.Len(t, summary.Blocks, 10)
}

func TestResolveRootPath(t *testing.T) {
	old := rootDir
	t.Cleanup(func() { rootDir = old })
	rootDir = "/repo"

	tests := []struct {
		in   string
		want string
	}{
		{"facts.db", filepath.Join("/repo", "facts.db")},
		{"out/facts.db", filepath.Join("/repo", "out", "facts.db")},
		{"/abs/facts.db", "/abs/facts.db"},
	}
	for _, tt := range tests {
		if got := resolveRootPath(tt.in); got != tt.want {
			t.Errorf("resolveRootPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
