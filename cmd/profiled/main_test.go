package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistration(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["analyze"])
	assert.True(t, names["instruct"])
	assert.True(t, names["profile"])
	assert.True(t, names["reflect"])
}

func TestReadInputFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reflection.md")
	require.NoError(t, os.WriteFile(path, []byte("step by step notes"), 0o600))

	data, err := readInput([]string{"alice", path}, 1)
	require.NoError(t, err)
	assert.Equal(t, "step by step notes", string(data))
}

func TestReadInputMissingFile(t *testing.T) {
	_, err := readInput([]string{"alice", "/nonexistent/reflection.md"}, 1)
	assert.Error(t, err)
}
