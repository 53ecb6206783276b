package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	require.NoError(t, cmd.ParseFlags([]string{"--memory-file", "graph.jsonl", "--no-viz"}))

	configPath, err := cmd.Flags().GetString("config")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", configPath)

	memoryFile, err := cmd.Flags().GetString("memory-file")
	require.NoError(t, err)
	assert.Equal(t, "graph.jsonl", memoryFile)

	noViz, err := cmd.Flags().GetBool("no-viz")
	require.NoError(t, err)
	assert.True(t, noViz)
}
