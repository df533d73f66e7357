package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeFlags(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{Format: "text"})

	origins := cmd.Flags().Lookup("cors-origin")
	require.NotNil(t, origins)
	assert.Equal(t, "[]", origins.DefValue)
}

func TestServeRejectsArgs(t *testing.T) {
	_, _, err := executeCommand(t, "serve", "extra")
	require.Error(t, err)
}

func TestServeStopsWhenContextCancelled(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"serve", "--config", cfg, "--cors-origin", "http://localhost:5173"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Listening on 127.0.0.1:0")
	assert.Contains(t, errOut.String(), "server stopped gracefully")
}

func TestServeBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "app:\n  port: 70000\n")

	out, _, err := executeCommand(t, "serve", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E009]")
}
