package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fedunion/internal/store"
)

// recordOrders compiles the orders request twice with --record and returns
// the history ids.
func recordOrders(t *testing.T, cfg, dir string) []string {
	t.Helper()
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	var ids []string
	for range 2 {
		out, _, err := executeCommand(t, "compile", "--config", cfg, "--record", "--format", "json", req)
		require.NoError(t, err)
		var resp struct {
			Data CompileResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.NotEmpty(t, resp.Data.HistoryID)
		ids = append(ids, resp.Data.HistoryID)
	}
	return ids
}

func TestHistoryList(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	ids := recordOrders(t, cfg, dir)

	out, _, err := executeCommand(t, "history", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, ids[0])
	assert.Contains(t, out, ids[1])

	out, _, err = executeCommand(t, "history", "--config", cfg, "--format", "json", "-n", "1")
	require.NoError(t, err)
	var resp struct {
		Data []store.QueryRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, ordersSQL, resp.Data[0].Query)
	assert.Equal(t, 2, resp.Data[0].Arms)
	assert.Equal(t, "de", resp.Data[0].ShardKey)
}

func TestHistoryEmpty(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), nil)

	out, _, err := executeCommand(t, "history", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No queries recorded.")
}

func TestHistoryByHash(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	recordOrders(t, cfg, dir)

	out, _, err := executeCommand(t, "history", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []store.QueryRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	hash := resp.Data[0].RequestHash
	assert.Equal(t, hash, resp.Data[1].RequestHash)

	out, _, err = executeCommand(t, "history", "--config", cfg, "--format", "json", "--hash", hash)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestHistoryEntry(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	ids := recordOrders(t, cfg, dir)

	out, _, err := executeCommand(t, "history", "--config", cfg, ids[0])
	require.NoError(t, err)
	assert.Contains(t, out, "ID:       "+ids[0])
	assert.Contains(t, out, "Shard:    de")
	assert.Contains(t, out, ordersSQL)

	out, _, err = executeCommand(t, "history", "--config", cfg, "--format", "json", ids[0])
	require.NoError(t, err)
	var resp struct {
		Data HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ids[0], resp.Data.ID)
	assert.Empty(t, resp.Data.Executions)
}

func TestHistoryEntryNotFound(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), nil)

	out, _, err := executeCommand(t, "history", "--config", cfg, "no-such-id")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestHistoryDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)

	out, _, err := executeCommand(t, "history", "--config", cfg, "--history=false")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E011]")

	_, statErr := os.Stat(filepath.Join(dir, "history.db"))
	assert.True(t, os.IsNotExist(statErr))
}
