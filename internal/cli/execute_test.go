package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fedunion/internal/store"
)

func TestExecuteText(t *testing.T) {
	trino := newFakeTrino(t)
	trino.on(ordersSQL, "20240101_000000_00001_abcde", []string{"order_id", "status"},
		[]any{1, "paid"},
		[]any{2, nil},
	)
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, trino)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	out, errOut, err := executeCommand(t, "execute", "--config", cfg, req)
	require.NoError(t, err)
	assert.Contains(t, out, "paid")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "2 row(s)")
	assert.Contains(t, out, "20240101_000000_00001_abcde")
	assert.Contains(t, errOut, "history id:")
	assert.Equal(t, []string{ordersSQL}, trino.statements)

	st, err := store.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ListQueries(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	execs, err := st.ListExecutions(t.Context(), records[0].ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, 2, execs[0].RowCount)
	assert.Equal(t, "20240101_000000_00001_abcde", execs[0].TrinoQueryID)
	assert.Empty(t, execs[0].Error)
}

func TestExecuteJSON(t *testing.T) {
	trino := newFakeTrino(t)
	trino.on(ordersSQL, "q1", []string{"order_id"}, []any{1}, []any{2}, []any{3})
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, trino)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	out, _, err := executeCommand(t, "execute", "--config", cfg, "--format", "json", "--history=false", req)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExecuteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ordersSQL, resp.Data.Query)
	assert.Equal(t, "q1", resp.Data.QueryID)
	assert.Empty(t, resp.Data.HistoryID)
	assert.Len(t, resp.Data.Rows, 3)
	require.Len(t, resp.Data.Columns, 1)
	assert.Equal(t, "order_id", resp.Data.Columns[0].Name)
}

func TestExecuteMaxRows(t *testing.T) {
	trino := newFakeTrino(t)
	trino.on(ordersSQL, "q1", []string{"order_id"}, []any{"r1"}, []any{"r2"}, []any{"r3"})
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, trino)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	out, _, err := executeCommand(t, "execute", "--config", cfg, "--history=false", "--max-rows", "2", req)
	require.NoError(t, err)
	assert.Contains(t, out, "r2")
	assert.NotContains(t, out, "r3")
	assert.Contains(t, out, "(showing first 2)")
}

func TestExecuteQueryError(t *testing.T) {
	trino := newFakeTrino(t)
	trino.failWith(ordersSQL, "q_failed", "line 1:15: Table 'hive.dbo.storage_de.dbo.orders' does not exist")
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, trino)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	out, _, err := executeCommand(t, "execute", "--config", cfg, req)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]")
	assert.Contains(t, out, "does not exist")

	st, err := store.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ListQueries(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	execs, err := st.ListExecutions(t.Context(), records[0].ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "q_failed", execs[0].TrinoQueryID)
	assert.Contains(t, execs[0].Error, "does not exist")
}

func TestExecuteInvalidRequestNeverReachesTrino(t *testing.T) {
	trino := newFakeTrino(t)
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, trino)
	req := writeFile(t, dir, "bad.json", `{"tables": [], "limit": -3}`)

	_, _, err := executeCommand(t, "execute", "--config", cfg, req)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Empty(t, trino.statements)
}
