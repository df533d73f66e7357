package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fedunion/internal/store"
)

func TestCompileText(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	out, _, err := executeCommand(t, "compile", "--config", cfg, req)
	require.NoError(t, err)
	assert.Equal(t, ordersSQL+"\n", out)
}

func TestCompileJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	out, _, err := executeCommand(t, "compile", "--config", cfg, "--format", "json", req)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Query    string `json:"query"`
			Limit    int    `json:"limit"`
			ShardKey string `json:"shardKey"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ordersSQL, resp.Data.Query)
	assert.Equal(t, 10, resp.Data.Limit)
	assert.Equal(t, "de", resp.Data.ShardKey)
}

func TestCompileFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	req := writeFile(t, dir, "orders.yaml", `
tables:
  - { catalog: hive, schema: dbo, table_name: orders }
select_columns:
  - [{ name: id }]
shard_key: de
`)

	out, _, err := executeCommand(t, "compile", "--config", cfg,
		"--qualify", "alias", "--pattern", `lake_{shard}."{table}"`, req)
	require.NoError(t, err)
	assert.Equal(t, `SELECT t1.id FROM hive.dbo.lake_de."orders" AS t1 WHERE 1=1`+"\n", out)

	out, _, err = executeCommand(t, "compile", "--config", cfg, "--use-shards=false", req)
	require.NoError(t, err)
	assert.Equal(t, `SELECT hive.dbo.t1.id FROM hive.dbo."orders" AS t1 WHERE 1=1`+"\n", out)
}

func TestCompileOutputFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)
	outFile := filepath.Join(dir, "query.sql")

	out, _, err := executeCommand(t, "compile", "--config", cfg, "-o", outFile, req)
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 2 arm(s)")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, ordersSQL+"\n", string(data))
}

func TestCompileRecord(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	_, errOut, err := executeCommand(t, "compile", "--config", cfg, "--record", req)
	require.NoError(t, err)
	assert.Contains(t, errOut, "history id:")

	st, err := store.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ListQueries(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ordersSQL, records[0].Query)
	assert.Equal(t, "de", records[0].ShardKey)
}

func TestCompileInvalidRequest(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	req := writeFile(t, dir, "bad.json", `{
  "tables": [{"catalog": "hive", "schema": "dbo", "tableName": "orders"}],
  "joins": [{"sourceTableIndex": 0, "sourceColumn": "id", "targetTableIndex": 0, "targetColumn": "id"}],
  "shardKey": "de; DROP"
}`)

	out, _, err := executeCommand(t, "compile", "--config", cfg, "--format", "json", req)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)

	details, err := json.Marshal(resp.Error.Details)
	require.NoError(t, err)
	assert.Contains(t, string(details), "E211")
	assert.Contains(t, string(details), "E209")
}

func TestCompileWarnings(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)
	req := writeFile(t, dir, "mixed.json", `{
  "tables": [
    {"catalog": "hive", "schema": "dbo", "tableName": "orders"},
    {"catalog": "hive", "schema": "dbo", "tableName": "returns"}
  ],
  "selectColumns": [[{"name": "id"}]]
}`)

	out, errOut, err := executeCommand(t, "compile", "--config", cfg, req)
	require.NoError(t, err)
	assert.Contains(t, errOut, "warning:")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestCompileMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, nil)

	out, _, err := executeCommand(t, "compile", "--config", cfg, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestCompileMissingArgs(t *testing.T) {
	_, _, err := executeCommand(t, "compile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestCompileBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "select:\n  qualify_columns: table\n")
	req := writeFile(t, dir, "orders.json", ordersRequestJSON)

	out, _, err := executeCommand(t, "compile", "--config", cfg, req)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E009]")
}
