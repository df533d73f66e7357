package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fedunion/internal/catalog"
)

func TestCatalogsCommand(t *testing.T) {
	trino := newFakeTrino(t)
	trino.on("SHOW CATALOGS", "q1", []string{"Catalog"}, []any{"hive"}, []any{"system"})
	cfg := writeTestConfig(t, t.TempDir(), trino)

	out, _, err := executeCommand(t, "catalogs", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "hive\nsystem\n")
	assert.Contains(t, out, "shard keys: de, fr")

	out, _, err = executeCommand(t, "catalogs", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data catalog.CatalogList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"hive", "system"}, resp.Data.Catalogs)
	assert.Equal(t, []string{"de", "fr"}, resp.Data.Countries)
}

func TestSchemasAndTablesCommands(t *testing.T) {
	trino := newFakeTrino(t)
	trino.on("SHOW SCHEMAS FROM hive", "q1", []string{"Schema"}, []any{"dbo"}, []any{"information_schema"})
	trino.on("SHOW TABLES FROM hive.dbo LIKE '%'", "q2", []string{"Table"}, []any{"orders"})
	cfg := writeTestConfig(t, t.TempDir(), trino)

	out, _, err := executeCommand(t, "schemas", "--config", cfg, "hive")
	require.NoError(t, err)
	assert.Equal(t, "dbo\ninformation_schema\n", out)

	out, _, err = executeCommand(t, "tables", "--config", cfg, "--country", "de", "hive", "dbo")
	require.NoError(t, err)
	assert.Equal(t, "orders\n", out)
}

func TestTablesCommand_RejectsBadShard(t *testing.T) {
	trino := newFakeTrino(t)
	cfg := writeTestConfig(t, t.TempDir(), trino)

	out, _, err := executeCommand(t, "tables", "--config", cfg, "--country", "de'--", "hive", "dbo")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E209")
	assert.Empty(t, trino.statements)
}

func TestColumnsCommand(t *testing.T) {
	trino := newFakeTrino(t)
	trino.on(`DESCRIBE hive.dbo.storage_de.dbo."orders"`, "q1",
		[]string{"Column", "Type", "Extra", "Comment"},
		[]any{"order_id", "bigint", "", "primary key"},
		[]any{"status", "varchar", "", nil},
	)
	trino.failWith(`DESCRIBE hive.dbo.storage_de.dbo."missing"`, "q2", "Table 'missing' does not exist")
	cfg := writeTestConfig(t, t.TempDir(), trino)

	out, _, err := executeCommand(t, "columns", "--config", cfg, "--country", "de", "hive", "dbo", "orders", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "hive.dbo.orders")
	assert.Contains(t, out, "order_id")
	assert.Contains(t, out, "primary key")
	assert.Contains(t, out, "✗ hive.dbo.missing")
	assert.Contains(t, out, "does not exist")

	out, _, err = executeCommand(t, "columns", "--config", cfg, "--country", "de", "--format", "json", "hive", "dbo", "orders")
	require.NoError(t, err)
	var resp struct {
		Data []catalog.TableColumns `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, []catalog.ColumnInfo{
		{Name: "order_id", Type: "bigint", Comment: "primary key"},
		{Name: "status", Type: "varchar", Comment: ""},
	}, resp.Data[0].Columns)
}

func TestMetadataCommand_TrinoError(t *testing.T) {
	trino := newFakeTrino(t)
	trino.failWith("SHOW CATALOGS", "q1", "Access Denied")
	cfg := writeTestConfig(t, t.TempDir(), trino)

	out, _, err := executeCommand(t, "catalogs", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E010]")
	assert.Contains(t, out, "Access Denied")
}
