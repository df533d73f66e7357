package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: passing
description: "single table"
request:
  tables: [ { catalog: hive, schema: dbo, table_name: orders } ]
expect:
  arms: 1
`

const failingScenario = `name: failing
description: "wrong arm count"
request:
  tables: [ { catalog: hive, schema: dbo, table_name: orders } ]
expect:
  arms: 2
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunSuite_Counts(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeScenario(t, dir, "passing.yaml", passingScenario),
		writeScenario(t, dir, "failing.yaml", failingScenario),
		writeScenario(t, dir, "broken.yaml", "name: [\n"),
	}

	result := RunSuite(t.Context(), files, SuiteOptions{})

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)

	require.Len(t, result.Scenarios, 3)
	assert.True(t, result.Scenarios[0].Pass)
	assert.Equal(t, GoldenMissing, result.Scenarios[0].Golden)
	assert.Equal(t, "failing", result.Scenarios[1].Name)
	assert.False(t, result.Scenarios[1].Pass)
	assert.Equal(t, "broken.yaml", result.Scenarios[2].Name)
	assert.Contains(t, result.Scenarios[2].Errors[0], "failed to load scenario")
}

func TestRunSuite_UpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	file := writeScenario(t, dir, "passing.yaml", passingScenario)

	updated := RunSuite(t.Context(), []string{file}, SuiteOptions{Update: true})
	require.Equal(t, 1, updated.Passed)
	assert.Equal(t, GoldenUpdated, updated.Scenarios[0].Golden)

	data, err := os.ReadFile(GoldenFilePath(file))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM hive.dbo."orders" AS t1 WHERE 1=1`, string(data))

	compared := RunSuite(t.Context(), []string{file}, SuiteOptions{})
	require.Equal(t, 1, compared.Passed)
	assert.Equal(t, GoldenMatch, compared.Scenarios[0].Golden)
}

func TestRunSuite_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	file := writeScenario(t, dir, "passing.yaml", passingScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(GoldenFilePath(file), []byte("SELECT 1"), 0644))

	result := RunSuite(t.Context(), []string{file}, SuiteOptions{})

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Scenarios[0].Errors[0], "does not match golden file")
}
