package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestSnapshot(t *testing.T) {
	assert.Equal(t, "SELECT 1", string(Snapshot(&Result{Query: "SELECT 1"})))
	assert.Equal(t, "-- rejected: E203, E214",
		string(Snapshot(&Result{ErrorCodes: []string{"E214", "E203", "E214"}})))
}

func TestGoldenFilePath(t *testing.T) {
	got := GoldenFilePath(filepath.Join("scenarios", "orders.yaml"))
	assert.Equal(t, filepath.Join("scenarios", "golden", "orders.golden"), got)
}

func TestGoldenFile_UpdateThenCompare(t *testing.T) {
	scenarioFile := filepath.Join(t.TempDir(), "orders.yaml")
	result := &Result{Query: "SELECT 1"}

	_, exists, err := CompareGoldenFile(scenarioFile, result)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, UpdateGoldenFile(scenarioFile, result))

	data, err := os.ReadFile(GoldenFilePath(scenarioFile))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", string(data))

	match, exists, err := CompareGoldenFile(scenarioFile, result)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, match)

	match, _, err = CompareGoldenFile(scenarioFile, &Result{Query: "SELECT 2"})
	require.NoError(t, err)
	assert.False(t, match)
}
