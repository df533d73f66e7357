package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is the fixture directory used by RunWithGolden, relative to the
// package under test.
const GoldenDir = "testdata/golden"

// RunWithGolden executes a scenario and compares the SQL against a golden
// file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the SQL doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's SQL against a golden file.
// Rejected requests snapshot their sorted error codes instead.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(result))

	return nil
}

// Snapshot is the golden file content for a result.
func Snapshot(result *Result) []byte {
	if len(result.ErrorCodes) > 0 {
		return []byte("-- rejected: " + strings.Join(uniqueSorted(result.ErrorCodes), ", "))
	}
	return []byte(result.Query)
}

// GoldenFilePath returns the golden file of a scenario file: a golden/
// directory next to the scenario, named after the file.
func GoldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGoldenFile writes the snapshot of result as the golden file.
func UpdateGoldenFile(scenarioFile string, result *Result) error {
	goldenPath := GoldenFilePath(scenarioFile)

	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, Snapshot(result), 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGoldenFile reports whether result matches the golden file.
// exists is false when there is no golden file.
func CompareGoldenFile(scenarioFile string, result *Result) (match, exists bool, err error) {
	data, err := os.ReadFile(GoldenFilePath(scenarioFile))
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, true, fmt.Errorf("failed to read golden file: %w", err)
	}
	return string(data) == string(Snapshot(result)), true, nil
}
