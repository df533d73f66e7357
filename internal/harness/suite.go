package harness

import (
	"context"
	"fmt"
	"path/filepath"
)

// ScenarioResult holds the result of a single scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated", "missing"
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult contains results from running a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// SuiteOptions controls RunSuite.
type SuiteOptions struct {
	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// Golden comparison states reported in ScenarioResult.Golden.
const (
	GoldenMatch   = "match"
	GoldenUpdated = "updated"
	GoldenMissing = "missing"
)

// RunSuite runs every scenario file in order.
//
// For each file:
// 1. Load the scenario
// 2. Run it and evaluate expectations
// 3. Compare with (or, with Update, rewrite) its golden file
//
// A scenario without a golden file is judged on its expectations alone.
// Load and execution failures are reported per scenario, never returned.
func RunSuite(ctx context.Context, files []string, opts SuiteOptions) *SuiteResult {
	result := &SuiteResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		sr := runFile(ctx, file, opts)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	return result
}

func runFile(ctx context.Context, file string, opts SuiteOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := RunContext(ctx, scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Errors = result.Errors

	if opts.Update {
		if err := UpdateGoldenFile(file, result); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return sr
		}
		sr.Golden = GoldenUpdated
		sr.Pass = result.Pass
		return sr
	}

	match, exists, err := CompareGoldenFile(file, result)
	switch {
	case err != nil:
		sr.Errors = append(sr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
		return sr
	case !exists:
		sr.Golden = GoldenMissing
	case !match:
		sr.Errors = append(sr.Errors, "SQL does not match golden file (run with --update to regenerate)")
		return sr
	default:
		sr.Golden = GoldenMatch
	}

	sr.Pass = result.Pass
	return sr
}
