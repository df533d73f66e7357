package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/querysql"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides the compiler configuration. Nil uses the defaults.
	Config *ScenarioConfig `yaml:"config,omitempty"`

	// Request is compiled as-is.
	Request queryir.QueryRequest `yaml:"request"`

	// Expect describes the required outcome.
	Expect ExpectClause `yaml:"expect"`
}

// ScenarioConfig mirrors the pattern and select settings of the config file.
type ScenarioConfig struct {
	Pattern   string `yaml:"pattern,omitempty"`
	UseShards *bool  `yaml:"use_shards,omitempty"`
	Qualify   string `yaml:"qualify,omitempty"`
}

// ExpectClause specifies the expected compile outcome.
//
// Errors and the SQL expectations are mutually exclusive: a scenario either
// compiles or is rejected.
type ExpectClause struct {
	// Query is the exact SQL text.
	Query string `yaml:"query,omitempty"`

	// Contains lists fragments that must appear in the SQL.
	Contains []string `yaml:"contains,omitempty"`

	// NotContains lists fragments that must not appear in the SQL.
	NotContains []string `yaml:"not_contains,omitempty"`

	// Arms is the expected number of UNION ALL arms. Zero skips the check.
	Arms int `yaml:"arms,omitempty"`

	// Warnings is the expected number of validation warnings.
	Warnings *int `yaml:"warnings,omitempty"`

	// Errors lists validation error codes (e.g. E203). Order is ignored.
	Errors []string `yaml:"errors,omitempty"`
}

// WantsErrors reports whether the scenario expects the request to be rejected.
func (e ExpectClause) WantsErrors() bool {
	return len(e.Errors) > 0
}

// CompilerOptions returns the compiler options for the scenario.
// Defaults match the application defaults: sharding enabled with
// querysql.DefaultTemplate and catalog-qualified columns.
func (s *Scenario) CompilerOptions() querysql.Options {
	opts := querysql.Options{
		Pattern:        querysql.PatternConfig{Template: querysql.DefaultTemplate, Enabled: true},
		QualifyColumns: querysql.QualifyCatalog,
	}
	if s.Config == nil {
		return opts
	}
	if s.Config.Pattern != "" {
		opts.Pattern.Template = s.Config.Pattern
	}
	if s.Config.UseShards != nil {
		opts.Pattern.Enabled = *s.Config.UseShards
	}
	if s.Config.Qualify != "" {
		opts.QualifyColumns = querysql.QualifyMode(s.Config.Qualify)
	}
	return opts
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir in lexical order.
// A non-empty filter is a filepath.Match glob applied to the file name
// without its extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", s.Name)
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	e := s.Expect
	hasSQL := e.Query != "" || len(e.Contains) > 0 || len(e.NotContains) > 0 || e.Arms > 0
	if e.WantsErrors() && hasSQL {
		return fmt.Errorf("expect: errors cannot be combined with query, contains, not_contains or arms")
	}
	if e.Arms < 0 {
		return fmt.Errorf("expect.arms must be non-negative")
	}
	if e.Warnings != nil && *e.Warnings < 0 {
		return fmt.Errorf("expect.warnings must be non-negative")
	}
	for i, code := range e.Errors {
		if !strings.HasPrefix(code, "E") {
			return fmt.Errorf("expect.errors[%d]: %q is not an error code", i, code)
		}
	}

	if s.Config != nil {
		if s.Config.Qualify != "" && !querysql.ValidQualifyModes[querysql.QualifyMode(s.Config.Qualify)] {
			return fmt.Errorf("config.qualify: unknown mode %q", s.Config.Qualify)
		}
		if err := s.CompilerOptions().Pattern.Validate(); err != nil {
			return fmt.Errorf("config.pattern: %w", err)
		}
	}

	return nil
}
