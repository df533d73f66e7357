package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/querysql"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/sharded_orders.yaml")
	require.NoError(t, err)

	assert.Equal(t, "sharded_orders", s.Name)
	require.Len(t, s.Request.Tables, 2)
	assert.Equal(t, queryir.TableSelection{Catalog: "hive", Schema: "dbo", TableName: "orders"}, s.Request.Tables[0])
	assert.Equal(t, "de", s.Request.ShardKey)
	assert.Equal(t, queryir.Limit("100"), s.Request.Limit)
	assert.Equal(t, 2, s.Expect.Arms)
	require.NotNil(t, s.Expect.Warnings)
	assert.Equal(t, 0, *s.Expect.Warnings)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "misspelled expect"
request:
  tables: [ { catalog: c, schema: s, table_name: t } ]
expects:
  arms: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_UnknownRequestField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "tableName is the JSON spelling"
request:
  tables: [ { catalog: c, schema: s, tableName: t } ]
`))
	require.Error(t, err)
}

func TestParseScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\n",
			wantErr: "description is required",
		},
		{
			name:    "path in name",
			yaml:    "name: a/b\ndescription: d\n",
			wantErr: "path separators",
		},
		{
			name:    "errors with query",
			yaml:    "name: n\ndescription: d\nexpect:\n  errors: [E200]\n  arms: 1\n",
			wantErr: "errors cannot be combined",
		},
		{
			name:    "bad error code",
			yaml:    "name: n\ndescription: d\nexpect:\n  errors: [boom]\n",
			wantErr: "is not an error code",
		},
		{
			name:    "unknown qualify mode",
			yaml:    "name: n\ndescription: d\nconfig:\n  qualify: schema\n",
			wantErr: "unknown mode",
		},
		{
			name:    "pattern without table placeholder",
			yaml:    "name: n\ndescription: d\nconfig:\n  pattern: 'storage_{shard}.dbo.x'\n",
			wantErr: "config.pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenario_CompilerOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := &Scenario{}
		opts := s.CompilerOptions()
		assert.Equal(t, querysql.DefaultTemplate, opts.Pattern.Template)
		assert.True(t, opts.Pattern.Enabled)
		assert.Equal(t, querysql.QualifyCatalog, opts.QualifyColumns)
	})

	t.Run("overrides", func(t *testing.T) {
		off := false
		s := &Scenario{Config: &ScenarioConfig{
			Pattern:   `shard_{country}."{table}"`,
			UseShards: &off,
			Qualify:   "alias",
		}}
		opts := s.CompilerOptions()
		assert.Equal(t, `shard_{country}."{table}"`, opts.Pattern.Template)
		assert.False(t, opts.Pattern.Enabled)
		assert.Equal(t, querysql.QualifyAlias, opts.QualifyColumns)
	})
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "sub/c.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0644))
	}

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "sub", "c.yaml"),
	}, files)

	filtered, err := FindScenarios(dir, "[ab]")
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	_, err = FindScenarios(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
