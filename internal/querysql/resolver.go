package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/sqlquote"
)

// DefaultTemplate is the physical name template used when none is configured.
const DefaultTemplate = `storage_{shard}.dbo."{table}"`

// Template placeholders. PlaceholderCountry is the legacy spelling of
// PlaceholderShard and is substituted the same way.
const (
	PlaceholderShard   = "{shard}"
	PlaceholderCountry = "{country}"
	PlaceholderTable   = "{table}"
)

// PatternConfig controls how logical table names map to sharded physical
// names.
type PatternConfig struct {
	// Template contains {shard} and {table}, e.g. storage_{shard}.dbo."{table}".
	Template string `json:"template" yaml:"template" mapstructure:"template"`

	// Enabled turns shard substitution on. When false every table resolves to
	// its quoted logical name.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// Validate checks that the template can produce a physical name.
func (p PatternConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if !strings.Contains(p.Template, PlaceholderTable) {
		return fmt.Errorf("pattern template %q has no %s placeholder", p.Template, PlaceholderTable)
	}
	if !strings.Contains(p.Template, PlaceholderShard) && !strings.Contains(p.Template, PlaceholderCountry) {
		return fmt.Errorf("pattern template %q has no %s placeholder", p.Template, PlaceholderShard)
	}
	return nil
}

// Resolver maps a logical table name and optional shard key to the physical
// reference inserted into the FROM clause. It holds only immutable
// configuration and is safe for concurrent use.
type Resolver struct {
	pattern PatternConfig
}

// NewResolver creates a Resolver. An empty template falls back to
// DefaultTemplate.
func NewResolver(pattern PatternConfig) *Resolver {
	if pattern.Template == "" {
		pattern.Template = DefaultTemplate
	}
	return &Resolver{pattern: pattern}
}

// Pattern returns the resolver's configuration.
func (r *Resolver) Pattern() PatternConfig {
	return r.pattern
}

// Resolve returns the physical reference for table.
//
// With a shard key and sharding enabled both placeholders are substituted:
// the shard key verbatim (it must be a bare token), the table name escaped for
// the quoting context the placeholder sits in. Otherwise the logical name is
// returned as a delimited identifier.
func (r *Resolver) Resolve(table, shard string) (string, error) {
	if shard == "" || !r.pattern.Enabled {
		return sqlquote.QuoteIdent(table), nil
	}
	if !sqlquote.IsToken(shard) {
		return "", queryir.ValidationError{
			Field:   "shardKey",
			Code:    queryir.ErrInvalidShardKey,
			Message: fmt.Sprintf("shard key %q must contain only letters, digits and underscores", shard),
		}
	}
	return r.substitute(shard, func(quoted bool) string {
		if quoted {
			return sqlquote.EscapeDelimited(table)
		}
		return sqlquote.Ident(table)
	}), nil
}

// TablePattern returns a LIKE pattern matching the physical table names of
// one shard, derived from the last component of the template. It returns ""
// when sharding is disabled or no shard key is given.
func (r *Resolver) TablePattern(shard string) (string, error) {
	if shard == "" || !r.pattern.Enabled {
		return "", nil
	}
	if !sqlquote.IsToken(shard) {
		return "", queryir.ValidationError{
			Field:   "shardKey",
			Code:    queryir.ErrInvalidShardKey,
			Message: fmt.Sprintf("shard key %q must contain only letters, digits and underscores", shard),
		}
	}
	parts := splitTemplate(r.pattern.Template)
	last := parts[len(parts)-1]
	if len(last) >= 2 && last[0] == '"' && last[len(last)-1] == '"' {
		last = strings.ReplaceAll(last[1:len(last)-1], `""`, `"`)
	}
	return replaceShard(last, shard, "%"), nil
}

// substitute fills the template. tableValue is called with true when the
// {table} placeholder sits between double quotes.
func (r *Resolver) substitute(shard string, tableValue func(quoted bool) string) string {
	tmpl := r.pattern.Template
	var b strings.Builder
	inQuotes := false
	for i := 0; i < len(tmpl); {
		switch {
		case tmpl[i] == '"':
			inQuotes = !inQuotes
			b.WriteByte('"')
			i++
		case strings.HasPrefix(tmpl[i:], PlaceholderTable):
			b.WriteString(tableValue(inQuotes))
			i += len(PlaceholderTable)
		case strings.HasPrefix(tmpl[i:], PlaceholderShard):
			b.WriteString(shard)
			i += len(PlaceholderShard)
		case strings.HasPrefix(tmpl[i:], PlaceholderCountry):
			b.WriteString(shard)
			i += len(PlaceholderCountry)
		default:
			b.WriteByte(tmpl[i])
			i++
		}
	}
	return b.String()
}

func replaceShard(s, shard, table string) string {
	s = strings.ReplaceAll(s, PlaceholderShard, shard)
	s = strings.ReplaceAll(s, PlaceholderCountry, shard)
	return strings.ReplaceAll(s, PlaceholderTable, table)
}

// splitTemplate splits a dotted name on dots outside double quotes.
func splitTemplate(tmpl string) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '"':
			inQuotes = !inQuotes
		case '.':
			if !inQuotes {
				parts = append(parts, tmpl[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tmpl[start:])
}
