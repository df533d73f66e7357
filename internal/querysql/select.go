package querysql

import (
	"fmt"

	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/sqlquote"
)

// QualifyMode selects how projected columns are qualified.
type QualifyMode string

const (
	// QualifyCatalog emits <catalog>.<schema>.<alias>.<column>.
	QualifyCatalog QualifyMode = "catalog"

	// QualifyAlias emits <alias>.<column>.
	QualifyAlias QualifyMode = "alias"
)

// ValidQualifyModes lists the accepted qualification modes.
var ValidQualifyModes = map[QualifyMode]bool{
	QualifyCatalog: true,
	QualifyAlias:   true,
}

// sourceRef returns <catalog>.<schema>.<physicalRef>.
func sourceRef(t queryir.TableSelection, physical string) string {
	return sqlquote.Qualified(t.Catalog, t.Schema) + "." + physical
}

// compileColumns builds the projection list for one table.
// Empty projections select every column.
func (c *Compiler) compileColumns(t queryir.TableSelection, idx queryir.TableIndex, cols []queryir.ColumnProjection) []string {
	if len(cols) == 0 {
		return []string{"*"}
	}

	alias := idx.Alias()
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		var ref string
		if c.qualify == QualifyAlias {
			ref = alias + "." + sqlquote.Ident(col.Name)
		} else {
			ref = sqlquote.Qualified(t.Catalog, t.Schema, alias, col.Name)
		}
		if col.Alias != "" && col.Alias != col.Name {
			ref = fmt.Sprintf("%s AS %s", ref, sqlquote.QuoteIdent(col.Alias))
		}
		out = append(out, ref)
	}
	return out
}
