package querysql

import (
	"fmt"

	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/sqlquote"
)

// compileJoins returns one JOIN clause per join attached to table idx, in
// request order. refs holds the physical reference of every table.
func compileJoins(req queryir.QueryRequest, idx queryir.TableIndex, refs []string) []string {
	joins := req.JoinsFor(idx)
	if len(joins) == 0 {
		return nil
	}

	out := make([]string, 0, len(joins))
	for _, j := range joins {
		target := req.Tables[j.TargetTableIndex]
		out = append(out, fmt.Sprintf("%s JOIN %s AS %s ON %s.%s = %s.%s",
			j.JoinType.Normalize(),
			sourceRef(target, refs[j.TargetTableIndex]),
			j.TargetTableIndex.Alias(),
			idx.Alias(), sqlquote.Ident(j.SourceColumn),
			j.TargetTableIndex.Alias(), sqlquote.Ident(j.TargetColumn),
		))
	}
	return out
}
