package filter

import (
	"fmt"
)

// AppendConditions compiles the provided filters and appends the resulting SQL fragments and args.
//
// Empty filters are skipped. Placeholders continue after the args already
// collected, so fragments from several calls can share one statement.
func AppendConditions(engine *Engine, schema Schema, filters []string, dialect DialectName, where *[]string, args *[]any) error {
	for _, filterStr := range filters {
		stmt, err := engine.CompileToStatement(filterStr, schema, RenderOptions{
			Dialect:           dialect,
			PlaceholderOffset: len(*args),
		})
		if err != nil {
			return err
		}
		if stmt.SQL == "" {
			continue
		}
		*where = append(*where, fmt.Sprintf("(%s)", stmt.SQL))
		*args = append(*args, stmt.Args...)
	}
	return nil
}
