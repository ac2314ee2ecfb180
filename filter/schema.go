package filter

import (
	"fmt"
	"strings"
)

// DialectName enumerates supported SQL dialects.
type DialectName string

const (
	DialectSQLite   DialectName = "sqlite"
	DialectMySQL    DialectName = "mysql"
	DialectPostgres DialectName = "postgres"
	// DialectPostgresNamedArgs renders Postgres SQL using named arguments (`@name`).
	//
	// The generated statement uses `Statement.NamedArgs` instead of positional `Statement.Args`.
	DialectPostgresNamedArgs DialectName = "postgres_pgx"
	DialectDuckDB            DialectName = "duckdb"
)

// Column identifies the backing table column.
type Column struct {
	Table string
	Name  string
}

// Field maps a filter key to a column.
type Field struct {
	Name   string
	Column Column
	// Expressions optionally wraps the column per dialect, e.g. "LOWER(%s)".
	Expressions map[DialectName]string
}

// Schema maps filter keys to columns for SQL rendering.
//
// Keys without a Field render as quoted identifiers, one per dotted path
// segment, unless Strict is set, in which case they are rejected.
type Schema struct {
	Name   string
	Fields map[string]*Field
	Strict bool
}

// Field returns the field metadata if present.
func (s Schema) Field(name string) (*Field, bool) {
	f, ok := s.Fields[name]
	if !ok || f == nil {
		return nil, false
	}
	return f, ok
}

// columnExpr returns the field expression for the given options, applying
// any schema-specific overrides.
func (f Field) columnExpr(opts RenderOptions) string {
	base := qualifyColumn(opts, f.Column)
	if expr, ok := f.Expressions[opts.Dialect]; ok && expr != "" {
		return fmt.Sprintf(expr, base)
	}
	return base
}

func qualifyColumn(opts RenderOptions, col Column) string {
	table := col.Table
	if alias, ok := opts.TableAliases[table]; ok {
		table = alias
	}
	if opts.OmitTableQualifier || table == "" {
		return quoteIdent(opts.Dialect, col.Name)
	}
	return quoteIdent(opts.Dialect, table) + "." + quoteIdent(opts.Dialect, col.Name)
}

// quotePath quotes every segment of a dotted key.
func quotePath(d DialectName, key string) string {
	segments := strings.Split(key, ".")
	for i, seg := range segments {
		segments[i] = quoteIdent(d, seg)
	}
	return strings.Join(segments, ".")
}

func quoteIdent(d DialectName, name string) string {
	switch d {
	case DialectPostgres, DialectPostgresNamedArgs, DialectDuckDB:
		if needsQuoting(name) {
			return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		}
		return name
	default:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
}

// needsQuoting reports whether an identifier must be double-quoted.
func needsQuoting(name string) bool {
	if len(name) == 0 {
		return true
	}

	c := name[0]
	if !isLetter(c) && c != '_' {
		return true
	}
	for i := 1; i < len(name); i++ {
		c = name[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return true
		}
	}

	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"TABLE", "JOIN", "ON", "AS", "IN", "IS", "LIKE", "BETWEEN", "CASE", "WHEN",
		"THEN", "ELSE", "END", "ORDER", "BY", "GROUP", "HAVING", "LIMIT", "OFFSET",
		"ALL", "DISTINCT", "KEY", "DEFAULT", "USER", "DATE", "TIME", "TIMESTAMP":
		return true
	}
	return false
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
