package filter

import (
	"fmt"
	"strings"

	"github.com/fy0/qfilter/internal/errors"
)

// RenderOptions configure SQL rendering.
type RenderOptions struct {
	Dialect           DialectName
	PlaceholderOffset int
	// TableAliases maps schema column table names to SQL qualifiers (usually aliases).
	//
	//   schema column: {Table: "post", Name: "id"}
	//   query: FROM post p
	//   opts: TableAliases{"post": "p"} -> renders "p.id"
	//
	// A mapped empty string disables qualification for that table.
	TableAliases map[string]string
	// OmitTableQualifier disables table qualification for all columns, rendering
	// "id" instead of "t.id".
	OmitTableQualifier bool
}

// Statement contains the rendered SQL fragment and its args.
type Statement struct {
	SQL  string
	Args []any
	// NamedArgs is populated when rendering with DialectPostgresNamedArgs.
	//
	// It is intended to be passed to pgx as `pgx.NamedArgs(stmt.NamedArgs)`.
	NamedArgs Bindings
}

// renderState is shared by a SQLBuilder and every group scope opened on it,
// so placeholders are numbered across the whole fragment.
type renderState struct {
	schema  Schema
	opts    RenderOptions
	counter int
	args    []any
	named   Bindings
	err     error
}

type sqlPart struct {
	or  bool
	sql string
}

// SQLBuilder is a Builder rendering applied predicates into a SQL WHERE
// fragment.
type SQLBuilder struct {
	state *renderState
	parts []sqlPart
}

var _ Builder = (*SQLBuilder)(nil)

// NewSQLBuilder returns a SQLBuilder resolving keys through schema.
func NewSQLBuilder(schema Schema, opts RenderOptions) *SQLBuilder {
	return &SQLBuilder{state: &renderState{schema: schema, opts: opts}}
}

// Statement returns the rendered fragment. An empty builder renders an empty
// SQL string. The first error met while building is returned here.
func (b *SQLBuilder) Statement() (Statement, error) {
	if b.state.err != nil {
		return Statement{}, b.state.err
	}
	stmt := Statement{SQL: b.render(), Args: []any{}}
	if b.state.opts.Dialect == DialectPostgresNamedArgs {
		stmt.NamedArgs = Bindings{}
		for k, v := range b.state.named {
			stmt.NamedArgs[k] = v
		}
		return stmt, nil
	}
	stmt.Args = append(stmt.Args, b.state.args...)
	return stmt, nil
}

func (b *SQLBuilder) render() string {
	switch len(b.parts) {
	case 0:
		return ""
	case 1:
		return b.parts[0].sql
	}

	var out strings.Builder
	out.WriteByte('(')
	for i, part := range b.parts {
		if i > 0 {
			if part.or {
				out.WriteString(" OR ")
			} else {
				out.WriteString(" AND ")
			}
		}
		out.WriteString(part.sql)
	}
	out.WriteByte(')')
	return out.String()
}

func (b *SQLBuilder) add(or bool, sql string) Builder {
	if sql != "" {
		b.parts = append(b.parts, sqlPart{or: or, sql: sql})
	}
	return b
}

func (b *SQLBuilder) fail(err error) string {
	if b.state.err == nil {
		b.state.err = err
	}
	return ""
}

func (b *SQLBuilder) column(key string) (string, bool) {
	if field, ok := b.state.schema.Field(key); ok {
		return field.columnExpr(b.state.opts), true
	}
	if b.state.schema.Strict {
		b.fail(errors.Errorf("unknown field %q", key))
		return "", false
	}
	return quotePath(b.state.opts.Dialect, key), true
}

func (b *SQLBuilder) comparison(key, operator string, value any, negate bool) string {
	if b.state.err != nil {
		return ""
	}
	column, ok := b.column(key)
	if !ok {
		return ""
	}

	var sql string
	switch operator {
	case "=", ">", ">=", "<", "<=":
		if value == nil && operator == "=" {
			sql = column + " IS NULL"
			break
		}
		sql = fmt.Sprintf("%s %s %s", column, operator, b.addArg(value))
	case "!=", "<>":
		sql = fmt.Sprintf("%s <> %s", column, b.addArg(value))
	case "like":
		sql = fmt.Sprintf("%s LIKE %s", column, b.addArg(value))
	default:
		return b.fail(errors.Errorf("unsupported operator %q for %q", operator, key))
	}

	if negate {
		return fmt.Sprintf("NOT (%s)", sql)
	}
	return sql
}

func (b *SQLBuilder) membership(key string, values []any, negate bool) string {
	if b.state.err != nil {
		return ""
	}
	column, ok := b.column(key)
	if !ok {
		return ""
	}

	if len(values) == 0 {
		if negate {
			return "1 = 1"
		}
		return "1 = 0"
	}

	if b.state.opts.Dialect == DialectPostgresNamedArgs {
		sql := fmt.Sprintf("%s = ANY(%s)", column, b.addArg(append([]any{}, values...)))
		if negate {
			return fmt.Sprintf("NOT (%s)", sql)
		}
		return sql
	}

	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		placeholders = append(placeholders, b.addArg(v))
	}
	keyword := "IN"
	if negate {
		keyword = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", column, keyword, strings.Join(placeholders, ","))
}

func (b *SQLBuilder) nullCheck(key string, negate bool) string {
	if b.state.err != nil {
		return ""
	}
	column, ok := b.column(key)
	if !ok {
		return ""
	}
	if negate {
		return column + " IS NOT NULL"
	}
	return column + " IS NULL"
}

func (b *SQLBuilder) group(or bool, fn func(Builder)) Builder {
	sub := &SQLBuilder{state: b.state}
	fn(sub)
	return b.add(or, sub.render())
}

func (b *SQLBuilder) addArg(value any) string {
	if v, ok := value.(bool); ok && b.state.opts.Dialect == DialectSQLite {
		if v {
			value = int64(1)
		} else {
			value = int64(0)
		}
	}

	b.state.counter++
	n := b.state.opts.PlaceholderOffset + b.state.counter
	switch b.state.opts.Dialect {
	case DialectPostgres:
		b.state.args = append(b.state.args, value)
		return fmt.Sprintf("$%d", n)
	case DialectPostgresNamedArgs:
		if b.state.named == nil {
			b.state.named = Bindings{}
		}
		name := fmt.Sprintf("p%d", n)
		b.state.named[name] = value
		return "@" + name
	default:
		b.state.args = append(b.state.args, value)
		return "?"
	}
}

func (b *SQLBuilder) Where(column, operator string, value any) Builder {
	return b.add(false, b.comparison(column, operator, value, false))
}

func (b *SQLBuilder) OrWhere(column, operator string, value any) Builder {
	return b.add(true, b.comparison(column, operator, value, false))
}

func (b *SQLBuilder) WhereNot(column, operator string, value any) Builder {
	return b.add(false, b.comparison(column, operator, value, true))
}

func (b *SQLBuilder) OrWhereNot(column, operator string, value any) Builder {
	return b.add(true, b.comparison(column, operator, value, true))
}

func (b *SQLBuilder) WhereIn(column string, values []any) Builder {
	return b.add(false, b.membership(column, values, false))
}

func (b *SQLBuilder) OrWhereIn(column string, values []any) Builder {
	return b.add(true, b.membership(column, values, false))
}

func (b *SQLBuilder) WhereNotIn(column string, values []any) Builder {
	return b.add(false, b.membership(column, values, true))
}

func (b *SQLBuilder) OrWhereNotIn(column string, values []any) Builder {
	return b.add(true, b.membership(column, values, true))
}

func (b *SQLBuilder) WhereNull(column string) Builder {
	return b.add(false, b.nullCheck(column, false))
}

func (b *SQLBuilder) OrWhereNull(column string) Builder {
	return b.add(true, b.nullCheck(column, false))
}

func (b *SQLBuilder) WhereNotNull(column string) Builder {
	return b.add(false, b.nullCheck(column, true))
}

func (b *SQLBuilder) OrWhereNotNull(column string) Builder {
	return b.add(true, b.nullCheck(column, true))
}

func (b *SQLBuilder) WhereGroup(fn func(Builder)) Builder {
	return b.group(false, fn)
}

func (b *SQLBuilder) OrWhereGroup(fn func(Builder)) Builder {
	return b.group(true, fn)
}

// RenderPlan renders a plan into a SQL fragment.
func RenderPlan(schema Schema, plan Plan, opts RenderOptions) (Statement, error) {
	b := NewSQLBuilder(schema, opts)
	Apply(plan, b)
	return b.Statement()
}
