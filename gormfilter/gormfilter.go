// Package gormfilter applies compiled filters to GORM queries.
//
//	program, err := engine.Compile("tag:photo+featured:true")
//	...
//	db.Scopes(gormfilter.Scope(program)).Find(&posts)
package gormfilter

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fy0/qfilter/filter"
	"github.com/fy0/qfilter/internal/errors"
)

type part struct {
	or   bool
	expr clause.Expression
}

type state struct {
	err error
}

// Builder is a filter.Builder producing a GORM clause expression.
type Builder struct {
	state *state
	parts []part
}

var _ filter.Builder = (*Builder)(nil)

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{state: &state{}}
}

// Expression returns the combined expression, or nil when nothing was
// applied. AND binds tighter than OR, as in SQL.
func (b *Builder) Expression() (clause.Expression, error) {
	if b.state.err != nil {
		return nil, b.state.err
	}
	return b.combine(), nil
}

func (b *Builder) combine() clause.Expression {
	if len(b.parts) == 0 {
		return nil
	}

	var runs [][]clause.Expression
	for i, p := range b.parts {
		if i == 0 || p.or {
			runs = append(runs, nil)
		}
		runs[len(runs)-1] = append(runs[len(runs)-1], p.expr)
	}

	if len(runs) == 1 {
		return clause.And(runs[0]...)
	}
	ors := make([]clause.Expression, 0, len(runs))
	for _, run := range runs {
		ors = append(ors, clause.And(run...))
	}
	return clause.Or(ors...)
}

// Expression builds the GORM expression for plan.
func Expression(plan filter.Plan) (clause.Expression, error) {
	b := NewBuilder()
	filter.Apply(plan, b)
	return b.Expression()
}

// Scope returns a GORM scope adding the program's conditions to the query.
// Build errors are attached to the query with AddError.
func Scope(program *filter.Program) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		b := NewBuilder()
		program.Apply(b)
		expr, err := b.Expression()
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		if expr == nil {
			return db
		}
		return db.Where(expr)
	}
}

func column(key string) clause.Column {
	if idx := strings.LastIndexByte(key, '.'); idx > 0 {
		return clause.Column{Table: key[:idx], Name: key[idx+1:]}
	}
	return clause.Column{Name: key}
}

func (b *Builder) add(or bool, expr clause.Expression) filter.Builder {
	if expr != nil {
		b.parts = append(b.parts, part{or: or, expr: expr})
	}
	return b
}

func (b *Builder) comparison(key, operator string, value any, negate bool) clause.Expression {
	if b.state.err != nil {
		return nil
	}

	col := column(key)
	var expr clause.Expression
	switch operator {
	case "=":
		expr = clause.Eq{Column: col, Value: value}
	case "!=", "<>":
		expr = clause.Neq{Column: col, Value: value}
	case ">":
		expr = clause.Gt{Column: col, Value: value}
	case ">=":
		expr = clause.Gte{Column: col, Value: value}
	case "<":
		expr = clause.Lt{Column: col, Value: value}
	case "<=":
		expr = clause.Lte{Column: col, Value: value}
	case "like":
		expr = clause.Like{Column: col, Value: value}
	default:
		b.state.err = errors.Errorf("unsupported operator %q for %q", operator, key)
		return nil
	}

	if negate {
		return clause.Not(expr)
	}
	return expr
}

func (b *Builder) membership(key string, values []any, negate bool) clause.Expression {
	if len(values) == 0 {
		if negate {
			return clause.Expr{SQL: "1 = 1"}
		}
		return clause.Expr{SQL: "1 = 0"}
	}
	in := clause.IN{Column: column(key), Values: append([]any{}, values...)}
	if negate {
		return clause.Not(in)
	}
	return in
}

func (b *Builder) nullCheck(key string, negate bool) clause.Expression {
	if negate {
		return clause.Neq{Column: column(key), Value: nil}
	}
	return clause.Eq{Column: column(key), Value: nil}
}

func (b *Builder) group(or bool, fn func(filter.Builder)) filter.Builder {
	sub := &Builder{state: b.state}
	fn(sub)
	expr := sub.combine()
	if expr == nil {
		return b
	}
	if len(sub.parts) > 1 {
		expr = clause.And(expr)
	}
	return b.add(or, expr)
}

func (b *Builder) Where(column, operator string, value any) filter.Builder {
	return b.add(false, b.comparison(column, operator, value, false))
}

func (b *Builder) OrWhere(column, operator string, value any) filter.Builder {
	return b.add(true, b.comparison(column, operator, value, false))
}

func (b *Builder) WhereNot(column, operator string, value any) filter.Builder {
	return b.add(false, b.comparison(column, operator, value, true))
}

func (b *Builder) OrWhereNot(column, operator string, value any) filter.Builder {
	return b.add(true, b.comparison(column, operator, value, true))
}

func (b *Builder) WhereIn(column string, values []any) filter.Builder {
	return b.add(false, b.membership(column, values, false))
}

func (b *Builder) OrWhereIn(column string, values []any) filter.Builder {
	return b.add(true, b.membership(column, values, false))
}

func (b *Builder) WhereNotIn(column string, values []any) filter.Builder {
	return b.add(false, b.membership(column, values, true))
}

func (b *Builder) OrWhereNotIn(column string, values []any) filter.Builder {
	return b.add(true, b.membership(column, values, true))
}

func (b *Builder) WhereNull(column string) filter.Builder {
	return b.add(false, b.nullCheck(column, false))
}

func (b *Builder) OrWhereNull(column string) filter.Builder {
	return b.add(true, b.nullCheck(column, false))
}

func (b *Builder) WhereNotNull(column string) filter.Builder {
	return b.add(false, b.nullCheck(column, true))
}

func (b *Builder) OrWhereNotNull(column string) filter.Builder {
	return b.add(true, b.nullCheck(column, true))
}

func (b *Builder) WhereGroup(fn func(filter.Builder)) filter.Builder {
	return b.group(false, fn)
}

func (b *Builder) OrWhereGroup(fn func(filter.Builder)) filter.Builder {
	return b.group(true, fn)
}
