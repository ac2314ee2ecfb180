package filter

import "fmt"

// Builder is the query-building capability a condition plan is applied to.
//
// Each method returns the builder further predicates are chained on. The Or*
// variants combine with the previous predicate of the current scope using OR;
// a leading Or* call in a scope behaves like its plain variant.
type Builder interface {
	Where(column, operator string, value any) Builder
	OrWhere(column, operator string, value any) Builder
	WhereNot(column, operator string, value any) Builder
	OrWhereNot(column, operator string, value any) Builder
	WhereIn(column string, values []any) Builder
	OrWhereIn(column string, values []any) Builder
	WhereNotIn(column string, values []any) Builder
	OrWhereNotIn(column string, values []any) Builder
	WhereNull(column string) Builder
	OrWhereNull(column string) Builder
	WhereNotNull(column string) Builder
	OrWhereNotNull(column string) Builder

	// WhereGroup opens a parenthesized scope combined with AND.
	WhereGroup(fn func(Builder)) Builder
	// OrWhereGroup opens a parenthesized scope combined with OR.
	OrWhereGroup(fn func(Builder)) Builder
}

// Apply walks plan and applies it to b in an AND scope. The plan is not
// modified, so it may be applied any number of times.
func Apply(plan Plan, b Builder) Builder {
	return applyPlan(plan, b, false)
}

func applyPlan(plan Plan, b Builder, or bool) Builder {
	switch p := plan.(type) {
	case nil:
		return b
	case *Op:
		return applyOp(p, b, or)
	case List:
		if len(p) == 0 {
			return b
		}
		if or {
			return b.OrWhereGroup(func(sub Builder) {
				for _, item := range p {
					sub = applyPlan(item, sub, false)
				}
			})
		}
		for _, item := range p {
			b = applyPlan(item, b, false)
		}
		return b
	case *Scope:
		fn := func(sub Builder) {
			for _, child := range p.Children {
				sub = applyPlan(child, sub, p.Or)
			}
		}
		if or {
			return b.OrWhereGroup(fn)
		}
		return b.WhereGroup(fn)
	default:
		panic(fmt.Sprintf("filter: unknown plan node %T", plan))
	}
}

func applyOp(op *Op, b Builder, or bool) Builder {
	name := op.Name
	if or {
		name = name.OrAnalogue()
	}

	// Builders get their own copy so the plan stays untouched.
	values := append([]any{}, op.Values...)

	switch name {
	case OpWhere:
		return b.Where(op.Column, op.Operator, op.Value)
	case OpWhereNot:
		return b.WhereNot(op.Column, op.Operator, op.Value)
	case OpWhereIn:
		return b.WhereIn(op.Column, values)
	case OpWhereNotIn:
		return b.WhereNotIn(op.Column, values)
	case OpWhereNull:
		return b.WhereNull(op.Column)
	case OpWhereNotNull:
		return b.WhereNotNull(op.Column)
	case OpOrWhere:
		return b.OrWhere(op.Column, op.Operator, op.Value)
	case OpOrWhereNot:
		return b.OrWhereNot(op.Column, op.Operator, op.Value)
	case OpOrWhereIn:
		return b.OrWhereIn(op.Column, values)
	case OpOrWhereNotIn:
		return b.OrWhereNotIn(op.Column, values)
	case OpOrWhereNull:
		return b.OrWhereNull(op.Column)
	case OpOrWhereNotNull:
		return b.OrWhereNotNull(op.Column)
	default:
		panic(fmt.Sprintf("filter: unknown operation %v", op.Name))
	}
}
