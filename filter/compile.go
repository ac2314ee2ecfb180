package filter

import (
	"strings"

	"github.com/fy0/qfilter/internal/errors"
)

// aggregates lists the aggregate names rejected in keys, longest first.
var aggregates = []string{"count.distinct", "count", "sum", "max", "min"}

// Compile turns a filter tree into a condition plan. A nil node compiles to an
// empty List.
func Compile(node Node) (Plan, error) {
	if node == nil {
		return List{}, nil
	}
	return compileNode(node, false)
}

func compileNode(node Node, negated bool) (Plan, error) {
	switch n := node.(type) {
	case *Attribute:
		if err := checkAggregate(n.Key); err != nil {
			return nil, err
		}
		return compileAttribute(n.Key, n.Value, negated), nil

	case *Comparison:
		if err := checkAggregate(n.Key); err != nil {
			return nil, err
		}
		if n.Op == CompareNE {
			return compileAttribute(n.Key, n.Value, !negated), nil
		}
		name := OpWhere
		if negated {
			name = OpWhereNot
		}
		return &Op{Name: name, Column: n.Key, Operator: n.Op.Symbol(), Value: n.Value.Arg()}, nil

	case *Not:
		return compileNode(n.Child, !negated)

	case *Group:
		return compileNode(n.Child, negated)

	case *And:
		plans, err := compileChildren(n.Children, negated)
		if err != nil {
			return nil, err
		}
		if negated {
			return orOf(plans), nil
		}
		return NewList(plans...), nil

	case *Or:
		plans, err := compileChildren(n.Children, negated)
		if err != nil {
			return nil, err
		}
		if negated {
			return NewList(plans...), nil
		}
		return orOf(plans), nil

	case nil:
		return List{}, nil

	default:
		return nil, errors.Errorf("filter: unsupported node %T", node)
	}
}

func compileChildren(children []Node, negated bool) ([]Plan, error) {
	plans := make([]Plan, 0, len(children))
	for _, child := range children {
		plan, err := compileNode(child, negated)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func compileAttribute(key string, value Value, negated bool) Plan {
	switch v := value.(type) {
	case Null, nil:
		if negated {
			return &Op{Name: OpWhereNotNull, Column: key}
		}
		return &Op{Name: OpWhereNull, Column: key}
	case InList:
		values := append([]any{}, v...)
		if negated {
			return &Op{Name: OpWhereNotIn, Column: key, Values: values}
		}
		return &Op{Name: OpWhereIn, Column: key, Values: values}
	default:
		if negated {
			return &Op{Name: OpWhereNot, Column: key, Operator: "=", Value: v.Arg()}
		}
		return &Op{Name: OpWhere, Column: key, Operator: "=", Value: v.Arg()}
	}
}

// orOf combines plans into an OR scope, dropping empty branches. A single
// remaining branch is returned unwrapped.
func orOf(plans []Plan) Plan {
	scope := NewOrScope(plans...)
	switch len(scope.Children) {
	case 0:
		return List{}
	case 1:
		if inner, ok := scope.Children[0].(*Scope); ok && !inner.Or {
			return List(inner.Children)
		}
		return scope.Children[0]
	default:
		return scope
	}
}

// checkAggregate rejects keys with a `$count`, `$count.distinct`, `$sum`,
// `$max` or `$min` segment, leading segment included.
func checkAggregate(key string) error {
	segments := strings.Split(key, ".")
	for i := 0; i < len(segments); i++ {
		if !strings.HasPrefix(segments[i], "$") {
			continue
		}
		rest := strings.Join(append([]string{strings.TrimPrefix(segments[i], "$")}, segments[i+1:]...), ".")
		for _, name := range aggregates {
			if rest == name || strings.HasPrefix(rest, name+".") {
				return errors.New(UnsupportedAggregateError{Key: key, Aggregate: name})
			}
		}
	}
	return nil
}
