package filter

import (
	"fmt"
	"strings"
)

// OpName names a predicate operation of a condition plan.
type OpName int

const (
	OpWhere OpName = iota
	OpWhereNot
	OpWhereIn
	OpWhereNotIn
	OpWhereNull
	OpWhereNotNull
	OpOrWhere
	OpOrWhereNot
	OpOrWhereIn
	OpOrWhereNotIn
	OpOrWhereNull
	OpOrWhereNotNull
)

var opNames = [...]string{
	OpWhere:          "where",
	OpWhereNot:       "whereNot",
	OpWhereIn:        "whereIn",
	OpWhereNotIn:     "whereNotIn",
	OpWhereNull:      "whereNull",
	OpWhereNotNull:   "whereNotNull",
	OpOrWhere:        "orWhere",
	OpOrWhereNot:     "orWhereNot",
	OpOrWhereIn:      "orWhereIn",
	OpOrWhereNotIn:   "orWhereNotIn",
	OpOrWhereNull:    "orWhereNull",
	OpOrWhereNotNull: "orWhereNotNull",
}

// orAnalogues maps each operation to the variant used inside an OR scope.
var orAnalogues = [...]OpName{
	OpWhere:          OpOrWhere,
	OpWhereNot:       OpOrWhereNot,
	OpWhereIn:        OpOrWhereIn,
	OpWhereNotIn:     OpOrWhereNotIn,
	OpWhereNull:      OpOrWhereNull,
	OpWhereNotNull:   OpOrWhereNotNull,
	OpOrWhere:        OpOrWhere,
	OpOrWhereNot:     OpOrWhereNot,
	OpOrWhereIn:      OpOrWhereIn,
	OpOrWhereNotIn:   OpOrWhereNotIn,
	OpOrWhereNull:    OpOrWhereNull,
	OpOrWhereNotNull: OpOrWhereNotNull,
}

func (o OpName) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("OpName(%d)", int(o))
	}
	return opNames[o]
}

// OrAnalogue returns the OR-combined variant of the operation.
func (o OpName) OrAnalogue() OpName {
	return orAnalogues[o]
}

// Plan is a compiled condition plan: an *Op, a List or a *Scope.
//
// Plans are never modified after compilation and can be applied any number
// of times.
type Plan interface {
	isPlan()
	String() string
}

// Op is a single predicate operation.
type Op struct {
	Name   OpName
	Column string
	// Operator and Value are set for where / whereNot.
	Operator string
	Value    any
	// Values is set for whereIn / whereNotIn.
	Values []any
}

func (*Op) isPlan() {}

// Args returns the operation arguments in builder call order.
func (o *Op) Args() []any {
	switch o.Name {
	case OpWhere, OpWhereNot, OpOrWhere, OpOrWhereNot:
		return []any{o.Column, o.Operator, o.Value}
	case OpWhereIn, OpWhereNotIn, OpOrWhereIn, OpOrWhereNotIn:
		return []any{o.Column, o.Values}
	default:
		return []any{o.Column}
	}
}

func (o *Op) String() string {
	args := o.Args()
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	return fmt.Sprintf("%s(%s)", o.Name, strings.Join(parts, ", "))
}

// List is an ordered sequence of conditions combined with AND.
type List []Plan

func (List) isPlan() {}

func (l List) String() string {
	return joinPlans("and", l)
}

// Scope is a parenthesized sub-scope whose children are combined with AND,
// or with OR when Or is set.
type Scope struct {
	Or       bool
	Children []Plan
}

func (*Scope) isPlan() {}

func (g *Scope) String() string {
	if g.Or {
		return joinPlans("or", g.Children)
	}
	return joinPlans("and", g.Children)
}

// NewList builds an AND sequence. Nested lists are flattened and a single
// element is returned as-is, so no one-element List ever appears in a plan.
func NewList(items ...Plan) Plan {
	out := make(List, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case List:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// NewOrScope builds an OR scope. Multi-condition children are wrapped in an
// AND scope so that they keep their own parentheses.
func NewOrScope(items ...Plan) *Scope {
	children := make([]Plan, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case List:
			if len(v) == 0 {
				continue
			}
			children = append(children, &Scope{Children: []Plan(v)})
		default:
			children = append(children, v)
		}
	}
	return &Scope{Or: true, Children: children}
}

// OpCount returns the number of predicate operations in the plan.
func OpCount(plan Plan) int {
	switch p := plan.(type) {
	case *Op:
		return 1
	case List:
		n := 0
		for _, item := range p {
			n += OpCount(item)
		}
		return n
	case *Scope:
		n := 0
		for _, item := range p.Children {
			n += OpCount(item)
		}
		return n
	default:
		return 0
	}
}

func joinPlans(name string, items []Plan) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.String())
	}
	return name + "[" + strings.Join(parts, ", ") + "]"
}
