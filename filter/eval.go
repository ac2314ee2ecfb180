package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
	exprv1 "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fy0/qfilter/internal/errors"
)

// Matcher evaluates a compiled filter against in-memory records.
//
// The plan is translated into a CEL expression once; Match may be called
// concurrently. Values are compared as supplied: filters parsed from text
// carry string values, so numeric comparisons need typed values from the
// object or JSON entry point.
type Matcher struct {
	keys    []string
	program cel.Program
	source  *exprv1.Expr
}

// NewMatcher builds a Matcher for plan in env. A nil env gets a default
// environment.
func NewMatcher(env *cel.Env, plan Plan) (*Matcher, error) {
	if env == nil {
		var err error
		env, err = NewEnv()
		if err != nil {
			return nil, err
		}
	}

	b := newCELBuilder()
	Apply(plan, b)
	if b.state.err != nil {
		return nil, b.state.err
	}

	expr := b.expr()
	ast := cel.ParsedExprToAst(&exprv1.ParsedExpr{Expr: expr})
	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "failed to build CEL program")
	}

	return &Matcher{keys: b.state.keys, program: prg, source: expr}, nil
}

// NewEnv creates the CEL environment matchers evaluate in.
func NewEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	envOpts := append([]cel.EnvOption{cel.CrossTypeNumericComparisons(true)}, opts...)
	env, err := cel.NewEnv(envOpts...)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "failed to create CEL environment")
	}
	return env, nil
}

// Match reports whether record satisfies the filter. Missing keys read as
// null.
func (m *Matcher) Match(record Bindings) (bool, error) {
	vars := make(map[string]any, len(m.keys))
	for i, key := range m.keys {
		vars[varName(i)] = lookup(record, key)
	}

	out, _, err := m.program.Eval(vars)
	if err != nil {
		return false, errors.WithStackTraceAndPrefix(err, "failed to evaluate filter")
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("filter evaluated to %T, expected bool", out.Value())
	}
	return matched, nil
}

// Expr returns the CEL expression the matcher evaluates.
func (m *Matcher) Expr() *exprv1.Expr {
	return m.source
}

// lookup resolves a dotted key through nested maps. An exact match on the
// full key wins over path traversal.
func lookup(record Bindings, key string) any {
	if v, ok := record[key]; ok {
		return v
	}
	var cur any = map[string]any(record)
	for _, seg := range strings.Split(key, ".") {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[seg]
		case Bindings:
			cur = m[seg]
		default:
			return nil
		}
	}
	return cur
}

func varName(i int) string {
	return fmt.Sprintf("v%d", i)
}

type celState struct {
	nextID int64
	keys   []string
	vars   map[string]int
	err    error
}

type celPart struct {
	or   bool
	expr *exprv1.Expr
}

// celBuilder is a Builder assembling a CEL expression. Every distinct key is
// bound to a generated variable so dotted keys need no declarations.
type celBuilder struct {
	state *celState
	parts []celPart
}

var _ Builder = (*celBuilder)(nil)

func newCELBuilder() *celBuilder {
	return &celBuilder{state: &celState{vars: map[string]int{}}}
}

// expr folds the recorded parts with SQL precedence: AND binds tighter than
// OR. An empty scope is true.
func (b *celBuilder) expr() *exprv1.Expr {
	if len(b.parts) == 0 {
		return b.constExpr(true)
	}

	var runs []*exprv1.Expr
	var cur *exprv1.Expr
	for i, part := range b.parts {
		if i > 0 && part.or {
			runs = append(runs, cur)
			cur = nil
		}
		if cur == nil {
			cur = part.expr
		} else {
			cur = b.call("_&&_", cur, part.expr)
		}
	}
	runs = append(runs, cur)

	out := runs[0]
	for _, run := range runs[1:] {
		out = b.call("_||_", out, run)
	}
	return out
}

func (b *celBuilder) id() int64 {
	b.state.nextID++
	return b.state.nextID
}

func (b *celBuilder) call(fn string, args ...*exprv1.Expr) *exprv1.Expr {
	return &exprv1.Expr{
		Id:       b.id(),
		ExprKind: &exprv1.Expr_CallExpr{CallExpr: &exprv1.Expr_Call{Function: fn, Args: args}},
	}
}

func (b *celBuilder) method(target *exprv1.Expr, fn string, args ...*exprv1.Expr) *exprv1.Expr {
	return &exprv1.Expr{
		Id:       b.id(),
		ExprKind: &exprv1.Expr_CallExpr{CallExpr: &exprv1.Expr_Call{Target: target, Function: fn, Args: args}},
	}
}

func (b *celBuilder) ident(key string) *exprv1.Expr {
	idx, ok := b.state.vars[key]
	if !ok {
		idx = len(b.state.keys)
		b.state.vars[key] = idx
		b.state.keys = append(b.state.keys, key)
	}
	return &exprv1.Expr{
		Id:       b.id(),
		ExprKind: &exprv1.Expr_IdentExpr{IdentExpr: &exprv1.Expr_Ident{Name: varName(idx)}},
	}
}

func (b *celBuilder) constExpr(value any) *exprv1.Expr {
	var c *exprv1.Constant
	switch v := normalizeScalar(value).(type) {
	case nil:
		c = &exprv1.Constant{ConstantKind: &exprv1.Constant_NullValue{NullValue: structpb.NullValue_NULL_VALUE}}
	case bool:
		c = &exprv1.Constant{ConstantKind: &exprv1.Constant_BoolValue{BoolValue: v}}
	case int64:
		c = &exprv1.Constant{ConstantKind: &exprv1.Constant_Int64Value{Int64Value: v}}
	case uint64:
		c = &exprv1.Constant{ConstantKind: &exprv1.Constant_Uint64Value{Uint64Value: v}}
	case float64:
		c = &exprv1.Constant{ConstantKind: &exprv1.Constant_DoubleValue{DoubleValue: v}}
	case string:
		c = &exprv1.Constant{ConstantKind: &exprv1.Constant_StringValue{StringValue: v}}
	default:
		c = &exprv1.Constant{ConstantKind: &exprv1.Constant_StringValue{StringValue: fmt.Sprint(v)}}
	}
	return &exprv1.Expr{Id: b.id(), ExprKind: &exprv1.Expr_ConstExpr{ConstExpr: c}}
}

func (b *celBuilder) listExpr(values []any) *exprv1.Expr {
	elems := make([]*exprv1.Expr, 0, len(values))
	for _, v := range values {
		elems = append(elems, b.constExpr(v))
	}
	return &exprv1.Expr{
		Id:       b.id(),
		ExprKind: &exprv1.Expr_ListExpr{ListExpr: &exprv1.Expr_CreateList{Elements: elems}},
	}
}

func (b *celBuilder) notNull(key string) *exprv1.Expr {
	return b.call("_!=_", b.ident(key), b.constExpr(nil))
}

func (b *celBuilder) add(or bool, expr *exprv1.Expr) Builder {
	if expr != nil {
		b.parts = append(b.parts, celPart{or: or, expr: expr})
	}
	return b
}

// comparison guards against null so that a missing value fails the
// comparison and its negation alike.
func (b *celBuilder) comparison(key, operator string, value any, negate bool) *exprv1.Expr {
	if b.state.err != nil {
		return nil
	}

	var cmp *exprv1.Expr
	switch operator {
	case "=":
		if value == nil {
			if negate {
				return b.notNull(key)
			}
			return b.call("_==_", b.ident(key), b.constExpr(nil))
		}
		cmp = b.call("_==_", b.ident(key), b.constExpr(value))
	case "!=", "<>":
		cmp = b.call("_!=_", b.ident(key), b.constExpr(value))
	case ">":
		cmp = b.call("_>_", b.ident(key), b.constExpr(value))
	case ">=":
		cmp = b.call("_>=_", b.ident(key), b.constExpr(value))
	case "<":
		cmp = b.call("_<_", b.ident(key), b.constExpr(value))
	case "<=":
		cmp = b.call("_<=_", b.ident(key), b.constExpr(value))
	case "like":
		cmp = b.method(b.ident(key), "matches", b.constExpr(likePattern(fmt.Sprint(value))))
	default:
		b.state.err = errors.Errorf("unsupported operator %q for %q", operator, key)
		return nil
	}

	if negate {
		cmp = b.call("!_", cmp)
	}
	return b.call("_&&_", b.notNull(key), cmp)
}

func (b *celBuilder) membership(key string, values []any, negate bool) *exprv1.Expr {
	if b.state.err != nil {
		return nil
	}
	in := b.call("@in", b.ident(key), b.listExpr(values))
	if negate {
		return b.call("_&&_", b.notNull(key), b.call("!_", in))
	}
	return in
}

func (b *celBuilder) nullCheck(key string, negate bool) *exprv1.Expr {
	if b.state.err != nil {
		return nil
	}
	if negate {
		return b.notNull(key)
	}
	return b.call("_==_", b.ident(key), b.constExpr(nil))
}

func (b *celBuilder) group(or bool, fn func(Builder)) Builder {
	sub := &celBuilder{state: b.state}
	fn(sub)
	if len(sub.parts) == 0 {
		return b
	}
	return b.add(or, sub.expr())
}

// likePattern converts a SQL LIKE pattern into an anchored regular expression.
func likePattern(pattern string) string {
	var out strings.Builder
	out.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			out.WriteString(".*")
		case '_':
			out.WriteString(".")
		default:
			out.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	out.WriteString("$")
	return out.String()
}

func (b *celBuilder) Where(column, operator string, value any) Builder {
	return b.add(false, b.comparison(column, operator, value, false))
}

func (b *celBuilder) OrWhere(column, operator string, value any) Builder {
	return b.add(true, b.comparison(column, operator, value, false))
}

func (b *celBuilder) WhereNot(column, operator string, value any) Builder {
	return b.add(false, b.comparison(column, operator, value, true))
}

func (b *celBuilder) OrWhereNot(column, operator string, value any) Builder {
	return b.add(true, b.comparison(column, operator, value, true))
}

func (b *celBuilder) WhereIn(column string, values []any) Builder {
	return b.add(false, b.membership(column, values, false))
}

func (b *celBuilder) OrWhereIn(column string, values []any) Builder {
	return b.add(true, b.membership(column, values, false))
}

func (b *celBuilder) WhereNotIn(column string, values []any) Builder {
	return b.add(false, b.membership(column, values, true))
}

func (b *celBuilder) OrWhereNotIn(column string, values []any) Builder {
	return b.add(true, b.membership(column, values, true))
}

func (b *celBuilder) WhereNull(column string) Builder {
	return b.add(false, b.nullCheck(column, false))
}

func (b *celBuilder) OrWhereNull(column string) Builder {
	return b.add(true, b.nullCheck(column, false))
}

func (b *celBuilder) WhereNotNull(column string) Builder {
	return b.add(false, b.nullCheck(column, true))
}

func (b *celBuilder) OrWhereNotNull(column string) Builder {
	return b.add(true, b.nullCheck(column, true))
}

func (b *celBuilder) WhereGroup(fn func(Builder)) Builder {
	return b.group(false, fn)
}

func (b *celBuilder) OrWhereGroup(fn func(Builder)) Builder {
	return b.group(true, fn)
}
