package filter

import (
	"fmt"
	"strings"
)

// Node is a parsed filter tree node.
type Node interface {
	isNode()
	String() string
}

// CompareOp enumerates the comparison operators of a Comparison node.
type CompareOp int

const (
	CompareGT CompareOp = iota
	CompareGTE
	CompareLT
	CompareLTE
	CompareLike
	CompareNE
)

var compareOpSymbols = [...]string{
	CompareGT:   ">",
	CompareGTE:  ">=",
	CompareLT:   "<",
	CompareLTE:  "<=",
	CompareLike: "like",
	CompareNE:   "!=",
}

// Symbol returns the operator as passed to Builder.Where.
func (op CompareOp) Symbol() string {
	if op < 0 || int(op) >= len(compareOpSymbols) {
		return "?"
	}
	return compareOpSymbols[op]
}

func (op CompareOp) String() string {
	return op.Symbol()
}

// Attribute is a simple match: equality, membership or null check.
type Attribute struct {
	Key   string
	Value Value
}

func (*Attribute) isNode() {}

func (a *Attribute) String() string {
	return fmt.Sprintf("%s:%s", a.Key, a.Value)
}

// Comparison is a range, pattern or inequality match on a key.
type Comparison struct {
	Key   string
	Op    CompareOp
	Value Value
}

func (*Comparison) isNode() {}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s:%s%s", c.Key, c.Op.Symbol(), c.Value)
}

// And is an implicit conjunction of its children.
type And struct {
	Children []Node
}

func (*And) isNode() {}

func (a *And) String() string {
	return joinNodes(a.Children, "+")
}

// Or is an explicit disjunction of its children.
type Or struct {
	Children []Node
}

func (*Or) isNode() {}

func (o *Or) String() string {
	return joinNodes(o.Children, ",")
}

// Not negates its child.
type Not struct {
	Child Node
}

func (*Not) isNode() {}

func (n *Not) String() string {
	return "!" + n.Child.String()
}

// Group is a parenthesized expression. It only affects precedence.
type Group struct {
	Child Node
}

func (*Group) isNode() {}

func (g *Group) String() string {
	return "(" + g.Child.String() + ")"
}

// NewAnd combines children into a conjunction. A single child is returned
// as-is, so no one-element And ever appears in a tree. Nil children are
// dropped; with none left the result is nil.
func NewAnd(children ...Node) Node {
	children = compactNodes(children)
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return &And{Children: children}
}

// NewOr combines children into a disjunction. A single child is returned
// as-is, so no one-element Or ever appears in a tree.
func NewOr(children ...Node) Node {
	children = compactNodes(children)
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return &Or{Children: children}
}

func compactNodes(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, sep)
}

// Value is the right-hand side of an Attribute or Comparison.
type Value interface {
	isValue()
	// Arg returns the value handed to a Builder.
	Arg() any
	String() string
}

// Literal is an unquoted value, with escapes already resolved.
type Literal string

func (Literal) isValue()         {}
func (v Literal) Arg() any       { return string(v) }
func (v Literal) String() string { return string(v) }

// StringLit is a quoted value, with quotes stripped and escapes resolved.
type StringLit string

func (StringLit) isValue()         {}
func (v StringLit) Arg() any       { return string(v) }
func (v StringLit) String() string { return "'" + strings.ReplaceAll(string(v), "'", `\'`) + "'" }

// Null matches missing values.
type Null struct{}

func (Null) isValue()       {}
func (Null) Arg() any       { return nil }
func (Null) String() string { return "null" }

// InList is a membership list.
type InList []any

func (InList) isValue() {}

func (v InList) Arg() any {
	return []any(v)
}

func (v InList) String() string {
	parts := make([]string, 0, len(v))
	for _, item := range v {
		parts = append(parts, fmt.Sprint(item))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Scalar is a typed value supplied through the object entry point.
type Scalar struct {
	Value any
}

func (Scalar) isValue()         {}
func (v Scalar) Arg() any       { return v.Value }
func (v Scalar) String() string { return fmt.Sprint(v.Value) }

// Walk visits every node of the tree in depth-first order. Returning false
// from fn skips the children of the visited node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *And:
		for _, child := range n.Children {
			Walk(child, fn)
		}
	case *Or:
		for _, child := range n.Children {
			Walk(child, fn)
		}
	case *Not:
		Walk(n.Child, fn)
	case *Group:
		Walk(n.Child, fn)
	}
}

// Keys returns the distinct keys referenced by the tree, in order of appearance.
func Keys(node Node) []string {
	seen := map[string]struct{}{}
	var keys []string
	Walk(node, func(n Node) bool {
		var key string
		switch v := n.(type) {
		case *Attribute:
			key = v.Key
		case *Comparison:
			key = v.Key
		default:
			return true
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// RewriteKeys returns a copy of the tree with every key passed through fn.
func RewriteKeys(node Node, fn func(string) string) Node {
	switch n := node.(type) {
	case nil:
		return nil
	case *Attribute:
		return &Attribute{Key: fn(n.Key), Value: n.Value}
	case *Comparison:
		return &Comparison{Key: fn(n.Key), Op: n.Op, Value: n.Value}
	case *And:
		children := make([]Node, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, RewriteKeys(child, fn))
		}
		return &And{Children: children}
	case *Or:
		children := make([]Node, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, RewriteKeys(child, fn))
		}
		return &Or{Children: children}
	case *Not:
		return &Not{Child: RewriteKeys(n.Child, fn)}
	case *Group:
		return &Group{Child: RewriteKeys(n.Child, fn)}
	default:
		return node
	}
}
