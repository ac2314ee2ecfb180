package qfilter

import (
	"context"

	"github.com/fy0/qfilter/filter"
)

// MergeFilters combines filters coming from three sources into one program.
//
//   - enforced clauses are always kept
//   - custom clauses are dropped when they touch a key of an enforced clause
//   - default clauses are dropped when they touch a key of an enforced or
//     kept custom clause
//
// Clauses are the top-level `+` terms of each filter. Every input may be empty.
func MergeFilters(enforced, defaults, custom string, opts ...filter.EngineOption) (*filter.Program, error) {
	engine, err := filter.NewEngine(opts...)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	parsed := make([][]filter.Node, 3)
	for i, query := range []string{enforced, custom, defaults} {
		node, err := engine.Parse(ctx, query)
		if err != nil {
			return nil, err
		}
		parsed[i] = clauses(node)
	}
	enforcedClauses, customClauses, defaultClauses := parsed[0], parsed[1], parsed[2]

	taken := map[string]struct{}{}
	mark := func(nodes []filter.Node) {
		for _, n := range nodes {
			for _, key := range filter.Keys(n) {
				taken[key] = struct{}{}
			}
		}
	}

	mark(enforcedClauses)
	customClauses = reject(customClauses, taken)
	mark(customClauses)
	defaultClauses = reject(defaultClauses, taken)

	merged := make([]filter.Node, 0, len(enforcedClauses)+len(customClauses)+len(defaultClauses))
	merged = append(merged, enforcedClauses...)
	merged = append(merged, customClauses...)
	merged = append(merged, defaultClauses...)

	return engine.CompileNode(AllOf(merged...))
}

func clauses(node filter.Node) []filter.Node {
	switch n := node.(type) {
	case nil:
		return nil
	case *filter.And:
		return n.Children
	default:
		return []filter.Node{node}
	}
}

func reject(nodes []filter.Node, taken map[string]struct{}) []filter.Node {
	out := make([]filter.Node, 0, len(nodes))
	for _, n := range nodes {
		conflict := false
		for _, key := range filter.Keys(n) {
			if _, ok := taken[key]; ok {
				conflict = true
				break
			}
		}
		if !conflict {
			out = append(out, n)
		}
	}
	return out
}

// AllOf joins nodes with AND. Nil nodes are skipped and disjunctions are
// parenthesized so the tree prints back to an equivalent query.
func AllOf(nodes ...filter.Node) filter.Node {
	children := make([]filter.Node, 0, len(nodes))
	for _, n := range nodes {
		if or, ok := n.(*filter.Or); ok {
			n = &filter.Group{Child: or}
		}
		children = append(children, n)
	}
	return filter.NewAnd(children...)
}

// AnyOf joins nodes with OR. Nil nodes are skipped.
func AnyOf(nodes ...filter.Node) filter.Node {
	return filter.NewOr(nodes...)
}
