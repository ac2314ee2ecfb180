// Package qfilter compiles query-string filters into database predicates.
//
// The heavy lifting lives in the filter package; this package bundles the
// common entry points and composes filters from several sources.
package qfilter

import (
	"github.com/fy0/qfilter/filter"
)

// Compile parses and compiles query with a fresh engine built from opts.
func Compile(query string, opts ...filter.EngineOption) (*filter.Program, error) {
	engine, err := filter.NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	return engine.Compile(query)
}

// MustCompile is like Compile but panics if the query is invalid.
func MustCompile(query string, opts ...filter.EngineOption) *filter.Program {
	program, err := Compile(query, opts...)
	if err != nil {
		panic(`qfilter: Compile(` + query + `): ` + err.Error())
	}
	return program
}
