// Package filtertest provides a filter.Builder that records the calls made to
// it, for asserting on the predicates a plan applies.
package filtertest

import (
	"fmt"
	"strings"

	"github.com/fy0/qfilter/filter"
)

// Call is one recorded builder call. Group calls carry the calls made inside
// the group in Nested.
type Call struct {
	Method string
	Args   []any
	Nested []Call
}

func (c Call) String() string {
	if c.Nested != nil {
		parts := make([]string, 0, len(c.Nested))
		for _, n := range c.Nested {
			parts = append(parts, n.String())
		}
		return fmt.Sprintf("%s{%s}", c.Method, strings.Join(parts, " "))
	}
	parts := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		parts = append(parts, fmt.Sprintf("%v", arg))
	}
	return fmt.Sprintf("%s(%s)", c.Method, strings.Join(parts, ","))
}

// Recorder records builder calls in order.
type Recorder struct {
	Calls []Call
}

var _ filter.Builder = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Trace renders the recorded calls as one line, handy for comparisons.
func (r *Recorder) Trace() string {
	parts := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " ")
}

func (r *Recorder) record(method string, args ...any) filter.Builder {
	r.Calls = append(r.Calls, Call{Method: method, Args: args})
	return r
}

func (r *Recorder) group(method string, fn func(filter.Builder)) filter.Builder {
	sub := NewRecorder()
	fn(sub)
	nested := sub.Calls
	if nested == nil {
		nested = []Call{}
	}
	r.Calls = append(r.Calls, Call{Method: method, Nested: nested})
	return r
}

func (r *Recorder) Where(column, operator string, value any) filter.Builder {
	return r.record("where", column, operator, value)
}

func (r *Recorder) OrWhere(column, operator string, value any) filter.Builder {
	return r.record("orWhere", column, operator, value)
}

func (r *Recorder) WhereNot(column, operator string, value any) filter.Builder {
	return r.record("whereNot", column, operator, value)
}

func (r *Recorder) OrWhereNot(column, operator string, value any) filter.Builder {
	return r.record("orWhereNot", column, operator, value)
}

func (r *Recorder) WhereIn(column string, values []any) filter.Builder {
	return r.record("whereIn", column, values)
}

func (r *Recorder) OrWhereIn(column string, values []any) filter.Builder {
	return r.record("orWhereIn", column, values)
}

func (r *Recorder) WhereNotIn(column string, values []any) filter.Builder {
	return r.record("whereNotIn", column, values)
}

func (r *Recorder) OrWhereNotIn(column string, values []any) filter.Builder {
	return r.record("orWhereNotIn", column, values)
}

func (r *Recorder) WhereNull(column string) filter.Builder {
	return r.record("whereNull", column)
}

func (r *Recorder) OrWhereNull(column string) filter.Builder {
	return r.record("orWhereNull", column)
}

func (r *Recorder) WhereNotNull(column string) filter.Builder {
	return r.record("whereNotNull", column)
}

func (r *Recorder) OrWhereNotNull(column string) filter.Builder {
	return r.record("orWhereNotNull", column)
}

func (r *Recorder) WhereGroup(fn func(filter.Builder)) filter.Builder {
	return r.group("whereGroup", fn)
}

func (r *Recorder) OrWhereGroup(fn func(filter.Builder)) filter.Builder {
	return r.group("orWhereGroup", fn)
}
