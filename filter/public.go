package filter

// NewProgramFromPlan wraps an already-built plan as a Program.
//
// This is useful when plans are created programmatically (without parsing),
// but you still want a single object capable of applying, rendering SQL and
// matching records.
func NewProgramFromPlan(plan Plan) *Program {
	if plan == nil {
		plan = List{}
	}
	return &Program{plan: plan}
}

// CompileString parses and compiles query with default settings.
func CompileString(query string, opts ...ParseOption) (Plan, error) {
	node, err := ParseString(query, opts...)
	if err != nil {
		return nil, err
	}
	return Compile(node)
}
