package filter

import "reflect"

// Bindings is a record a Matcher evaluates filters against.
//
// Keys are field names; dotted filter keys resolve through nested maps, so
// `author.name` reads Bindings{"author": map[string]any{"name": ...}}.
type Bindings map[string]any

func toAnySlice(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if _, ok := value.([]byte); ok {
		return nil, false
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	n := rv.Len()
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out, true
}
