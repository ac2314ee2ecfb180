package filter

import (
	"reflect"
	"sort"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/fy0/qfilter/internal/errors"
)

// Entry is one key/value pair of an Object.
type Entry struct {
	Key   string
	Value any
}

// Object is a filter object whose keys are visited in order.
//
// Plain maps are accepted wherever an Object is, but their keys are visited
// sorted, plain keys first and `$` operators after.
type Object []Entry

var comparisonOperators = map[string]CompareOp{
	"$gt":   CompareGT,
	"$gte":  CompareGTE,
	"$lt":   CompareLT,
	"$lte":  CompareLTE,
	"$like": CompareLike,
	"$ne":   CompareNE,
}

// FromObject converts a nested filter object into a filter tree.
//
//	{"count": {"$gt": 5}, "$or": [{"title": "A"}, {"title": "B"}]}
//
// Keys are dotted paths. Supported operators are $gt, $gte, $lt, $lte, $like
// and $ne under a key, plus the logical $or and $not. An empty object yields a
// nil node.
func FromObject(obj any) (Node, error) {
	entries, ok := entriesOf(obj)
	if !ok {
		return nil, errors.Errorf("filter: filter object must be a map or Object, got %T", obj)
	}
	return entriesNode(entries, "")
}

// FromJSON decodes a JSON filter object, keeping its key order, and converts
// it into a filter tree.
func FromJSON(data []byte) (Node, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "filter: decode JSON filter")
	}
	if v.Type() != fastjson.TypeObject {
		return nil, errors.Errorf("filter: JSON filter must be an object, got %s", v.Type())
	}
	decoded, err := jsonValue(v)
	if err != nil {
		return nil, err
	}
	return FromObject(decoded)
}

func jsonValue(v *fastjson.Value) (any, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return nil, errors.WithStackTrace(err)
		}
		obj := make(Object, 0, o.Len())
		var visitErr error
		o.Visit(func(key []byte, item *fastjson.Value) {
			if visitErr != nil {
				return
			}
			value, err := jsonValue(item)
			if err != nil {
				visitErr = err
				return
			}
			obj = append(obj, Entry{Key: string(key), Value: value})
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return obj, nil

	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return nil, errors.WithStackTrace(err)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			value, err := jsonValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil

	case fastjson.TypeString:
		return string(v.GetStringBytes()), nil

	case fastjson.TypeNumber:
		text := v.String()
		if !strings.ContainsAny(text, ".eE") {
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
		}
		f, err := v.Float64()
		if err != nil {
			return nil, errors.WithStackTrace(err)
		}
		return f, nil

	case fastjson.TypeTrue:
		return true, nil

	case fastjson.TypeFalse:
		return false, nil

	default:
		return nil, nil
	}
}

func entriesOf(obj any) (Object, bool) {
	switch o := obj.(type) {
	case Object:
		return o, true
	case map[string]any:
		return sortedEntries(o), true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return sortedEntries(m), true
}

func sortedEntries(m map[string]any) Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.HasPrefix(keys[i], "$"), strings.HasPrefix(keys[j], "$")
		if di != dj {
			return dj
		}
		return keys[i] < keys[j]
	})

	out := make(Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: k, Value: m[k]})
	}
	return out
}

func entriesNode(entries Object, parent string) (Node, error) {
	children := make([]Node, 0, len(entries))
	for _, e := range entries {
		node, err := entryNode(e.Key, e.Value, parent)
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	return NewAnd(children...), nil
}

func entryNode(key string, value any, parent string) (Node, error) {
	if !strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
		return attributeNode(joinKey(parent, key), value)
	}

	switch key {
	case "$or":
		items, err := logicalItems(key, value)
		if err != nil {
			return nil, err
		}
		children := make([]Node, 0, len(items))
		for _, item := range items {
			node, err := entriesNode(item, parent)
			if err != nil {
				return nil, err
			}
			children = append(children, node)
		}
		return NewOr(children...), nil

	case "$not":
		items, err := logicalItems(key, value)
		if err != nil {
			return nil, err
		}
		children := make([]Node, 0, len(items))
		for _, item := range items {
			node, err := entriesNode(item, parent)
			if err != nil {
				return nil, err
			}
			children = append(children, node)
		}
		child := NewAnd(children...)
		if child == nil {
			return nil, nil
		}
		return &Not{Child: child}, nil
	}

	op, ok := comparisonOperators[key]
	if !ok {
		if parent != "" && isAggregateName(strings.TrimPrefix(key, "$")) {
			return attributeNode(joinKey(parent, key), value)
		}
		return nil, errors.New(InvalidOperatorError{Operator: key, Key: parent, Reason: "unknown operator"})
	}
	if parent == "" {
		return nil, errors.New(InvalidOperatorError{Operator: key, Reason: "operator must be nested under a key"})
	}
	return comparisonNode(parent, key, op, value)
}

func attributeNode(key string, value any) (Node, error) {
	if entries, ok := entriesOf(value); ok {
		return entriesNode(entries, key)
	}
	v, err := valueOf(value)
	if err != nil {
		return nil, err
	}
	return &Attribute{Key: key, Value: v}, nil
}

func comparisonNode(key, name string, op CompareOp, value any) (Node, error) {
	if _, ok := entriesOf(value); ok {
		return nil, errors.New(InvalidOperatorError{Operator: name, Key: key, Reason: "value must not be an object"})
	}
	v, err := valueOf(value)
	if err != nil {
		return nil, err
	}
	if op != CompareNE {
		switch v.(type) {
		case Null:
			return nil, errors.New(InvalidOperatorError{Operator: name, Key: key, Reason: "value must not be null"})
		case InList:
			return nil, errors.New(InvalidOperatorError{Operator: name, Key: key, Reason: "value must not be a list"})
		}
	}
	return &Comparison{Key: key, Op: op, Value: v}, nil
}

// logicalItems returns the condition objects of a `$or` or `$not` value.
func logicalItems(operator string, value any) ([]Object, error) {
	if entries, ok := entriesOf(value); ok {
		return []Object{entries}, nil
	}
	list, ok := toAnySlice(value)
	if !ok {
		return nil, errors.New(InvalidLogicalValueError{Operator: operator, Value: value})
	}
	items := make([]Object, 0, len(list))
	for _, item := range list {
		entries, ok := entriesOf(item)
		if !ok {
			return nil, errors.New(InvalidLogicalValueError{Operator: operator, Value: item})
		}
		items = append(items, entries)
	}
	return items, nil
}

func valueOf(value any) (Value, error) {
	if value == nil {
		return Null{}, nil
	}
	if v, ok := value.(Value); ok {
		return v, nil
	}
	if list, ok := toAnySlice(value); ok {
		out := make(InList, 0, len(list))
		for _, item := range list {
			if _, isObj := entriesOf(item); isObj {
				return nil, errors.Errorf("filter: list items must be scalars, got %T", item)
			}
			out = append(out, normalizeScalar(item))
		}
		return out, nil
	}
	return Scalar{Value: normalizeScalar(value)}, nil
}

func joinKey(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func isAggregateName(name string) bool {
	for _, agg := range aggregates {
		if name == agg {
			return true
		}
	}
	return false
}
