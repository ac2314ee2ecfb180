package filter

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/fy0/qfilter/internal/errors"
)

var timeType = reflect.TypeOf(time.Time{})

// SchemaFromStruct builds a Schema from a Go struct type using reflection.
//
// Field name resolution precedence:
//  1. `filter` tag (first segment, json-style)
//  2. `json` tag
//  3. `db` tag
//  4. snake_case of Go field name
//
// Column name resolution precedence:
//  1. `filter` tag option `column=...`
//  2. `db` tag
//  3. `gorm` tag option `column:...`
//  4. resolved field name
//
// The `filter` tag also supports "-" to skip the field and "table=..." to
// override the table. Embedded structs are flattened.
func SchemaFromStruct(name, table string, model any) (Schema, error) {
	rt, err := normalizeStructType(model)
	if err != nil {
		return Schema{}, err
	}

	if strings.TrimSpace(name) == "" {
		base := rt.Name()
		if base == "" {
			return Schema{}, errors.Errorf("schema name is required for anonymous structs")
		}
		name = snakeCase(base)
	}

	fields := map[string]*Field{}
	if err := collectFieldsFromStruct(rt, table, fields); err != nil {
		return Schema{}, err
	}

	return Schema{
		Name:   name,
		Fields: fields,
	}, nil
}

func normalizeStructType(model any) (reflect.Type, error) {
	if model == nil {
		return nil, errors.Errorf("model is nil")
	}

	var rt reflect.Type
	if t, ok := model.(reflect.Type); ok {
		rt = t
	} else {
		rt = reflect.TypeOf(model)
	}

	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, errors.Errorf("model must be a struct (or pointer to struct), got %s", rt.Kind())
	}
	return rt, nil
}

type parsedFilterTag struct {
	skip   bool
	name   string
	table  string
	column string
}

func parseFilterTag(raw string) parsedFilterTag {
	if raw == "" {
		return parsedFilterTag{}
	}

	out := parsedFilterTag{}
	parts := strings.Split(raw, ",")
	for idx, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "-" {
			out.skip = true
			return out
		}
		if idx == 0 && !strings.Contains(part, "=") {
			out.name = part
			continue
		}

		switch {
		case strings.HasPrefix(part, "table="):
			out.table = strings.TrimPrefix(part, "table=")
		case strings.HasPrefix(part, "column="):
			out.column = strings.TrimPrefix(part, "column=")
		}
	}

	return out
}

func collectFieldsFromStruct(rt reflect.Type, defaultTable string, fields map[string]*Field) error {
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)

		// Skip unexported fields unless they are anonymous (embedded) structs.
		if sf.PkgPath != "" && !sf.Anonymous {
			continue
		}

		filterTagRaw, filterTagPresent := sf.Tag.Lookup("filter")
		tag := parseFilterTag(filterTagRaw)
		if tag.skip {
			continue
		}

		fieldType := sf.Type
		for fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}

		if sf.Anonymous && fieldType.Kind() == reflect.Struct && fieldType != timeType && !filterTagPresent {
			if err := collectFieldsFromStruct(fieldType, defaultTable, fields); err != nil {
				return err
			}
			continue
		}

		name := tag.name
		if name == "" {
			name = pickTagName(sf.Tag.Get("json"))
		}
		if name == "" {
			name = pickTagName(sf.Tag.Get("db"))
		}
		if name == "" {
			name = snakeCase(sf.Name)
		}
		if name == "-" {
			continue
		}

		column := tag.column
		if column == "" {
			column = pickTagName(sf.Tag.Get("db"))
		}
		if column == "" {
			column = pickGormColumn(sf.Tag.Get("gorm"))
		}
		if column == "" {
			column = name
		}

		colTable := tag.table
		if colTable == "" {
			colTable = defaultTable
		}

		if _, exists := fields[name]; exists {
			return errors.Errorf("duplicate schema field name %q", name)
		}
		fields[name] = &Field{
			Name:   name,
			Column: Column{Table: colTable, Name: column},
		}
	}
	return nil
}

func pickTagName(tag string) string {
	if tag == "" {
		return ""
	}
	name := strings.Split(tag, ",")[0]
	name = strings.TrimSpace(name)
	return name
}

func pickGormColumn(tag string) string {
	if tag == "" {
		return ""
	}
	parts := strings.Split(tag, ";")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "column:"):
			return strings.TrimPrefix(part, "column:")
		case strings.HasPrefix(part, "column="):
			return strings.TrimPrefix(part, "column=")
		}
	}
	return ""
}

func snakeCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 4)

	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				var next rune
				if i+1 < len(runes) {
					next = runes[i+1]
				}
				if (unicode.IsLower(prev) || unicode.IsDigit(prev)) || (next != 0 && unicode.IsLower(next)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
