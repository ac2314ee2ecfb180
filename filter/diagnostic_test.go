package filter_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fy0/qfilter/filter"
)

func TestFormatDiagnosticSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := filter.ParseString(`(a:1`)
	require.Error(t, err)

	expected := "Filter query error: syntax error\n" +
		" --> query '(a:1'\n" +
		"\n" +
		"     (a:1\n" +
		"     ^ missing ')' for '(' at position 0\n" +
		"\n" +
		"  hint: Every '(' needs a matching ')'. e.g. '(tag:a,tag:b)+featured:true'\n"
	assert.Equal(t, expected, filter.FormatDiagnostic(err, false))
}

func TestFormatDiagnosticCaretPosition(t *testing.T) {
	t.Parallel()

	_, err := filter.ParseString(`tag:photo+`)
	require.Error(t, err)

	out := filter.FormatDiagnostic(err, false)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "     tag:photo+", lines[3])
	assert.Equal(t, "               ^ unexpected end of input", lines[4])
	assert.Contains(t, out, "hint: The query is incomplete.")
}

func TestFormatDiagnosticLexicalError(t *testing.T) {
	t.Parallel()

	_, err := filter.ParseString(`tag:[a, 'b]`)
	require.Error(t, err)

	out := filter.FormatDiagnostic(err, false)
	assert.True(t, strings.HasPrefix(out, "Filter query error: unrecognized text\n"))
	assert.Contains(t, out, " --> query 'tag:[a, 'b]'")
	assert.Contains(t, out, "hint: Close the quote with ' or escape it as \\'.")
}

func TestFormatDiagnosticColor(t *testing.T) {
	t.Parallel()

	_, err := filter.ParseString(`photo`)
	require.Error(t, err)

	out := filter.FormatDiagnostic(err, true)
	assert.Contains(t, out, "\033[31m^\033[0m")
	assert.Contains(t, out, "Did you mean 'key:photo'?")
}

func TestFormatDiagnosticOtherErrors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", filter.FormatDiagnostic(nil, false))
	assert.Equal(t, "boom\n", filter.FormatDiagnostic(errors.New("boom"), false))
}

func TestGetHint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Give the property a value. e.g. 'count:value'", filter.GetHint(filter.ErrorCodeMissingValue, "count:", ""))
	assert.Equal(t, "Give the property a value. e.g. 'tag:value'", filter.GetHint(filter.ErrorCodeMissingValue, "!tag:", ""))
	assert.Equal(t, "Comparisons follow a property. e.g. 'count:>5'", filter.GetHint(filter.ErrorCodeUnexpectedToken, ">=", ""))
	assert.Empty(t, filter.GetHint(filter.ErrorCodeUnexpectedToken, "(", ""))
	assert.Empty(t, filter.GetHint(filter.ErrorCodeUnknown, "", ""))
}
