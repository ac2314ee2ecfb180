package filter

import (
	"fmt"
	"strings"

	"github.com/fy0/qfilter/internal/errors"
)

// ANSI escape codes for colored output.
const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiRed   = "\033[31m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
)

// FormatDiagnostic renders a lexical or syntax error with the offending query,
// a caret under the failing position and a hint when one applies. Other
// errors render as their message.
func FormatDiagnostic(err error, useColor bool) string {
	var (
		title, query, message, token string
		position                     int
		code                         = ErrorCodeUnknown
	)

	var synErr SyntaxError
	var lexErr LexicalError
	switch {
	case errors.As(err, &synErr):
		title, query, message, token, position, code = "syntax error", synErr.Query, synErr.Message, synErr.Token, synErr.Position, synErr.ErrorCode
	case errors.As(err, &lexErr):
		title, query, message, token, position, code = "unrecognized text", lexErr.Query, lexErr.Message, lexErr.Text, lexErr.Position, ErrorCodeUnterminatedString
	default:
		if err == nil {
			return ""
		}
		return err.Error() + "\n"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Filter query error: %s\n", title)

	arrow := " --> "
	if useColor {
		arrow = fmt.Sprintf("%s%s --> %s", ansiBold, ansiBlue, ansiReset)
	}
	fmt.Fprintf(&sb, "%squery '%s'\n", arrow, query)

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "     %s\n", query)

	indent := "     "
	if position > len(query) {
		position = len(query)
	}
	spaces := strings.Repeat(" ", position)
	if useColor {
		fmt.Fprintf(&sb, "%s%s%s%s^%s %s\n", indent, spaces, ansiBold, ansiRed, ansiReset, message)
	} else {
		fmt.Fprintf(&sb, "%s%s^ %s\n", indent, spaces, message)
	}

	if hint := GetHint(code, token, query); hint != "" {
		sb.WriteString("\n")
		if useColor {
			fmt.Fprintf(&sb, "  %s%shint:%s %s\n", ansiBold, ansiCyan, ansiReset, hint)
		} else {
			fmt.Fprintf(&sb, "  hint: %s\n", hint)
		}
	}

	return sb.String()
}

// GetHint returns a hint for an error code, or an empty string.
func GetHint(code ErrorCode, token, query string) string {
	switch code {
	case ErrorCodeMissingClosingParen:
		return "Every '(' needs a matching ')'. e.g. '(tag:a,tag:b)+featured:true'"
	case ErrorCodeUnmatchedClosingParen:
		return "Remove the extra ')' or escape it as '\\)' to match it literally."
	case ErrorCodeMissingValue:
		return fmt.Sprintf("Give the property a value. e.g. '%svalue'", strings.TrimLeft(token, "!<>="))
	case ErrorCodeInvalidComparisonValue:
		return "Range comparisons take a single value, not null or a [list]."
	case ErrorCodeBareValue:
		return fmt.Sprintf("Values must follow a property. Did you mean 'key:%s'?", token)
	case ErrorCodeUnexpectedEOF:
		return "The query is incomplete. Make sure operators like '+', ',' and '!' have something after them."
	case ErrorCodeUnterminatedString:
		return "Close the quote with ' or escape it as \\'."
	case ErrorCodeUnexpectedToken:
		switch token {
		case "+", ",":
			return "'+' (and) and ',' (or) must sit between two conditions."
		case ">", ">=", "<", "<=":
			return "Comparisons follow a property. e.g. 'count:>5'"
		}
	}

	return ""
}
