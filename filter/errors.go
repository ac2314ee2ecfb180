package filter

import (
	"fmt"

	"github.com/fy0/qfilter/internal/errors"
)

// ErrorCode categorizes lexical and syntax errors for hint lookup.
type ErrorCode int

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodeUnexpectedToken
	ErrorCodeUnexpectedEOF
	ErrorCodeMissingClosingParen
	ErrorCodeUnmatchedClosingParen
	ErrorCodeMissingValue
	ErrorCodeInvalidComparisonValue
	ErrorCodeBareValue
	ErrorCodeUnterminatedString
)

// LexicalError is returned when a character sequence cannot be tokenized.
type LexicalError struct {
	Message  string
	Position int
	Query    string
	Text     string
}

func (e LexicalError) Error() string {
	return fmt.Sprintf("Query Error: unrecognized text %q at position %d: %s", e.Text, e.Position, e.Message)
}

func newLexicalError(message string, position int, query, text string) error {
	return errors.New(LexicalError{
		Message:  message,
		Position: position,
		Query:    query,
		Text:     text,
	})
}

// SyntaxError is returned when the token stream violates the grammar.
type SyntaxError struct {
	Message   string
	Position  int
	Query     string
	Token     string
	ErrorCode ErrorCode
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("Query Error: syntax error at position %d: %s", e.Position, e.Message)
}

func newSyntaxError(code ErrorCode, tok Token, format string, args ...any) error {
	return errors.New(SyntaxError{
		Message:   fmt.Sprintf(format, args...),
		Position:  tok.Pos,
		Token:     tok.Text,
		ErrorCode: code,
	})
}

// UnsupportedAggregateError is returned for keys referencing an aggregate,
// such as `posts.$count`.
type UnsupportedAggregateError struct {
	Key       string
	Aggregate string
}

func (e UnsupportedAggregateError) Error() string {
	return fmt.Sprintf("Aggregate queries are not yet supported: %q uses $%s", e.Key, e.Aggregate)
}

// InvalidLogicalValueError is returned when `$or` or `$not` is given a value
// that is neither an object nor an array of objects.
type InvalidLogicalValueError struct {
	Operator string
	Value    any
}

func (e InvalidLogicalValueError) Error() string {
	return fmt.Sprintf("%s conditions only accept arrays or an object as a value, got %T", e.Operator, e.Value)
}

// InvalidOperatorError is returned for an unknown `$` comparison operator or
// for a comparison operator that is not attached to a key.
type InvalidOperatorError struct {
	Operator string
	Key      string
	Reason   string
}

func (e InvalidOperatorError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s is not a valid comparison operator: %s", e.Operator, e.Reason)
	}
	return fmt.Sprintf("%s is not a valid comparison operator for %q: %s", e.Operator, e.Key, e.Reason)
}

// withQuery attaches the source query to lexical and syntax errors so that
// diagnostics can point into it. Other errors are returned unchanged.
func withQuery(err error, query string) error {
	var synErr SyntaxError
	if errors.As(err, &synErr) && synErr.Query == "" {
		synErr.Query = query
		return errors.New(synErr)
	}
	var lexErr LexicalError
	if errors.As(err, &lexErr) && lexErr.Query == "" {
		lexErr.Query = query
		return errors.New(lexErr)
	}
	return err
}
