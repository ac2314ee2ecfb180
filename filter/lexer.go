package filter

import (
	"strings"
	"unicode"
)

// Lexer tokenizes a filter query string.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex tokenizes the whole input. An empty input yields an empty slice.
func Lex(input string) ([]Token, error) {
	l := NewLexer(input)
	tokens := make([]Token, 0, 8)
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// Next reads and returns the next token. Once the input is exhausted it keeps
// returning a TokenEOF token.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	if start >= len(l.input) {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	switch ch := l.input[start]; ch {
	case '!':
		if n := l.propLength(start + 1); n > 0 {
			return l.emit(TokenNotProp, start, start+1+n), nil
		}
		return l.emit(TokenNot, start, start+1), nil
	case '+':
		return l.emit(TokenAnd, start, start+1), nil
	case ',':
		return l.emit(TokenOr, start, start+1), nil
	case '(':
		return l.emit(TokenLParen, start, start+1), nil
	case ')':
		return l.emit(TokenRParen, start, start+1), nil
	case '>', '<':
		kind, wide := TokenGT, TokenGTE
		if ch == '<' {
			kind, wide = TokenLT, TokenLTE
		}
		if l.peekAt(start+1) == '=' {
			return l.emit(wide, start, start+2), nil
		}
		return l.emit(kind, start, start+1), nil
	case '\'':
		if end := l.scanQuoted(start); end > 0 {
			return l.emit(TokenString, start, end), nil
		}
	case '[':
		end, err := l.scanList(start)
		if err != nil {
			return Token{}, err
		}
		if end > 0 {
			return l.emit(TokenIn, start, end), nil
		}
	}

	if l.isNull(start) {
		return l.emit(TokenNull, start, start+len("null")), nil
	}
	if n := l.propLength(start); n > 0 {
		return l.emit(TokenProp, start, start+n), nil
	}

	return l.scanLiteral(start), nil
}

func (l *Lexer) emit(kind TokenKind, start, end int) Token {
	l.pos = end
	return Token{Kind: kind, Text: l.input[start:end], Pos: start}
}

func (l *Lexer) peekAt(i int) byte {
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

// propLength returns the length of an `identifier:` sequence starting at i,
// colon included, or 0 when there is none.
func (l *Lexer) propLength(i int) int {
	if i >= len(l.input) || !isIdentStart(l.input[i]) {
		return 0
	}
	j := i + 1
	for j < len(l.input) && isIdentChar(l.input[j]) {
		j++
	}
	if j < len(l.input) && l.input[j] == ':' {
		return j - i + 1
	}
	return 0
}

// isNull reports whether a whole-word `null` starts at i.
func (l *Lexer) isNull(i int) bool {
	if !strings.HasPrefix(l.input[i:], "null") {
		return false
	}
	next := i + len("null")
	if next >= len(l.input) {
		return true
	}
	c := l.input[next]
	return isSpace(c) || c == '+' || c == ',' || c == '(' || c == ')'
}

// scanQuoted returns the offset just past the quote closing the string that
// opens at i, or -1 when the string is never closed.
func (l *Lexer) scanQuoted(i int) int {
	quote := l.input[i]
	for j := i + 1; j < len(l.input); j++ {
		switch l.input[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return -1
}

// scanList returns the offset just past the `]` closing the list that opens
// at i, or -1 when the bracket is never closed. A quote only opens a string
// at the start of an item, so `[o'neil]` is a plain item.
func (l *Lexer) scanList(i int) (int, error) {
	itemStart := true
	for j := i + 1; j < len(l.input); j++ {
		c := l.input[j]
		switch {
		case c == '\\':
			j++
			itemStart = false
		case c == '\'' && itemStart:
			end := l.scanQuoted(j)
			if end < 0 {
				if closing := strings.IndexByte(l.input[j:], ']'); closing >= 0 {
					return 0, newLexicalError("unterminated string inside list", j, l.input, l.input[i:j+closing+1])
				}
				return -1, nil
			}
			j = end - 1
			itemStart = false
		case c == ',':
			itemStart = true
		case c == ']':
			return j + 1, nil
		case isSpace(c):
		default:
			itemStart = false
		}
	}
	return -1, nil
}

// scanLiteral consumes a LITERAL starting at i. The literal stops at an
// unescaped `+`, `,`, `)` or at a `(` that has more content after it.
func (l *Lexer) scanLiteral(i int) Token {
	j := i
scan:
	for j < len(l.input) {
		switch l.input[j] {
		case '\\':
			j += 2
			continue
		case '+', ',', ')':
			break scan
		case '(':
			if strings.TrimSpace(l.input[j+1:]) != "" {
				break scan
			}
		}
		j++
	}
	if j > len(l.input) {
		j = len(l.input)
	}

	text := strings.TrimRightFunc(l.input[i:j], unicode.IsSpace)
	l.pos = j
	return Token{Kind: TokenLiteral, Text: text, Pos: i}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '.' || ('0' <= c && c <= '9')
}
