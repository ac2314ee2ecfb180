package filter

import (
	"strings"
)

// ParseOption customizes parsing.
type ParseOption func(*Parser)

// WithBareValueKey makes bare values (values without a `key:` prefix) match
// against the given key instead of failing.
func WithBareValueKey(key string) ParseOption {
	return func(p *Parser) {
		p.defaultKey = key
	}
}

// Parser builds a filter tree from a token stream.
//
// Grammar, loosest binding first:
//
//	Expr       := AndExpr (OR AndExpr)*
//	AndExpr    := Term (AND Term)*
//	Term       := NOT Term | LPAREN Expr RPAREN | PropClause | Value
//	PropClause := (PROP | NOTPROP) ((GT|GTE|LT|LTE) Value | Value)
type Parser struct {
	tokens     []Token
	pos        int
	end        int
	defaultKey string
}

// NewParser creates a Parser over tokens.
func NewParser(tokens []Token, opts ...ParseOption) *Parser {
	end := 0
	if n := len(tokens); n > 0 {
		end = tokens[n-1].Pos + len(tokens[n-1].Text)
	}
	p := &Parser{tokens: tokens, end: end}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Parse parses tokens into a filter tree. An empty token stream yields a nil node.
func Parse(tokens []Token, opts ...ParseOption) (Node, error) {
	return NewParser(tokens, opts...).Parse()
}

// ParseString lexes and parses query.
func ParseString(query string, opts ...ParseOption) (Node, error) {
	tokens, err := Lex(query)
	if err != nil {
		return nil, withQuery(err, query)
	}
	node, err := Parse(tokens, opts...)
	if err != nil {
		return nil, withQuery(err, query)
	}
	return node, nil
}

// Parse consumes the whole token stream.
func (p *Parser) Parse() (Node, error) {
	if len(p.tokens) == 0 {
		return nil, nil
	}

	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	switch tok := p.cur(); tok.Kind {
	case TokenEOF:
		return node, nil
	case TokenRParen:
		return nil, newSyntaxError(ErrorCodeUnmatchedClosingParen, tok, "unmatched ')'")
	default:
		return nil, newSyntaxError(ErrorCodeUnexpectedToken, tok, "unexpected %s %q after expression", tok.Kind, tok.Text)
	}
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF, Pos: p.end}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// parseExpr handles OR expressions (lowest precedence).
func (p *Parser) parseExpr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{left}

	for p.cur().Kind == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	return NewOr(children...), nil
}

// parseAnd handles `+`-joined terms.
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	children := []Node{left}

	for p.cur().Kind == TokenAnd {
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	return NewAnd(children...), nil
}

func (p *Parser) parseTerm() (Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokenNot:
		p.advance()
		child, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil

	case TokenLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != TokenRParen {
			return nil, newSyntaxError(ErrorCodeMissingClosingParen, tok, "missing ')' for '(' at position %d", tok.Pos)
		}
		p.advance()
		return &Group{Child: expr}, nil

	case TokenProp:
		p.advance()
		return p.parseClause(tok, strings.TrimSuffix(tok.Text, ":"))

	case TokenNotProp:
		p.advance()
		clause, err := p.parseClause(tok, strings.TrimSuffix(strings.TrimPrefix(tok.Text, "!"), ":"))
		if err != nil {
			return nil, err
		}
		return &Not{Child: clause}, nil

	case TokenLiteral, TokenString, TokenNull, TokenIn:
		if p.defaultKey == "" {
			return nil, newSyntaxError(ErrorCodeBareValue, tok, "value %q is not attached to a property", tok.Text)
		}
		p.advance()
		value, err := decodeValue(tok)
		if err != nil {
			return nil, err
		}
		return &Attribute{Key: p.defaultKey, Value: value}, nil

	case TokenEOF:
		return nil, newSyntaxError(ErrorCodeUnexpectedEOF, tok, "unexpected end of input")

	default:
		return nil, newSyntaxError(ErrorCodeUnexpectedToken, tok, "unexpected %s %q", tok.Kind, tok.Text)
	}
}

// parseClause parses what follows a PROP or NOTPROP token.
func (p *Parser) parseClause(prop Token, key string) (Node, error) {
	tok := p.cur()

	var op CompareOp
	switch tok.Kind {
	case TokenGT:
		op = CompareGT
	case TokenGTE:
		op = CompareGTE
	case TokenLT:
		op = CompareLT
	case TokenLTE:
		op = CompareLTE
	case TokenLiteral, TokenString, TokenNull, TokenIn:
		p.advance()
		value, err := decodeValue(tok)
		if err != nil {
			return nil, err
		}
		return &Attribute{Key: key, Value: value}, nil
	default:
		return nil, newSyntaxError(ErrorCodeMissingValue, prop, "expected a value after %q", prop.Text)
	}

	p.advance()
	valueTok := p.cur()
	switch valueTok.Kind {
	case TokenLiteral, TokenString:
		p.advance()
		value, err := decodeValue(valueTok)
		if err != nil {
			return nil, err
		}
		return &Comparison{Key: key, Op: op, Value: value}, nil
	case TokenNull, TokenIn:
		return nil, newSyntaxError(ErrorCodeInvalidComparisonValue, valueTok, "%s cannot be compared with %s", tok.Text, valueTok.Kind)
	default:
		return nil, newSyntaxError(ErrorCodeMissingValue, tok, "expected a value after %q", prop.Text+tok.Text)
	}
}

func decodeValue(tok Token) (Value, error) {
	switch tok.Kind {
	case TokenLiteral:
		return Literal(unescape(tok.Text)), nil
	case TokenString:
		return StringLit(unquote(tok.Text)), nil
	case TokenNull:
		return Null{}, nil
	case TokenIn:
		return decodeList(tok.Text), nil
	default:
		return nil, newSyntaxError(ErrorCodeUnexpectedToken, tok, "%s is not a value", tok.Kind)
	}
}

// decodeList splits the contents of an IN token on top-level commas.
func decodeList(text string) InList {
	body := strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
	items := InList{}

	var item strings.Builder
	quoted := false
	flush := func() {
		raw := strings.TrimSpace(item.String())
		item.Reset()
		switch {
		case raw == "":
		case len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'':
			items = append(items, unquote(raw))
		default:
			items = append(items, unescape(raw))
		}
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			item.WriteByte(c)
			item.WriteByte(body[i+1])
			i++
			continue
		case c == '\'':
			if quoted {
				quoted = false
			} else if strings.TrimSpace(item.String()) == "" {
				quoted = true
			}
		case c == ',' && !quoted:
			flush()
			continue
		}
		item.WriteByte(c)
	}
	flush()

	return items
}

func unquote(text string) string {
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		text = text[1 : len(text)-1]
	}
	return unescape(text)
}

func unescape(text string) string {
	if !strings.Contains(text, `\`) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			i++
		}
		b.WriteByte(text[i])
	}
	return b.String()
}
