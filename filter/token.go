package filter

// TokenKind represents the type of a lexical token.
type TokenKind int

const (
	// TokenEOF marks the end of the token stream. Lex never emits it; the
	// parser uses it as a sentinel once all tokens are consumed.
	TokenEOF TokenKind = iota
	TokenNot
	TokenNotProp
	TokenAnd
	TokenOr
	TokenLParen
	TokenRParen
	TokenGT
	TokenGTE
	TokenLT
	TokenLTE
	TokenProp
	TokenLiteral
	TokenString
	TokenNull
	TokenIn
)

var tokenKindNames = [...]string{
	TokenEOF:     "EOF",
	TokenNot:     "NOT",
	TokenNotProp: "NOTPROP",
	TokenAnd:     "AND",
	TokenOr:      "OR",
	TokenLParen:  "LPAREN",
	TokenRParen:  "RPAREN",
	TokenGT:      "GT",
	TokenGTE:     "GTE",
	TokenLT:      "LT",
	TokenLTE:     "LTE",
	TokenProp:    "PROP",
	TokenLiteral: "LITERAL",
	TokenString:  "STRING",
	TokenNull:    "NULL",
	TokenIn:      "IN",
}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(tokenKindNames) {
		return "UNKNOWN"
	}
	return tokenKindNames[k]
}

// Token is a lexical token together with the exact text it matched.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

func (t Token) String() string {
	return t.Kind.String() + "(" + t.Text + ")"
}
