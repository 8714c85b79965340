package lexer

import "fmt"

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT      // foo, bar, x, y, ...
	NUMBER     // 42, 3.14, 1e100
	STRING     // "foo", 'foo'
	VERBATIM   // @"raw \ string"
	TEXT_BLOCK // ||| ... |||

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	PERCENT  // %
	BANG     // !
	TILDE    // ~
	LT       // <
	GT       // >
	LTE      // <=
	GTE      // >=
	EQ       // ==
	NOT_EQ   // !=
	AND      // &&
	OR       // ||
	AMP      // &
	PIPE     // |
	CARET    // ^
	SHIFT_L  // <<
	SHIFT_R  // >>
	ASSIGN   // = (parameter defaults, local binds)
	DOLLAR   // $

	// Field visibility markers
	COLON        // :
	DOUBLE_COLON // ::
	TRIPLE_COLON // :::
	PLUS_COLON   // +: (and +::, +::: via PlusSuper on the parser side)

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	DOT       // .
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]

	// Keywords
	ASSERT     // "assert"
	ELSE       // "else"
	ERROR      // "error"
	FALSE      // "false"
	FOR        // "for"
	FUNCTION   // "function"
	IF         // "if"
	IMPORT     // "import"
	IMPORTSTR  // "importstr"
	IMPORTBIN  // "importbin"
	IN         // "in"
	LOCAL      // "local"
	NULL       // "null"
	SELF       // "self"
	SUPER      // "super"
	TAILSTRICT // "tailstrict"
	THEN       // "then"
	TRUE       // "true"
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	File    string
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

var tokenNames = map[TokenType]string{
	ILLEGAL:      "ILLEGAL",
	EOF:          "EOF",
	IDENT:        "IDENT",
	NUMBER:       "NUMBER",
	STRING:       "STRING",
	VERBATIM:     "VERBATIM",
	TEXT_BLOCK:   "TEXT_BLOCK",
	PLUS:         "PLUS",
	MINUS:        "MINUS",
	STAR:         "STAR",
	SLASH:        "SLASH",
	PERCENT:      "PERCENT",
	BANG:         "BANG",
	TILDE:        "TILDE",
	LT:           "LT",
	GT:           "GT",
	LTE:          "LTE",
	GTE:          "GTE",
	EQ:           "EQ",
	NOT_EQ:       "NOT_EQ",
	AND:          "AND",
	OR:           "OR",
	AMP:          "AMP",
	PIPE:         "PIPE",
	CARET:        "CARET",
	SHIFT_L:      "SHIFT_L",
	SHIFT_R:      "SHIFT_R",
	ASSIGN:       "ASSIGN",
	DOLLAR:       "DOLLAR",
	COLON:        "COLON",
	DOUBLE_COLON: "DOUBLE_COLON",
	TRIPLE_COLON: "TRIPLE_COLON",
	PLUS_COLON:   "PLUS_COLON",
	COMMA:        "COMMA",
	SEMICOLON:    "SEMICOLON",
	DOT:          "DOT",
	LPAREN:       "LPAREN",
	RPAREN:       "RPAREN",
	LBRACE:       "LBRACE",
	RBRACE:       "RBRACE",
	LBRACKET:     "LBRACKET",
	RBRACKET:     "RBRACKET",
	ASSERT:       "ASSERT",
	ELSE:         "ELSE",
	ERROR:        "ERROR",
	FALSE:        "FALSE",
	FOR:          "FOR",
	FUNCTION:     "FUNCTION",
	IF:           "IF",
	IMPORT:       "IMPORT",
	IMPORTSTR:    "IMPORTSTR",
	IMPORTBIN:    "IMPORTBIN",
	IN:           "IN",
	LOCAL:        "LOCAL",
	NULL:         "NULL",
	SELF:         "SELF",
	SUPER:        "SUPER",
	TAILSTRICT:   "TAILSTRICT",
	THEN:         "THEN",
	TRUE:         "TRUE",
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

var keywords = map[string]TokenType{
	"assert":     ASSERT,
	"else":       ELSE,
	"error":      ERROR,
	"false":      FALSE,
	"for":        FOR,
	"function":   FUNCTION,
	"if":         IF,
	"import":     IMPORT,
	"importstr":  IMPORTSTR,
	"importbin":  IMPORTBIN,
	"in":         IN,
	"local":      LOCAL,
	"null":       NULL,
	"self":       SELF,
	"super":      SUPER,
	"tailstrict": TAILSTRICT,
	"then":       THEN,
	"true":       TRUE,
}

// LookupIdent maps identifier text to its keyword token type, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
