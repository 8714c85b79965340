// Package lexer turns Sorrel source text into a stream of tokens.
//
// The lexer is a hand-written scanner over a string. It tracks line and
// column for every token so the parser and evaluator can attach source
// locations to AST nodes and error traces.
package lexer

import (
	"strings"
	"unicode/utf8"
)

// Lexer scans one source file.
type Lexer struct {
	filename     string
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// New creates a lexer for an anonymous snippet.
func New(input string) *Lexer {
	return NewWithFilename(input, "<input>")
}

// NewWithFilename creates a lexer that stamps tokens with the given filename.
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		line:     1,
		column:   0,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // NUL represents EOF
		l.position = l.readPosition
		return
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekCharN(n int) byte {
	if l.readPosition+n-1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition+n-1]
}

func (l *Lexer) newToken(tokenType TokenType, literal string, line, column int) Token {
	return Token{Type: tokenType, Literal: literal, File: l.filename, Line: line, Column: column}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	line, column := l.line, l.column
	var tok Token

	switch l.ch {
	case 0:
		tok = l.newToken(EOF, "", line, column)
		return tok
	case '+':
		// "+:" belongs to object field syntax; the parser reassembles the
		// visibility level from the colons that follow.
		if l.peekChar() == ':' {
			l.readChar()
			tok = l.newToken(PLUS_COLON, "+:", line, column)
		} else {
			tok = l.newToken(PLUS, "+", line, column)
		}
	case '-':
		tok = l.newToken(MINUS, "-", line, column)
	case '*':
		tok = l.newToken(STAR, "*", line, column)
	case '/':
		tok = l.newToken(SLASH, "/", line, column)
	case '%':
		tok = l.newToken(PERCENT, "%", line, column)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(NOT_EQ, "!=", line, column)
		} else {
			tok = l.newToken(BANG, "!", line, column)
		}
	case '~':
		tok = l.newToken(TILDE, "~", line, column)
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = l.newToken(LTE, "<=", line, column)
		case '<':
			l.readChar()
			tok = l.newToken(SHIFT_L, "<<", line, column)
		default:
			tok = l.newToken(LT, "<", line, column)
		}
	case '>':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = l.newToken(GTE, ">=", line, column)
		case '>':
			l.readChar()
			tok = l.newToken(SHIFT_R, ">>", line, column)
		default:
			tok = l.newToken(GT, ">", line, column)
		}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(EQ, "==", line, column)
		} else {
			tok = l.newToken(ASSIGN, "=", line, column)
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = l.newToken(AND, "&&", line, column)
		} else {
			tok = l.newToken(AMP, "&", line, column)
		}
	case '|':
		if l.peekChar() == '|' && l.peekCharN(2) == '|' {
			return l.readTextBlock(line, column)
		}
		if l.peekChar() == '|' {
			l.readChar()
			tok = l.newToken(OR, "||", line, column)
		} else {
			tok = l.newToken(PIPE, "|", line, column)
		}
	case '^':
		tok = l.newToken(CARET, "^", line, column)
	case '$':
		tok = l.newToken(DOLLAR, "$", line, column)
	case ':':
		if l.peekChar() == ':' && l.peekCharN(2) == ':' {
			l.readChar()
			l.readChar()
			tok = l.newToken(TRIPLE_COLON, ":::", line, column)
		} else if l.peekChar() == ':' {
			l.readChar()
			tok = l.newToken(DOUBLE_COLON, "::", line, column)
		} else {
			tok = l.newToken(COLON, ":", line, column)
		}
	case ',':
		tok = l.newToken(COMMA, ",", line, column)
	case ';':
		tok = l.newToken(SEMICOLON, ";", line, column)
	case '.':
		tok = l.newToken(DOT, ".", line, column)
	case '(':
		tok = l.newToken(LPAREN, "(", line, column)
	case ')':
		tok = l.newToken(RPAREN, ")", line, column)
	case '{':
		tok = l.newToken(LBRACE, "{", line, column)
	case '}':
		tok = l.newToken(RBRACE, "}", line, column)
	case '[':
		tok = l.newToken(LBRACKET, "[", line, column)
	case ']':
		tok = l.newToken(RBRACKET, "]", line, column)
	case '"', '\'':
		return l.readString(l.ch, line, column)
	case '@':
		if l.peekChar() == '"' || l.peekChar() == '\'' {
			l.readChar()
			return l.readVerbatimString(l.ch, line, column)
		}
		tok = l.newToken(ILLEGAL, "@ must be followed by a string literal", line, column)
	default:
		if isDigit(l.ch) {
			return l.readNumber(line, column)
		}
		if isIdentStart(l.ch) {
			literal := l.readIdentifier()
			return l.newToken(LookupIdent(literal), literal, line, column)
		}
		r, _ := utf8.DecodeRuneInString(l.input[l.position:])
		tok = l.newToken(ILLEGAL, "unexpected character "+string(r), line, column)
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			l.skipLineComment()
		case l.ch == '/' && l.peekChar() == '/':
			l.skipLineComment()
		case l.ch == '/' && l.peekChar() == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() {
	l.readChar() // consume /
	l.readChar() // consume *
	for {
		if l.ch == 0 {
			return // unterminated; surfaced as EOF by the parser
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber scans integer, fractional, and exponent forms. Malformed
// trailing parts (e.g. "1.e") produce an ILLEGAL token.
func (l *Lexer) readNumber(line, column int) Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	} else if l.ch == '.' {
		return l.newToken(ILLEGAL, "invalid number literal: "+l.input[start:l.position]+".", line, column)
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return l.newToken(ILLEGAL, "invalid number literal: "+l.input[start:l.position], line, column)
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.newToken(NUMBER, l.input[start:l.position], line, column)
}

// readString scans a quoted string with escape sequences. The returned
// token's Literal holds the decoded content.
func (l *Lexer) readString(quote byte, line, column int) Token {
	var sb strings.Builder
	l.readChar() // consume opening quote
	for {
		switch l.ch {
		case 0:
			return l.newToken(ILLEGAL, "unterminated string", line, column)
		case quote:
			l.readChar()
			return l.newToken(STRING, sb.String(), line, column)
		case '\\':
			l.readChar()
			switch l.ch {
			case '"', '\'', '\\', '/':
				sb.WriteByte(l.ch)
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				r, ok := l.readUnicodeEscape()
				if !ok {
					return l.newToken(ILLEGAL, "invalid escape sequence \\u", line, column)
				}
				sb.WriteRune(r)
			default:
				return l.newToken(ILLEGAL, "invalid escape sequence \\"+string(l.ch), line, column)
			}
			l.readChar()
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readUnicodeEscape() (rune, bool) {
	var r rune
	for i := 0; i < 4; i++ {
		l.readChar()
		d := hexDigit(l.ch)
		if d < 0 {
			return 0, false
		}
		r = r<<4 | rune(d)
	}
	return r, true
}

// readVerbatimString scans @"..." / @'...' where the only escape is a
// doubled quote character.
func (l *Lexer) readVerbatimString(quote byte, line, column int) Token {
	var sb strings.Builder
	l.readChar() // consume opening quote
	for {
		switch l.ch {
		case 0:
			return l.newToken(ILLEGAL, "unterminated string", line, column)
		case quote:
			if l.peekChar() == quote {
				sb.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return l.newToken(VERBATIM, sb.String(), line, column)
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readTextBlock scans a ||| block. The first content line's leading
// whitespace sets the margin that is stripped from every line; the block
// ends at a line whose first non-whitespace text is ||| at a column before
// the margin.
func (l *Lexer) readTextBlock(line, column int) Token {
	l.readChar() // |
	l.readChar() // |
	l.readChar() // |
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
	if l.ch != '\n' {
		return l.newToken(ILLEGAL, "text block's first line must be a newline", line, column)
	}
	l.readChar()

	// Skip fully blank leading lines; they contribute newlines.
	var sb strings.Builder
	for l.ch == '\n' {
		sb.WriteByte('\n')
		l.readChar()
	}

	margin := ""
	for l.ch == ' ' || l.ch == '\t' {
		margin += string(l.ch)
		l.readChar()
	}
	if margin == "" {
		return l.newToken(ILLEGAL, "text block's content must be indented", line, column)
	}

	for {
		// Scan the rest of the current (already de-indented) line.
		for l.ch != '\n' && l.ch != 0 {
			sb.WriteByte(l.ch)
			l.readChar()
		}
		if l.ch == 0 {
			return l.newToken(ILLEGAL, "unterminated text block", line, column)
		}
		sb.WriteByte('\n')
		l.readChar()

		// Blank lines stay blank regardless of the margin.
		for l.ch == '\n' {
			sb.WriteByte('\n')
			l.readChar()
		}

		// A line either continues the block with the full margin, or closes
		// it with ||| before the margin.
		matched := 0
		for matched < len(margin) && l.ch == margin[matched] {
			matched++
			l.readChar()
		}
		if matched < len(margin) {
			for l.ch == ' ' || l.ch == '\t' {
				l.readChar()
			}
			if l.ch == '|' && l.peekChar() == '|' && l.peekCharN(2) == '|' {
				l.readChar()
				l.readChar()
				l.readChar()
				return l.newToken(TEXT_BLOCK, sb.String(), line, column)
			}
			return l.newToken(ILLEGAL, "text block line is under-indented", line, column)
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func hexDigit(ch byte) int {
	switch {
	case '0' <= ch && ch <= '9':
		return int(ch - '0')
	case 'a' <= ch && ch <= 'f':
		return int(ch-'a') + 10
	case 'A' <= ch && ch <= 'F':
		return int(ch-'A') + 10
	}
	return -1
}

// IsIdentifier reports whether s is a valid Sorrel identifier and not a
// keyword, used when manifesting field names and rendering traces.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	if LookupIdent(s) != IDENT {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i == 0 && !isIdentStart(s[i]) {
			return false
		}
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
