// Package parser builds a Sorrel AST from a token stream.
//
// It is a Pratt (top-down operator precedence) parser: a table of prefix
// and infix parse functions keyed by token type, with a precedence level
// per infix operator. Syntactic sugar with a direct core form (method
// fields, 'local f(x) = ...' function binds, else-less conditionals and
// 'obj { ... }' composition) is desugared here so the evaluator only sees
// the core node set.
package parser

import (
	"strconv"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/lexer"
)

// Operator precedence levels, lowest first.
const (
	_ int = iota
	LOWEST
	LOGIC_OR    // ||
	LOGIC_AND   // &&
	BIT_OR      // |
	BIT_XOR     // ^
	BIT_AND     // &
	EQUALS      // == !=
	LESSGREATER // < > <= >= in
	SHIFT       // << >>
	SUM         // + -
	PRODUCT     // * / %
	UNARY       // -x !x ~x +x
	APPLY       // f(x) a[i] a.b obj {...}
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:       LOGIC_OR,
	lexer.AND:      LOGIC_AND,
	lexer.PIPE:     BIT_OR,
	lexer.CARET:    BIT_XOR,
	lexer.AMP:      BIT_AND,
	lexer.EQ:       EQUALS,
	lexer.NOT_EQ:   EQUALS,
	lexer.LT:       LESSGREATER,
	lexer.GT:       LESSGREATER,
	lexer.LTE:      LESSGREATER,
	lexer.GTE:      LESSGREATER,
	lexer.IN:       LESSGREATER,
	lexer.SHIFT_L:  SHIFT,
	lexer.SHIFT_R:  SHIFT,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.STAR:     PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.LPAREN:   APPLY,
	lexer.LBRACKET: APPLY,
	lexer.DOT:      APPLY,
	lexer.LBRACE:   APPLY,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser consumes a Lexer and produces one Expression.
type Parser struct {
	l      *lexer.Lexer
	errors []*errors.SorrelError

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New creates a parser over the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:      p.parseIdentifier,
		lexer.NUMBER:     p.parseNumberLiteral,
		lexer.STRING:     p.parseStringLiteral,
		lexer.VERBATIM:   p.parseStringLiteral,
		lexer.TEXT_BLOCK: p.parseStringLiteral,
		lexer.TRUE:       p.parseBooleanLiteral,
		lexer.FALSE:      p.parseBooleanLiteral,
		lexer.NULL:       p.parseNullLiteral,
		lexer.SELF:       p.parseSelf,
		lexer.DOLLAR:     p.parseDollar,
		lexer.SUPER:      p.parseSuper,
		lexer.MINUS:      p.parseUnaryExpression,
		lexer.PLUS:       p.parseUnaryExpression,
		lexer.BANG:       p.parseUnaryExpression,
		lexer.TILDE:      p.parseUnaryExpression,
		lexer.LPAREN:     p.parseGroupedExpression,
		lexer.LBRACKET:   p.parseArray,
		lexer.LBRACE:     p.parseObject,
		lexer.IF:         p.parseConditional,
		lexer.FUNCTION:   p.parseFunctionLiteral,
		lexer.LOCAL:      p.parseLocal,
		lexer.ERROR:      p.parseError,
		lexer.ASSERT:     p.parseAssert,
		lexer.IMPORT:     p.parseImport,
		lexer.IMPORTSTR:  p.parseImport,
		lexer.IMPORTBIN:  p.parseImport,
	}

	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.PLUS:     p.parseBinaryExpression,
		lexer.MINUS:    p.parseBinaryExpression,
		lexer.STAR:     p.parseBinaryExpression,
		lexer.SLASH:    p.parseBinaryExpression,
		lexer.PERCENT:  p.parseBinaryExpression,
		lexer.EQ:       p.parseBinaryExpression,
		lexer.NOT_EQ:   p.parseBinaryExpression,
		lexer.LT:       p.parseBinaryExpression,
		lexer.GT:       p.parseBinaryExpression,
		lexer.LTE:      p.parseBinaryExpression,
		lexer.GTE:      p.parseBinaryExpression,
		lexer.AND:      p.parseBinaryExpression,
		lexer.OR:       p.parseBinaryExpression,
		lexer.AMP:      p.parseBinaryExpression,
		lexer.PIPE:     p.parseBinaryExpression,
		lexer.CARET:    p.parseBinaryExpression,
		lexer.SHIFT_L:  p.parseBinaryExpression,
		lexer.SHIFT_R:  p.parseBinaryExpression,
		lexer.IN:       p.parseInExpression,
		lexer.LPAREN:   p.parseCallExpression,
		lexer.LBRACKET: p.parseIndexExpression,
		lexer.DOT:      p.parseFieldAccess,
		lexer.LBRACE:   p.parseApplyBrace,
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete program: one expression followed by EOF.
func (p *Parser) Parse() (ast.Expression, *errors.SorrelError) {
	expr := p.parseExpression(LOWEST)
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if p.peekToken.Type != lexer.EOF {
		p.peekError(lexer.EOF)
		return nil, p.errors[0]
	}
	return expr, nil
}

// Errors returns every error recorded while parsing.
func (p *Parser) Errors() []*errors.SorrelError {
	return p.errors
}

// ParseSnippet is a convenience for parsing one named source string.
func ParseSnippet(filename, input string) (ast.Expression, *errors.SorrelError) {
	return New(lexer.NewWithFilename(input, filename)).Parse()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if p.peekToken.Type == lexer.ILLEGAL {
		// An ILLEGAL token's literal is the lexer's message, not source text.
		tok := p.peekToken
		err := errors.NewAt("PARSE-0002", tok.File, tok.Line, tok.Column, nil)
		err.Message = tok.Literal
		p.errors = append(p.errors, err)
	}
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.errorAt(p.peekToken, "PARSE-0001", map[string]any{
		"Expected": t.String(),
		"Got":      p.peekToken.Literal,
	})
}

func (p *Parser) errorAt(tok lexer.Token, code string, data map[string]any) {
	p.errors = append(p.errors, errors.NewAt(code, tok.File, tok.Line, tok.Column, data))
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ============================================================================
// Expression parsing core
// ============================================================================

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorAt(p.curToken, "PARSE-0002", map[string]any{"Token": p.curToken.Literal})
		return nil
	}
	left := prefix()

	for left != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

// ============================================================================
// Prefix parsers
// ============================================================================

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorAt(p.curToken, "PARSE-0004", map[string]any{"Literal": p.curToken.Literal})
		return nil
	}
	return &ast.NumberLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseSelf() ast.Expression {
	return &ast.Self{Token: p.curToken}
}

func (p *Parser) parseDollar() ast.Expression {
	return &ast.Dollar{Token: p.curToken}
}

// parseSuper handles 'super.f' and 'super[e]'; bare 'super' is an error.
func (p *Parser) parseSuper() ast.Expression {
	tok := p.curToken
	switch p.peekToken.Type {
	case lexer.DOT:
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		return &ast.SuperIndex{Token: tok, Index: &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}}
	case lexer.LBRACKET:
		p.nextToken()
		p.nextToken()
		index := p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		return &ast.SuperIndex{Token: tok, Index: index}
	default:
		p.errorAt(tok, "PARSE-0008", map[string]any{"Construct": "standalone super"})
		return nil
	}
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	expr := &ast.UnaryExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(UNARY)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseConditional() ast.Expression {
	expr := &ast.ConditionalExpression{Token: p.curToken}
	p.nextToken()
	expr.Cond = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.THEN) {
		return nil
	}
	p.nextToken()
	expr.Then = p.parseExpression(LOWEST)
	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()
		p.nextToken()
		expr.Else = p.parseExpression(LOWEST)
	}
	return expr
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	fl := &ast.FunctionLiteral{Token: p.curToken}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	params, ok := p.parseParameters()
	if !ok {
		return nil
	}
	fl.Params = params
	p.nextToken()
	fl.Body = p.parseExpression(LOWEST)
	return fl
}

// parseParameters parses '(a, b=default, ...)'; curToken must be LPAREN
// on entry and is RPAREN on successful exit.
func (p *Parser) parseParameters() ([]ast.Parameter, bool) {
	var params []ast.Parameter
	seen := map[string]bool{}
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return params, true
	}
	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil, false
		}
		param := ast.Parameter{Name: p.curToken.Literal}
		if seen[param.Name] {
			p.errorAt(p.curToken, "UNDEF-0004", map[string]any{"Name": param.Name})
			return nil, false
		}
		seen[param.Name] = true
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			param.Default = p.parseExpression(LOWEST)
		}
		params = append(params, param)
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			if p.peekTokenIs(lexer.RPAREN) { // trailing comma
				p.nextToken()
				return params, true
			}
			continue
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil, false
		}
		return params, true
	}
}

// parseLocal parses 'local x = e, f(a) = e2; body'.
func (p *Parser) parseLocal() ast.Expression {
	le := &ast.LocalExpression{Token: p.curToken}
	seen := map[string]bool{}
	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		bind := ast.LocalBind{Token: p.curToken, Name: p.curToken.Literal}
		if seen[bind.Name] {
			p.errorAt(p.curToken, "UNDEF-0004", map[string]any{"Name": bind.Name})
			return nil
		}
		seen[bind.Name] = true

		if p.peekTokenIs(lexer.LPAREN) {
			// Function sugar: local f(x) = body
			fnTok := p.curToken
			p.nextToken()
			params, ok := p.parseParameters()
			if !ok {
				return nil
			}
			if !p.expectPeek(lexer.ASSIGN) {
				return nil
			}
			p.nextToken()
			body := p.parseExpression(LOWEST)
			bind.Value = &ast.FunctionLiteral{Token: fnTok, Params: params, Body: body}
		} else {
			if !p.expectPeek(lexer.ASSIGN) {
				return nil
			}
			p.nextToken()
			bind.Value = p.parseExpression(LOWEST)
		}
		le.Binds = append(le.Binds, bind)

		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	p.nextToken()
	le.Body = p.parseExpression(LOWEST)
	return le
}

func (p *Parser) parseError() ast.Expression {
	ee := &ast.ErrorExpression{Token: p.curToken}
	p.nextToken()
	ee.Expr = p.parseExpression(LOWEST)
	return ee
}

func (p *Parser) parseAssert() ast.Expression {
	ae := &ast.AssertExpression{Token: p.curToken}
	p.nextToken()
	ae.Cond = p.parseExpression(LOWEST)
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		ae.Message = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	p.nextToken()
	ae.Rest = p.parseExpression(LOWEST)
	return ae
}

func (p *Parser) parseImport() ast.Expression {
	ie := &ast.ImportExpression{Token: p.curToken}
	switch p.curToken.Type {
	case lexer.IMPORTSTR:
		ie.Kind = ast.ImportStr
	case lexer.IMPORTBIN:
		ie.Kind = ast.ImportBin
	default:
		ie.Kind = ast.ImportCode
	}
	if !p.peekTokenIs(lexer.STRING) && !p.peekTokenIs(lexer.VERBATIM) {
		p.errorAt(p.peekToken, "PARSE-0001", map[string]any{
			"Expected": "STRING",
			"Got":      p.peekToken.Literal,
		})
		return nil
	}
	p.nextToken()
	ie.Path = p.curToken.Literal
	return ie
}

// ============================================================================
// Arrays and comprehensions
// ============================================================================

func (p *Parser) parseArray() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(lexer.RBRACKET) {
		p.nextToken()
		return &ast.ArrayLiteral{Token: tok}
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}

	// '[e for x in xs ...]' is a comprehension; the grammar tolerates one
	// comma between the body and the first 'for'.
	sawComma := false
	if p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		sawComma = true
	}
	if p.peekTokenIs(lexer.FOR) {
		specs, ok := p.parseCompSpecs()
		if !ok {
			return nil
		}
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		return &ast.ArrayComprehension{Token: tok, Body: first, Specs: specs}
	}

	elements := []ast.Expression{first}
	for sawComma || p.peekTokenIs(lexer.COMMA) {
		if !sawComma {
			p.nextToken()
		}
		sawComma = false
		if p.peekTokenIs(lexer.RBRACKET) { // trailing comma
			break
		}
		p.nextToken()
		elements = append(elements, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return &ast.ArrayLiteral{Token: tok, Elements: elements}
}

// parseCompSpecs parses 'for x in e (for y in e | if e)*'. On entry the
// peek token is FOR; on exit curToken is the last token of the last spec.
func (p *Parser) parseCompSpecs() ([]ast.CompSpec, bool) {
	var specs []ast.CompSpec
	for {
		switch {
		case p.peekTokenIs(lexer.FOR):
			p.nextToken()
			spec := ast.CompSpec{Token: p.curToken, Kind: ast.CompFor}
			if !p.expectPeek(lexer.IDENT) {
				return nil, false
			}
			spec.Var = p.curToken.Literal
			if !p.expectPeek(lexer.IN) {
				return nil, false
			}
			p.nextToken()
			spec.Expr = p.parseExpression(LOWEST)
			specs = append(specs, spec)
		case p.peekTokenIs(lexer.IF):
			p.nextToken()
			spec := ast.CompSpec{Token: p.curToken, Kind: ast.CompIf}
			p.nextToken()
			spec.Expr = p.parseExpression(LOWEST)
			specs = append(specs, spec)
		default:
			return specs, true
		}
	}
}

// ============================================================================
// Objects
// ============================================================================

// parseObject parses object literals and object comprehensions; curToken
// is LBRACE on entry.
func (p *Parser) parseObject() ast.Expression {
	tok := p.curToken
	obj := &ast.ObjectLiteral{Token: tok}
	seenFields := map[string]bool{}

	for {
		if p.peekTokenIs(lexer.RBRACE) {
			p.nextToken()
			return obj
		}

		switch p.peekToken.Type {
		case lexer.LOCAL:
			p.nextToken()
			bind, ok := p.parseObjectLocal()
			if !ok {
				return nil
			}
			obj.Locals = append(obj.Locals, bind)

		case lexer.ASSERT:
			p.nextToken()
			oa := ast.ObjectAssert{Token: p.curToken}
			p.nextToken()
			oa.Cond = p.parseExpression(LOWEST)
			if p.peekTokenIs(lexer.COLON) {
				p.nextToken()
				p.nextToken()
				oa.Message = p.parseExpression(LOWEST)
			}
			obj.Asserts = append(obj.Asserts, oa)

		default:
			field, ok := p.parseObjectField()
			if !ok {
				return nil
			}
			if field.Kind == ast.FieldFixed {
				if seenFields[field.Name] {
					p.errorAt(field.Token, "UNDEF-0005", map[string]any{"Name": field.Name})
					return nil
				}
				seenFields[field.Name] = true
			}
			obj.Fields = append(obj.Fields, field)

			// A 'for' after the first field turns the literal into an
			// object comprehension.
			if p.peekTokenIs(lexer.FOR) || (p.peekTokenIs(lexer.COMMA) && len(obj.Fields) == 1 && field.Kind == ast.FieldComputed) {
				if p.peekTokenIs(lexer.COMMA) {
					p.nextToken()
				}
				if p.peekTokenIs(lexer.FOR) {
					return p.parseObjectComprehension(tok, obj, field)
				}
				continue
			}
		}

		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(lexer.RBRACE) {
			return nil
		}
		return obj
	}
}

func (p *Parser) parseObjectComprehension(tok lexer.Token, obj *ast.ObjectLiteral, field ast.ObjectField) ast.Expression {
	if field.Kind != ast.FieldComputed {
		p.errorAt(field.Token, "PARSE-0008", map[string]any{"Construct": "object comprehension with a fixed field name"})
		return nil
	}
	if len(obj.Asserts) > 0 {
		p.errorAt(tok, "PARSE-0008", map[string]any{"Construct": "assert inside an object comprehension"})
		return nil
	}
	if field.Hide != ast.VisibleNormal || field.PlusSuper {
		p.errorAt(field.Token, "PARSE-0008", map[string]any{"Construct": "field visibility markers in an object comprehension"})
		return nil
	}
	specs, ok := p.parseCompSpecs()
	if !ok {
		return nil
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return &ast.ObjectComprehension{
		Token:    tok,
		NameExpr: field.NameExpr,
		Value:    field.Value,
		Locals:   obj.Locals,
		Specs:    specs,
	}
}

func (p *Parser) parseObjectLocal() (ast.LocalBind, bool) {
	if !p.expectPeek(lexer.IDENT) {
		return ast.LocalBind{}, false
	}
	bind := ast.LocalBind{Token: p.curToken, Name: p.curToken.Literal}
	if p.peekTokenIs(lexer.LPAREN) {
		fnTok := p.curToken
		p.nextToken()
		params, ok := p.parseParameters()
		if !ok {
			return ast.LocalBind{}, false
		}
		if !p.expectPeek(lexer.ASSIGN) {
			return ast.LocalBind{}, false
		}
		p.nextToken()
		body := p.parseExpression(LOWEST)
		bind.Value = &ast.FunctionLiteral{Token: fnTok, Params: params, Body: body}
		return bind, true
	}
	if !p.expectPeek(lexer.ASSIGN) {
		return ast.LocalBind{}, false
	}
	p.nextToken()
	bind.Value = p.parseExpression(LOWEST)
	return bind, true
}

// parseObjectField parses one field: name, optional method parameters,
// visibility marker, then the value expression.
func (p *Parser) parseObjectField() (ast.ObjectField, bool) {
	field := ast.ObjectField{Token: p.peekToken}

	switch p.peekToken.Type {
	case lexer.IDENT:
		p.nextToken()
		field.Kind = ast.FieldFixed
		field.Name = p.curToken.Literal
	case lexer.STRING, lexer.VERBATIM:
		p.nextToken()
		field.Kind = ast.FieldFixed
		field.Name = p.curToken.Literal
	case lexer.LBRACKET:
		p.nextToken()
		p.nextToken()
		field.Kind = ast.FieldComputed
		field.NameExpr = p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.RBRACKET) {
			return field, false
		}
	default:
		p.errorAt(p.peekToken, "PARSE-0002", map[string]any{"Token": p.peekToken.Literal})
		return field, false
	}

	// Method sugar: f(params): body
	var params []ast.Parameter
	isMethod := false
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		var ok bool
		params, ok = p.parseParameters()
		if !ok {
			return field, false
		}
		isMethod = true
	}

	switch p.peekToken.Type {
	case lexer.COLON:
		field.Hide = ast.VisibleNormal
		p.nextToken()
	case lexer.DOUBLE_COLON:
		field.Hide = ast.VisibleHidden
		p.nextToken()
	case lexer.TRIPLE_COLON:
		field.Hide = ast.VisibleForced
		p.nextToken()
	case lexer.PLUS_COLON:
		field.PlusSuper = true
		p.nextToken()
		// "+::" lexes as PLUS_COLON COLON, "+:::" as PLUS_COLON DOUBLE_COLON.
		switch p.peekToken.Type {
		case lexer.COLON:
			field.Hide = ast.VisibleHidden
			p.nextToken()
		case lexer.DOUBLE_COLON:
			field.Hide = ast.VisibleForced
			p.nextToken()
		default:
			field.Hide = ast.VisibleNormal
		}
	default:
		p.peekError(lexer.COLON)
		return field, false
	}

	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return field, false
	}
	if isMethod {
		if field.PlusSuper {
			p.errorAt(field.Token, "PARSE-0008", map[string]any{"Construct": "+: on a method field"})
			return field, false
		}
		value = &ast.FunctionLiteral{Token: field.Token, Params: params, Body: value}
	}
	field.Value = value
	return field, true
}

// ============================================================================
// Infix parsers
// ============================================================================

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	expr := &ast.BinaryExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Literal,
	}
	precedence := precedences[p.curToken.Type]
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

// parseInExpression handles both 'k in obj' and 'k in super'.
func (p *Parser) parseInExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(lexer.SUPER) {
		p.nextToken()
		return &ast.InSuper{Token: tok, Index: left}
	}
	expr := &ast.BinaryExpression{Token: tok, Left: left, Operator: "in"}
	p.nextToken()
	expr.Right = p.parseExpression(LESSGREATER)
	return expr
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	call := &ast.ApplyExpression{Token: p.curToken, Function: fn}
	sawNamed := false

	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
	} else {
		for {
			p.nextToken()
			arg := ast.Arg{}
			// 'name=' introduces a named argument.
			if p.curTokenIs(lexer.IDENT) && p.peekTokenIs(lexer.ASSIGN) {
				arg.Name = p.curToken.Literal
				p.nextToken()
				p.nextToken()
			}
			arg.Value = p.parseExpression(LOWEST)
			if arg.Name == "" && sawNamed {
				p.errorAt(p.curToken, "ARITY-0005", nil)
				return nil
			}
			if arg.Name != "" {
				sawNamed = true
			}
			call.Args = append(call.Args, arg)
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
				if p.peekTokenIs(lexer.RPAREN) { // trailing comma
					p.nextToken()
					break
				}
				continue
			}
			if !p.expectPeek(lexer.RPAREN) {
				return nil
			}
			break
		}
	}

	if p.peekTokenIs(lexer.TAILSTRICT) {
		p.nextToken()
		call.TailStrict = true
	}
	return call
}

// parseIndexExpression handles a[i], a[i:j], a[i:j:k], and open-ended
// slices like a[:j] and a[i:].
func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	tok := p.curToken

	var start ast.Expression
	if !p.peekTokenIs(lexer.COLON) && !p.peekTokenIs(lexer.DOUBLE_COLON) {
		p.nextToken()
		start = p.parseExpression(LOWEST)
		if p.peekTokenIs(lexer.RBRACKET) {
			p.nextToken()
			return &ast.IndexExpression{Token: tok, Left: left, Index: start}
		}
	}

	slice := &ast.SliceExpression{Token: tok, Left: left, Start: start}
	// "a[i::k]" lexes the double colon as one token.
	if p.peekTokenIs(lexer.DOUBLE_COLON) {
		p.nextToken()
		if !p.peekTokenIs(lexer.RBRACKET) {
			p.nextToken()
			slice.Step = p.parseExpression(LOWEST)
		}
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		return slice
	}
	if !p.expectPeek(lexer.COLON) {
		return nil
	}
	if !p.peekTokenIs(lexer.COLON) && !p.peekTokenIs(lexer.RBRACKET) {
		p.nextToken()
		slice.End = p.parseExpression(LOWEST)
	}
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		if !p.peekTokenIs(lexer.RBRACKET) {
			p.nextToken()
			slice.Step = p.parseExpression(LOWEST)
		}
	}
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return slice
}

func (p *Parser) parseFieldAccess(left ast.Expression) ast.Expression {
	tok := p.curToken
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	return &ast.IndexExpression{
		Token: tok,
		Left:  left,
		Index: &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal},
	}
}

// parseApplyBrace desugars 'e { ... }' into 'e + { ... }'.
func (p *Parser) parseApplyBrace(left ast.Expression) ast.Expression {
	tok := p.curToken
	right := p.parseObject()
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{Token: tok, Left: left, Operator: "+", Right: right}
}
