// Package ast defines the syntax tree the parser produces and the
// evaluator walks. Every node carries its originating token, which gives
// the evaluator a file/line/column for error traces.
//
// A Sorrel program is a single Expression; there are no statements.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/sambeau/sorrel/pkg/sorrel/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
	Loc() lexer.Token
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// ============================================================================
// Literals
// ============================================================================

// NullLiteral represents 'null'
type NullLiteral struct {
	Token lexer.Token
}

func (n *NullLiteral) expressionNode()      {}
func (n *NullLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NullLiteral) String() string       { return "null" }
func (n *NullLiteral) Loc() lexer.Token     { return n.Token }

// BooleanLiteral represents 'true' and 'false'
type BooleanLiteral struct {
	Token lexer.Token
	Value bool
}

func (b *BooleanLiteral) expressionNode()      {}
func (b *BooleanLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BooleanLiteral) String() string       { return b.Token.Literal }
func (b *BooleanLiteral) Loc() lexer.Token     { return b.Token }

// NumberLiteral represents numbers like 42, 3.14, 1e100
type NumberLiteral struct {
	Token lexer.Token
	Value float64
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) String() string       { return n.Token.Literal }
func (n *NumberLiteral) Loc() lexer.Token     { return n.Token }

// StringLiteral represents quoted, verbatim, and text-block strings. The
// Value holds the decoded content; the original spelling is not preserved.
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (s *StringLiteral) expressionNode()      {}
func (s *StringLiteral) TokenLiteral() string { return s.Token.Literal }
func (s *StringLiteral) String() string       { return strconv.Quote(s.Value) }
func (s *StringLiteral) Loc() lexer.Token     { return s.Token }

// ============================================================================
// Variables and special references
// ============================================================================

// Identifier represents a variable reference
type Identifier struct {
	Token lexer.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }
func (i *Identifier) Loc() lexer.Token     { return i.Token }

// Self represents 'self'
type Self struct {
	Token lexer.Token
}

func (s *Self) expressionNode()      {}
func (s *Self) TokenLiteral() string { return s.Token.Literal }
func (s *Self) String() string       { return "self" }
func (s *Self) Loc() lexer.Token     { return s.Token }

// Dollar represents '$', the outermost enclosing object
type Dollar struct {
	Token lexer.Token
}

func (d *Dollar) expressionNode()      {}
func (d *Dollar) TokenLiteral() string { return d.Token.Literal }
func (d *Dollar) String() string       { return "$" }
func (d *Dollar) Loc() lexer.Token     { return d.Token }

// SuperIndex represents 'super.f' and 'super[e]'
type SuperIndex struct {
	Token lexer.Token
	Index Expression // evaluates to the field name
}

func (s *SuperIndex) expressionNode()      {}
func (s *SuperIndex) TokenLiteral() string { return s.Token.Literal }
func (s *SuperIndex) String() string       { return "super[" + s.Index.String() + "]" }
func (s *SuperIndex) Loc() lexer.Token     { return s.Token }

// InSuper represents 'e in super'
type InSuper struct {
	Token lexer.Token
	Index Expression
}

func (s *InSuper) expressionNode()      {}
func (s *InSuper) TokenLiteral() string { return s.Token.Literal }
func (s *InSuper) String() string       { return "(" + s.Index.String() + " in super)" }
func (s *InSuper) Loc() lexer.Token     { return s.Token }

// ============================================================================
// Operators
// ============================================================================

// UnaryExpression represents -e, +e, !e, ~e
type UnaryExpression struct {
	Token    lexer.Token
	Operator string
	Right    Expression
}

func (u *UnaryExpression) expressionNode()      {}
func (u *UnaryExpression) TokenLiteral() string { return u.Token.Literal }
func (u *UnaryExpression) String() string {
	return "(" + u.Operator + u.Right.String() + ")"
}
func (u *UnaryExpression) Loc() lexer.Token { return u.Token }

// BinaryExpression represents all infix operators, including '+' on
// objects (composition) and '%' on strings (formatting).
type BinaryExpression struct {
	Token    lexer.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (b *BinaryExpression) expressionNode()      {}
func (b *BinaryExpression) TokenLiteral() string { return b.Token.Literal }
func (b *BinaryExpression) String() string {
	return "(" + b.Left.String() + " " + b.Operator + " " + b.Right.String() + ")"
}
func (b *BinaryExpression) Loc() lexer.Token { return b.Token }

// ============================================================================
// Indexing and application
// ============================================================================

// IndexExpression represents e.f and e[i]
type IndexExpression struct {
	Token lexer.Token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}
func (ie *IndexExpression) Loc() lexer.Token { return ie.Token }

// SliceExpression represents e[a:b] and e[a:b:c]; any bound may be nil
type SliceExpression struct {
	Token lexer.Token
	Left  Expression
	Start Expression
	End   Expression
	Step  Expression
}

func (se *SliceExpression) expressionNode()      {}
func (se *SliceExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SliceExpression) String() string {
	str := func(e Expression) string {
		if e == nil {
			return ""
		}
		return e.String()
	}
	return "(" + se.Left.String() + "[" + str(se.Start) + ":" + str(se.End) + ":" + str(se.Step) + "])"
}
func (se *SliceExpression) Loc() lexer.Token { return se.Token }

// Arg is one argument in a call: positional when Name is "".
type Arg struct {
	Name  string
	Value Expression
}

// ApplyExpression represents a function call
type ApplyExpression struct {
	Token      lexer.Token
	Function   Expression
	Args       []Arg
	TailStrict bool
}

func (ae *ApplyExpression) expressionNode()      {}
func (ae *ApplyExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *ApplyExpression) String() string {
	var args []string
	for _, a := range ae.Args {
		if a.Name != "" {
			args = append(args, a.Name+"="+a.Value.String())
		} else {
			args = append(args, a.Value.String())
		}
	}
	out := ae.Function.String() + "(" + strings.Join(args, ", ") + ")"
	if ae.TailStrict {
		out += " tailstrict"
	}
	return out
}
func (ae *ApplyExpression) Loc() lexer.Token { return ae.Token }

// ============================================================================
// Bindings and functions
// ============================================================================

// LocalBind is one binding of a 'local' expression or an object-level local.
type LocalBind struct {
	Token lexer.Token
	Name  string
	Value Expression // function sugar is desugared into a FunctionLiteral
}

// LocalExpression represents 'local x = e, y = f; body'. Binds are
// mutually recursive: each bound expression sees all the binds.
type LocalExpression struct {
	Token lexer.Token
	Binds []LocalBind
	Body  Expression
}

func (le *LocalExpression) expressionNode()      {}
func (le *LocalExpression) TokenLiteral() string { return le.Token.Literal }
func (le *LocalExpression) String() string {
	var binds []string
	for _, b := range le.Binds {
		binds = append(binds, b.Name+" = "+b.Value.String())
	}
	return "local " + strings.Join(binds, ", ") + "; " + le.Body.String()
}
func (le *LocalExpression) Loc() lexer.Token { return le.Token }

// Parameter is one formal parameter, with an optional default expression.
type Parameter struct {
	Name    string
	Default Expression
}

// FunctionLiteral represents 'function(params) body'
type FunctionLiteral struct {
	Token  lexer.Token
	Params []Parameter
	Body   Expression
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FunctionLiteral) String() string {
	var params []string
	for _, p := range fl.Params {
		if p.Default != nil {
			params = append(params, p.Name+"="+p.Default.String())
		} else {
			params = append(params, p.Name)
		}
	}
	return "function(" + strings.Join(params, ", ") + ") " + fl.Body.String()
}
func (fl *FunctionLiteral) Loc() lexer.Token { return fl.Token }

// ============================================================================
// Control flow
// ============================================================================

// ConditionalExpression represents 'if c then t else e'; Else is nil for
// the else-less form, which evaluates to null when the condition is false.
type ConditionalExpression struct {
	Token lexer.Token
	Cond  Expression
	Then  Expression
	Else  Expression
}

func (ce *ConditionalExpression) expressionNode()      {}
func (ce *ConditionalExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ConditionalExpression) String() string {
	out := "if " + ce.Cond.String() + " then " + ce.Then.String()
	if ce.Else != nil {
		out += " else " + ce.Else.String()
	}
	return out
}
func (ce *ConditionalExpression) Loc() lexer.Token { return ce.Token }

// ErrorExpression represents 'error e'
type ErrorExpression struct {
	Token lexer.Token
	Expr  Expression
}

func (ee *ErrorExpression) expressionNode()      {}
func (ee *ErrorExpression) TokenLiteral() string { return ee.Token.Literal }
func (ee *ErrorExpression) String() string       { return "error " + ee.Expr.String() }
func (ee *ErrorExpression) Loc() lexer.Token     { return ee.Token }

// AssertExpression represents 'assert c [: m]; rest'
type AssertExpression struct {
	Token   lexer.Token
	Cond    Expression
	Message Expression // may be nil
	Rest    Expression
}

func (ae *AssertExpression) expressionNode()      {}
func (ae *AssertExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssertExpression) String() string {
	out := "assert " + ae.Cond.String()
	if ae.Message != nil {
		out += " : " + ae.Message.String()
	}
	return out + "; " + ae.Rest.String()
}
func (ae *AssertExpression) Loc() lexer.Token { return ae.Token }

// ============================================================================
// Imports
// ============================================================================

// ImportKind distinguishes the three import forms.
type ImportKind int

const (
	ImportCode ImportKind = iota // import "f.srl": parse and evaluate
	ImportStr                    // importstr "f": file contents as a string
	ImportBin                    // importbin "f": file contents as a byte array
)

func (k ImportKind) String() string {
	switch k {
	case ImportStr:
		return "importstr"
	case ImportBin:
		return "importbin"
	default:
		return "import"
	}
}

// ImportExpression represents import/importstr/importbin with a literal path.
type ImportExpression struct {
	Token lexer.Token
	Kind  ImportKind
	Path  string
}

func (ie *ImportExpression) expressionNode()      {}
func (ie *ImportExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *ImportExpression) String() string {
	return ie.Kind.String() + " " + strconv.Quote(ie.Path)
}
func (ie *ImportExpression) Loc() lexer.Token { return ie.Token }

// ============================================================================
// Arrays
// ============================================================================

// ArrayLiteral represents '[a, b, c]'
type ArrayLiteral struct {
	Token    lexer.Token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) String() string {
	var elems []string
	for _, e := range al.Elements {
		elems = append(elems, e.String())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}
func (al *ArrayLiteral) Loc() lexer.Token { return al.Token }

// CompSpecKind distinguishes 'for x in e' from 'if e' inside comprehensions.
type CompSpecKind int

const (
	CompFor CompSpecKind = iota
	CompIf
)

// CompSpec is one 'for'/'if' clause of a comprehension.
type CompSpec struct {
	Token lexer.Token
	Kind  CompSpecKind
	Var   string     // for CompFor
	Expr  Expression // the array for CompFor, the condition for CompIf
}

func (cs CompSpec) String() string {
	if cs.Kind == CompFor {
		return "for " + cs.Var + " in " + cs.Expr.String()
	}
	return "if " + cs.Expr.String()
}

// ArrayComprehension represents '[body for x in e if c ...]'. The first
// spec is always a CompFor.
type ArrayComprehension struct {
	Token lexer.Token
	Body  Expression
	Specs []CompSpec
}

func (ac *ArrayComprehension) expressionNode()      {}
func (ac *ArrayComprehension) TokenLiteral() string { return ac.Token.Literal }
func (ac *ArrayComprehension) String() string {
	var specs []string
	for _, s := range ac.Specs {
		specs = append(specs, s.String())
	}
	return "[" + ac.Body.String() + " " + strings.Join(specs, " ") + "]"
}
func (ac *ArrayComprehension) Loc() lexer.Token { return ac.Token }

// ============================================================================
// Objects
// ============================================================================

// Visibility is the field marker: ':', '::' or ':::'.
type Visibility int

const (
	VisibleNormal Visibility = iota // ':': manifested unless overridden hidden
	VisibleHidden                   // '::': never manifested, still addressable
	VisibleForced                   // ':::': manifested even over a hidden ancestor
)

func (v Visibility) String() string {
	switch v {
	case VisibleHidden:
		return "::"
	case VisibleForced:
		return ":::"
	default:
		return ":"
	}
}

// ObjectFieldKind distinguishes fixed names from computed '[e]:' names.
type ObjectFieldKind int

const (
	FieldFixed ObjectFieldKind = iota
	FieldComputed
)

// ObjectField is one field of an object literal. Method sugar
// 'f(x): body' is desugared by the parser into a FunctionLiteral value.
type ObjectField struct {
	Token     lexer.Token
	Kind      ObjectFieldKind
	Name      string     // for FieldFixed
	NameExpr  Expression // for FieldComputed
	Hide      Visibility
	PlusSuper bool // '+:': merge with the super field of the same name
	Value     Expression
}

func (f ObjectField) String() string {
	var out bytes.Buffer
	if f.Kind == FieldComputed {
		out.WriteString("[" + f.NameExpr.String() + "]")
	} else {
		out.WriteString(f.Name)
	}
	if f.PlusSuper {
		out.WriteString("+")
	}
	out.WriteString(f.Hide.String() + " " + f.Value.String())
	return out.String()
}

// ObjectAssert is an 'assert c [: m]' clause inside an object literal.
type ObjectAssert struct {
	Token   lexer.Token
	Cond    Expression
	Message Expression // may be nil
}

func (a ObjectAssert) String() string {
	out := "assert " + a.Cond.String()
	if a.Message != nil {
		out += " : " + a.Message.String()
	}
	return out
}

// ObjectLiteral represents '{...}' with fields, object-level locals, and
// assertions.
type ObjectLiteral struct {
	Token   lexer.Token
	Fields  []ObjectField
	Locals  []LocalBind
	Asserts []ObjectAssert
}

func (ol *ObjectLiteral) expressionNode()      {}
func (ol *ObjectLiteral) TokenLiteral() string { return ol.Token.Literal }
func (ol *ObjectLiteral) String() string {
	var members []string
	for _, l := range ol.Locals {
		members = append(members, "local "+l.Name+" = "+l.Value.String())
	}
	for _, a := range ol.Asserts {
		members = append(members, a.String())
	}
	for _, f := range ol.Fields {
		members = append(members, f.String())
	}
	return "{" + strings.Join(members, ", ") + "}"
}
func (ol *ObjectLiteral) Loc() lexer.Token { return ol.Token }

// ObjectComprehension represents '{[k]: v for x in e ...}'. Field names
// are computed eagerly at construction; values stay lazy per iteration.
type ObjectComprehension struct {
	Token    lexer.Token
	NameExpr Expression
	Value    Expression
	Locals   []LocalBind
	Specs    []CompSpec
}

func (oc *ObjectComprehension) expressionNode()      {}
func (oc *ObjectComprehension) TokenLiteral() string { return oc.Token.Literal }
func (oc *ObjectComprehension) String() string {
	var specs []string
	for _, s := range oc.Specs {
		specs = append(specs, s.String())
	}
	return fmt.Sprintf("{[%s]: %s %s}", oc.NameExpr.String(), oc.Value.String(), strings.Join(specs, " "))
}
func (oc *ObjectComprehension) Loc() lexer.Token { return oc.Token }
