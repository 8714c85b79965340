package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/lexer"
)

// ValueKind names the type of a runtime value, as reported by std.type.
type ValueKind string

const (
	NULL_VALUE     ValueKind = "null"
	BOOLEAN_VALUE  ValueKind = "boolean"
	NUMBER_VALUE   ValueKind = "number"
	STRING_VALUE   ValueKind = "string"
	ARRAY_VALUE    ValueKind = "array"
	OBJECT_VALUE   ValueKind = "object"
	FUNCTION_VALUE ValueKind = "function"
)

// Value represents all Sorrel runtime values. Values are immutable once
// produced; laziness lives in the Thunks that wrap them, never in the
// values themselves.
type Value interface {
	Kind() ValueKind
	Inspect() string
}

// Null represents the null value
type Null struct{}

func (n *Null) Kind() ValueKind { return NULL_VALUE }
func (n *Null) Inspect() string { return "null" }

// Boolean represents true and false
type Boolean struct {
	Value bool
}

func (b *Boolean) Kind() ValueKind { return BOOLEAN_VALUE }
func (b *Boolean) Inspect() string { return strconv.FormatBool(b.Value) }

// Number represents all numbers; there is no separate integer kind.
type Number struct {
	Value float64
}

func (n *Number) Kind() ValueKind { return NUMBER_VALUE }
func (n *Number) Inspect() string { return FormatNumber(n.Value) }

// String represents string values
type String struct {
	Value string
}

func (s *String) Kind() ValueKind { return STRING_VALUE }
func (s *String) Inspect() string { return strconv.Quote(s.Value) }

// Array represents array values. Elements are thunks, not values: an
// array can be constructed, measured and sliced without forcing any of
// its elements.
type Array struct {
	Elements []*Thunk
}

func (a *Array) Kind() ValueKind { return ARRAY_VALUE }
func (a *Array) Inspect() string {
	return fmt.Sprintf("<array of %d elements>", len(a.Elements))
}

// NativeFunc is a builtin implemented in Go. Arguments arrive as thunks;
// each builtin decides which of its parameters it forces, so per-parameter
// strictness is the builtin's own behavior. The tok is the call site, for
// error locations and trace output.
type NativeFunc struct {
	Name   string
	Params []string
	// Optional counts trailing parameters that may be left unbound; the
	// builtin sees nil thunks for them and applies its own defaults.
	Optional int
	Fn       func(in *Interp, tok locTok, args []*Thunk) (Value, error)
}

// Function represents both Sorrel closures and native builtins. A closure
// has Body/Env set; a builtin has Native set.
type Function struct {
	Name   string // "" for anonymous functions
	Params []ast.Parameter
	Body   ast.Expression
	Env    *Environment
	Native *NativeFunc
}

func (f *Function) Kind() ValueKind { return FUNCTION_VALUE }
func (f *Function) Inspect() string {
	name := f.FuncName()
	if name == "" {
		name = "anonymous"
	}
	return "<function " + name + ">"
}

// FuncName returns the best available name for error messages.
func (f *Function) FuncName() string {
	if f.Native != nil {
		return f.Native.Name
	}
	return f.Name
}

// parameters returns the formal parameter list, for arity checking.
func (f *Function) parameters() []ast.Parameter {
	if f.Native != nil {
		params := make([]ast.Parameter, len(f.Native.Params))
		for i, name := range f.Native.Params {
			params[i] = ast.Parameter{Name: name}
		}
		return params
	}
	return f.Params
}

// Shared singletons; null and the booleans carry no payload, so one value
// of each is enough for a whole process.
var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBoolToValue(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// FormatNumber renders a float the way Sorrel prints numbers: integers
// without a decimal point, everything else in the shortest round-trip
// form.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e17 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// checkNumberResult guards arithmetic: Sorrel reports overflow and NaN as
// errors instead of letting them propagate into the output.
func checkNumberResult(f float64, tok locTok) (Value, error) {
	if math.IsNaN(f) {
		return nil, errAt("MATH-0003", tok, map[string]any{"Function": "arithmetic", "Got": "NaN"})
	}
	if math.IsInf(f, 0) {
		return nil, errAt("MATH-0002", tok, nil)
	}
	return &Number{Value: f}, nil
}

// describeKind renders a value kind for error messages.
func describeKind(v Value) string {
	return string(v.Kind())
}

// equalValues implements deep structural equality. Both operands are
// forced as far as the comparison needs; mismatching kinds short-circuit
// to false. Comparing functions is an error.
func (in *Interp) equalValues(tok locTok, a, b Value) (bool, error) {
	if a.Kind() == FUNCTION_VALUE || b.Kind() == FUNCTION_VALUE {
		return false, errAt("TYPE-0010", tok, nil)
	}
	if a.Kind() != b.Kind() {
		return false, nil
	}
	switch av := a.(type) {
	case *Null:
		return true, nil
	case *Boolean:
		return av.Value == b.(*Boolean).Value, nil
	case *Number:
		return av.Value == b.(*Number).Value, nil
	case *String:
		return av.Value == b.(*String).Value, nil
	case *Array:
		bv := b.(*Array)
		if len(av.Elements) != len(bv.Elements) {
			return false, nil
		}
		for i := range av.Elements {
			ae, err := av.Elements[i].Force(in)
			if err != nil {
				return false, err
			}
			be, err := bv.Elements[i].Force(in)
			if err != nil {
				return false, err
			}
			eq, err := in.equalValues(tok, ae, be)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *Object:
		bv := b.(*Object)
		aFields := av.FieldNames(false)
		bFields := bv.FieldNames(false)
		if len(aFields) != len(bFields) {
			return false, nil
		}
		for i := range aFields {
			if aFields[i] != bFields[i] {
				return false, nil
			}
		}
		for _, name := range aFields {
			at, err := av.fieldThunk(in, tok, name)
			if err != nil {
				return false, err
			}
			bt, err := bv.fieldThunk(in, tok, name)
			if err != nil {
				return false, err
			}
			afv, err := at.Force(in)
			if err != nil {
				return false, err
			}
			bfv, err := bt.Force(in)
			if err != nil {
				return false, err
			}
			eq, err := in.equalValues(tok, afv, bfv)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	}
	return false, nil
}

// compareValues implements <, returning -1, 0, or 1. Numbers compare by
// IEEE rules, strings bytewise, arrays lexicographically; everything else
// is a type error.
func (in *Interp) compareValues(tok locTok, a, b Value) (int, error) {
	if a.Kind() != b.Kind() {
		return 0, errAt("TYPE-0009", tok, map[string]any{"Left": describeKind(a), "Right": describeKind(b)})
	}
	switch av := a.(type) {
	case *Number:
		bv := b.(*Number).Value
		switch {
		case av.Value < bv:
			return -1, nil
		case av.Value > bv:
			return 1, nil
		}
		return 0, nil
	case *String:
		return strings.Compare(av.Value, b.(*String).Value), nil
	case *Array:
		bv := b.(*Array)
		for i := 0; i < len(av.Elements) && i < len(bv.Elements); i++ {
			ae, err := av.Elements[i].Force(in)
			if err != nil {
				return 0, err
			}
			be, err := bv.Elements[i].Force(in)
			if err != nil {
				return 0, err
			}
			c, err := in.compareValues(tok, ae, be)
			if err != nil || c != 0 {
				return c, err
			}
		}
		switch {
		case len(av.Elements) < len(bv.Elements):
			return -1, nil
		case len(av.Elements) > len(bv.Elements):
			return 1, nil
		}
		return 0, nil
	}
	return 0, errAt("TYPE-0009", tok, map[string]any{"Left": describeKind(a), "Right": describeKind(b)})
}

// locTok is the minimal location info carried around the evaluator.
type locTok struct {
	File   string
	Line   int
	Column int
}

func tokLoc(t lexer.Token) locTok {
	return locTok{File: t.File, Line: t.Line, Column: t.Column}
}

func errAt(code string, tok locTok, data map[string]any) *errors.SorrelError {
	return errors.NewAt(code, tok.File, tok.Line, tok.Column, data)
}
