package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// stdBuilder accumulates the std object's fields. Every field is hidden
// so std values never leak into manifested output.
type stdBuilder struct {
	fields map[string]layerField
	order  []string
}

func newStdBuilder() *stdBuilder {
	return &stdBuilder{fields: make(map[string]layerField)}
}

func (b *stdBuilder) val(name string, v Value) {
	b.fields[name] = layerField{hide: ast.VisibleHidden, prebuilt: ForcedThunk(v)}
	b.order = append(b.order, name)
}

func (b *stdBuilder) fn(name string, params []string, optional int, fn func(in *Interp, tok locTok, args []*Thunk) (Value, error)) {
	b.val(name, &Function{Native: &NativeFunc{Name: name, Params: params, Optional: optional, Fn: fn}})
}

func (b *stdBuilder) object() *Object {
	layer := &objectLayer{
		fields:     b.fields,
		order:      b.order,
		captureEnv: NewEnvironment(),
	}
	return newRootObject([]*objectLayer{layer})
}

// buildStd assembles the standard library for a session.
func (in *Interp) buildStd() *Object {
	b := newStdBuilder()
	registerTypeFuncs(b)
	registerObjectFuncs(b)
	registerSessionFuncs(b)
	registerArrayFuncs(b)
	registerStringFuncs(b)
	registerMathFuncs(b)
	registerEncodingFuncs(b)
	return b.object()
}

// thisFileOverlay is composed over std per evaluated file.
func (in *Interp) thisFileOverlay(filename string) *Object {
	b := newStdBuilder()
	b.val("thisFile", &String{Value: filename})
	return b.object()
}

// ============================================================================
// Argument helpers
// ============================================================================

func argErr(tok locTok, fname, expected string, got Value) error {
	return errAt("TYPE-0004", tok, map[string]any{
		"Function": "std." + fname, "Expected": expected, "Got": describeKind(got),
	})
}

func argString(in *Interp, tok locTok, fname string, t *Thunk) (string, error) {
	v, err := t.Force(in)
	if err != nil {
		return "", err
	}
	s, ok := v.(*String)
	if !ok {
		return "", argErr(tok, fname, "a string", v)
	}
	return s.Value, nil
}

func argNumber(in *Interp, tok locTok, fname string, t *Thunk) (float64, error) {
	v, err := t.Force(in)
	if err != nil {
		return 0, err
	}
	n, ok := v.(*Number)
	if !ok {
		return 0, argErr(tok, fname, "a number", v)
	}
	return n.Value, nil
}

func argInt(in *Interp, tok locTok, fname string, t *Thunk) (int, error) {
	f, err := argNumber(in, tok, fname, t)
	if err != nil {
		return 0, err
	}
	return toIndex(tok, f)
}

func argBool(in *Interp, tok locTok, fname string, t *Thunk) (bool, error) {
	v, err := t.Force(in)
	if err != nil {
		return false, err
	}
	b, ok := v.(*Boolean)
	if !ok {
		return false, argErr(tok, fname, "a boolean", v)
	}
	return b.Value, nil
}

func argArray(in *Interp, tok locTok, fname string, t *Thunk) (*Array, error) {
	v, err := t.Force(in)
	if err != nil {
		return nil, err
	}
	a, ok := v.(*Array)
	if !ok {
		return nil, argErr(tok, fname, "an array", v)
	}
	return a, nil
}

func argObject(in *Interp, tok locTok, fname string, t *Thunk) (*Object, error) {
	v, err := t.Force(in)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Object)
	if !ok {
		return nil, argErr(tok, fname, "an object", v)
	}
	return o, nil
}

func argFunction(in *Interp, tok locTok, fname string, t *Thunk) (*Function, error) {
	v, err := t.Force(in)
	if err != nil {
		return nil, err
	}
	f, ok := v.(*Function)
	if !ok {
		return nil, argErr(tok, fname, "a function", v)
	}
	return f, nil
}

// call1 and call2 apply a caller-supplied function inside a builtin.
func call1(in *Interp, tok locTok, fn *Function, arg *Thunk) (Value, error) {
	return in.applyFunction(tok, fn, []callArg{{thunk: arg}})
}

func call2(in *Interp, tok locTok, fn *Function, a, b *Thunk) (Value, error) {
	return in.applyFunction(tok, fn, []callArg{{thunk: a}, {thunk: b}})
}

// ============================================================================
// Types and reflection
// ============================================================================

func registerTypeFuncs(b *stdBuilder) {
	b.fn("type", []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		return &String{Value: string(v.Kind())}, nil
	})

	b.fn("length", []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case *String:
			return &Number{Value: float64(len([]rune(v.Value)))}, nil
		case *Array:
			return &Number{Value: float64(len(v.Elements))}, nil
		case *Object:
			return &Number{Value: float64(len(v.FieldNames(false)))}, nil
		case *Function:
			return &Number{Value: float64(len(v.parameters()))}, nil
		}
		return nil, argErr(tok, "length", "a string, an array, an object or a function", v)
	})

	isKind := func(name string, kind ValueKind) {
		b.fn(name, []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			v, err := args[0].Force(in)
			if err != nil {
				return nil, err
			}
			return nativeBoolToValue(v.Kind() == kind), nil
		})
	}
	isKind("isString", STRING_VALUE)
	isKind("isNumber", NUMBER_VALUE)
	isKind("isBoolean", BOOLEAN_VALUE)
	isKind("isObject", OBJECT_VALUE)
	isKind("isArray", ARRAY_VALUE)
	isKind("isFunction", FUNCTION_VALUE)

	b.fn("codepoint", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "codepoint", args[0])
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		if len(runes) != 1 {
			return nil, errAt("TYPE-0004", tok, map[string]any{
				"Function": "std.codepoint", "Expected": "a single character", "Got": "a string of length " + FormatNumber(float64(len(runes))),
			})
		}
		return &Number{Value: float64(runes[0])}, nil
	})

	b.fn("char", []string{"n"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		n, err := argInt(in, tok, "char", args[0])
		if err != nil {
			return nil, err
		}
		return &String{Value: string(rune(n))}, nil
	})

	b.fn("primitiveEquals", []string{"a", "b"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		a, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		bv, err := args[1].Force(in)
		if err != nil {
			return nil, err
		}
		if a.Kind() != bv.Kind() {
			return FALSE, nil
		}
		switch a.Kind() {
		case NULL_VALUE:
			return TRUE, nil
		case BOOLEAN_VALUE:
			return nativeBoolToValue(a.(*Boolean).Value == bv.(*Boolean).Value), nil
		case NUMBER_VALUE:
			return nativeBoolToValue(a.(*Number).Value == bv.(*Number).Value), nil
		case STRING_VALUE:
			return nativeBoolToValue(a.(*String).Value == bv.(*String).Value), nil
		}
		return nil, errAt("RT-0001", tok, map[string]any{
			"Message": "std.primitiveEquals operates on primitives, got " + describeKind(a),
		})
	})

	b.fn("equals", []string{"a", "b"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		a, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		bv, err := args[1].Force(in)
		if err != nil {
			return nil, err
		}
		eq, err := in.equalValues(tok, a, bv)
		if err != nil {
			return nil, err
		}
		return nativeBoolToValue(eq), nil
	})

	b.fn("assertEqual", []string{"a", "b"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		a, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		bv, err := args[1].Force(in)
		if err != nil {
			return nil, err
		}
		eq, err := in.equalValues(tok, a, bv)
		if err != nil {
			return nil, err
		}
		if !eq {
			av, _ := in.manifestJSONString(tok, a, -1)
			bb, _ := in.manifestJSONString(tok, bv, -1)
			return nil, errAt("ASSERT-0003", tok, map[string]any{
				"Message": "assertEqual: " + av + " != " + bb,
			})
		}
		return TRUE, nil
	})
}

// ============================================================================
// Object functions
// ============================================================================

func registerObjectFuncs(b *stdBuilder) {
	fieldNames := func(name string, includeHidden bool) {
		b.fn(name, []string{"o"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			o, err := argObject(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			names := o.FieldNames(includeHidden)
			elements := make([]*Thunk, len(names))
			for i, n := range names {
				elements[i] = ForcedThunk(&String{Value: n})
			}
			return &Array{Elements: elements}, nil
		})
	}
	fieldNames("objectFields", false)
	fieldNames("objectFieldsAll", true)

	hasField := func(name string, includeHidden bool) {
		b.fn(name, []string{"o", "f"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			o, err := argObject(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			f, err := argString(in, tok, name, args[1])
			if err != nil {
				return nil, err
			}
			return nativeBoolToValue(o.HasField(f, includeHidden)), nil
		})
	}
	hasField("objectHas", false)
	hasField("objectHasAll", true)

	b.fn("objectValues", []string{"o"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		o, err := argObject(in, tok, "objectValues", args[0])
		if err != nil {
			return nil, err
		}
		names := o.FieldNames(false)
		elements := make([]*Thunk, 0, len(names))
		for _, n := range names {
			t, err := o.fieldThunk(in, tok, n)
			if err != nil {
				return nil, err
			}
			elements = append(elements, t)
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("get", []string{"o", "f", "default", "inc_hidden"}, 2, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		o, err := argObject(in, tok, "get", args[0])
		if err != nil {
			return nil, err
		}
		f, err := argString(in, tok, "get", args[1])
		if err != nil {
			return nil, err
		}
		includeHidden := true
		if args[3] != nil {
			includeHidden, err = argBool(in, tok, "get", args[3])
			if err != nil {
				return nil, err
			}
		}
		if !o.HasField(f, includeHidden) {
			if args[2] != nil {
				return args[2].Force(in)
			}
			return NULL, nil
		}
		return in.forceField(tok, o, f)
	})

	b.fn("prune", []string{"a"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		return in.pruneValue(tok, v)
	})
}

// pruneValue drops null fields and elements, and empty arrays and
// objects, recursively.
func (in *Interp) pruneValue(tok locTok, v Value) (Value, error) {
	switch v := v.(type) {
	case *Array:
		var elements []*Thunk
		for _, el := range v.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			pv, err := in.pruneValue(tok, ev)
			if err != nil {
				return nil, err
			}
			if prunable(pv) {
				continue
			}
			elements = append(elements, ForcedThunk(pv))
		}
		if elements == nil {
			elements = []*Thunk{}
		}
		return &Array{Elements: elements}, nil
	case *Object:
		b := newStdBuilder()
		for _, name := range v.FieldNames(false) {
			fv, err := in.forceField(tok, v, name)
			if err != nil {
				return nil, err
			}
			pv, err := in.pruneValue(tok, fv)
			if err != nil {
				return nil, err
			}
			if prunable(pv) {
				continue
			}
			b.fields[name] = layerField{hide: ast.VisibleNormal, prebuilt: ForcedThunk(pv)}
			b.order = append(b.order, name)
		}
		return b.object(), nil
	}
	return v, nil
}

func prunable(v Value) bool {
	switch v := v.(type) {
	case *Null:
		return true
	case *Array:
		return len(v.Elements) == 0
	case *Object:
		return len(v.FieldNames(false)) == 0
	}
	return false
}

// ============================================================================
// Session functions
// ============================================================================

func registerSessionFuncs(b *stdBuilder) {
	b.fn("extVar", []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		name, err := argString(in, tok, "extVar", args[0])
		if err != nil {
			return nil, err
		}
		t, ok := in.extVars[name]
		if !ok {
			return nil, errAt("UNDEF-0003", tok, map[string]any{"Name": name})
		}
		return t.Force(in)
	})

	// Files compose thisFile over this default, so only code evaluated
	// outside any file sees it.
	b.val("thisFile", &String{Value: ""})

	b.fn("trace", []string{"str", "rest"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		msg, err := argString(in, tok, "trace", args[0])
		if err != nil {
			return nil, err
		}
		in.Trace(tok, msg)
		return args[1].Force(in)
	})

	b.fn("native", []string{"name"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		name, err := argString(in, tok, "native", args[0])
		if err != nil {
			return nil, err
		}
		nf, ok := in.natives[name]
		if !ok {
			return nil, errors.NewAt("RT-0002", tok.File, tok.Line, tok.Column, map[string]any{
				"Name": name, "Reason": "not registered",
			})
		}
		return &Function{Native: nf}, nil
	})
}
