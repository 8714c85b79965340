package evaluator

import (
	"sort"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/lexer"
)

// layerField is one field definition inside a single object layer.
type layerField struct {
	tok       lexer.Token
	hide      ast.Visibility
	plusSuper bool
	expr      ast.Expression
	// env overrides the layer's capture scope for this field. Object
	// comprehensions use it to give each generated field its own
	// iteration bindings.
	env      *Environment
	prebuilt *Thunk // builtin objects (std) bypass expression evaluation
}

type layerAssert struct {
	tok     lexer.Token
	cond    ast.Expression
	message ast.Expression // may be nil
}

// objectLayer is one object literal's contribution to a composition
// chain. Layers are immutable after construction; composing objects
// shares layers between results, and all per-composition state (field
// cache, locals, assert status) lives on the root Object instead.
type objectLayer struct {
	fields map[string]layerField
	order  []string // names in source order
	locals []ast.LocalBind
	// captureEnv is the lexical scope the literal appeared in.
	captureEnv *Environment
	asserts    []layerAssert
	// dollarIsSelf marks the outermost literal of its file: its fields
	// bind $ to the chain head instead of an enclosing object.
	dollarIsSelf bool
}

type assertState int

const (
	assertsUnchecked assertState = iota
	assertsChecking
	assertsPassed
	assertsFailed
)

type fieldKey struct {
	layer int
	name  string
}

// Object is a composed object value: a chain of layers, most derived
// first. A root Object (from == 0, root == itself) is what expressions
// produce; views with from > 0 share the root's chain and represent
// 'super'. The field cache is per root, so a field body runs at most
// once per composed object no matter how it is reached.
type Object struct {
	layers []*objectLayer
	from   int
	root   *Object

	// State below is only used on the root.
	cache      map[fieldKey]*Thunk
	localsEnvs map[int]*Environment
	asserts    assertState
	assertErr  *errors.SorrelError
}

func (o *Object) Kind() ValueKind { return OBJECT_VALUE }
func (o *Object) Inspect() string {
	names := o.FieldNames(false)
	return "<object with " + FormatNumber(float64(len(names))) + " visible fields>"
}

func newRootObject(layers []*objectLayer) *Object {
	o := &Object{
		layers:     layers,
		cache:      make(map[fieldKey]*Thunk),
		localsEnvs: make(map[int]*Environment),
	}
	o.root = o
	return o
}

// view returns the object as seen from 'super' of the layer at index i:
// the same chain with the first i+1 layers masked off.
func (o *Object) view(from int) *Object {
	if from >= len(o.root.layers) {
		return nil
	}
	return &Object{layers: o.root.layers, from: from, root: o.root}
}

// Extend composes two objects: fields of b override fields of a, and
// 'super' inside b's field bodies reaches into a. Neither operand is
// modified; both chains are shared into a fresh root with its own cache.
func Extend(a, b *Object) *Object {
	layers := make([]*objectLayer, 0, len(b.root.layers)+len(a.root.layers))
	layers = append(layers, b.root.layers[b.from:]...)
	layers = append(layers, a.root.layers[a.from:]...)
	return newRootObject(layers)
}

// findField locates the most derived definition of name visible to this
// view. Returns the defining layer index into the root chain.
func (o *Object) findField(name string) (int, layerField, bool) {
	for i := o.from; i < len(o.root.layers); i++ {
		if f, ok := o.root.layers[i].fields[name]; ok {
			return i, f, true
		}
	}
	return 0, layerField{}, false
}

// HasField reports whether the view defines name, optionally counting
// hidden fields.
func (o *Object) HasField(name string, includeHidden bool) bool {
	if includeHidden {
		_, _, ok := o.findField(name)
		return ok
	}
	for _, n := range o.FieldNames(false) {
		if n == name {
			return true
		}
	}
	return false
}

// FieldNames returns the visible (or all addressable) field names of the
// view, sorted alphabetically.
func (o *Object) FieldNames(includeHidden bool) []string {
	var names []string
	for name := range o.mergedFields() {
		if includeHidden || o.fieldVisible(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FieldNamesInOrder returns field names in first-definition order,
// oldest layer first. Used when manifestation preserves source order.
func (o *Object) FieldNamesInOrder(includeHidden bool) []string {
	seen := map[string]bool{}
	var names []string
	for i := len(o.root.layers) - 1; i >= o.from; i-- {
		for _, name := range o.root.layers[i].order {
			if !seen[name] {
				seen[name] = true
				if includeHidden || o.fieldVisible(name) {
					names = append(names, name)
				}
			}
		}
	}
	return names
}

func (o *Object) mergedFields() map[string]bool {
	merged := map[string]bool{}
	for i := o.from; i < len(o.root.layers); i++ {
		for name := range o.root.layers[i].fields {
			merged[name] = true
		}
	}
	return merged
}

// fieldVisible resolves effective visibility across the chain. ':'
// defers to an older definition, '::' hides, ':::' forces visible.
func (o *Object) fieldVisible(name string) bool {
	for i := o.from; i < len(o.root.layers); i++ {
		f, ok := o.root.layers[i].fields[name]
		if !ok {
			continue
		}
		switch f.hide {
		case ast.VisibleHidden:
			return false
		case ast.VisibleForced:
			return true
		}
	}
	return true
}

// contextEnv rebinds the object context on top of a capture scope: self
// becomes the chain head, super the layers older than i, and $ either
// the enclosing object or the head itself for an outermost literal.
func (root *Object) contextEnv(i int, capture *Environment) *Environment {
	layer := root.layers[i]
	dollar := capture.dollar
	if layer.dollarIsSelf {
		dollar = root
	}
	return newFieldEnvironment(capture, root, root.view(i+1), dollar)
}

// localsEnv returns the environment shared by all field bodies of layer
// i: the layer's captured scope with self, super and $ rebound, plus the
// layer's object-level locals. Locals are mutually recursive and see the
// same object context as the fields.
func (o *Object) localsEnv(i int) *Environment {
	root := o.root
	if env, ok := root.localsEnvs[i]; ok {
		return env
	}
	layer := root.layers[i]
	env := root.contextEnv(i, layer.captureEnv)
	for _, bind := range layer.locals {
		env.Set(bind.Name, NewThunk(bind.Value, env, "object local "+bind.Name))
	}
	root.localsEnvs[i] = env
	return env
}

// fieldThunk returns the memoized thunk for name as seen from this view,
// running object assertions first. Plus-super fields merge with the next
// older definition via the '+' operator.
func (o *Object) fieldThunk(in *Interp, tok locTok, name string) (*Thunk, error) {
	if err := o.root.checkAsserts(in); err != nil {
		return nil, err
	}
	return o.fieldThunkNoAsserts(in, tok, name)
}

func (o *Object) fieldThunkNoAsserts(in *Interp, tok locTok, name string) (*Thunk, error) {
	i, f, ok := o.findField(name)
	if !ok {
		return nil, errors.NewNoSuchField(name, o.FieldNames(true)).WithLocation(tok.File, tok.Line, tok.Column)
	}
	root := o.root
	key := fieldKey{layer: i, name: name}
	if t, ok := root.cache[key]; ok {
		return t, nil
	}
	var t *Thunk
	switch {
	case f.prebuilt != nil:
		t = f.prebuilt
	case f.plusSuper:
		t = root.plusSuperThunk(i, name, f)
	case f.env != nil:
		env := root.contextEnv(i, f.env)
		for _, bind := range root.layers[i].locals {
			env.Set(bind.Name, NewThunk(bind.Value, env, "object local "+bind.Name))
		}
		t = NewThunk(f.expr, env, "field "+name)
	default:
		t = NewThunk(f.expr, o.localsEnv(i), "field "+name)
	}
	root.cache[key] = t
	return t, nil
}

// plusSuperThunk builds the thunk for a '+:' field: own value combined
// with the super field of the same name when one exists.
func (root *Object) plusSuperThunk(i int, name string, f layerField) *Thunk {
	return ComputeThunk("field "+name, func(in *Interp) (Value, error) {
		env := root.localsEnv(i)
		own, err := in.eval(f.expr, env)
		if err != nil {
			return nil, err
		}
		super := root.view(i + 1)
		if super == nil {
			return own, nil
		}
		if _, _, ok := super.findField(name); !ok {
			return own, nil
		}
		st, err := super.fieldThunkNoAsserts(in, tokLoc(f.tok), name)
		if err != nil {
			return nil, err
		}
		sv, err := st.Force(in)
		if err != nil {
			return nil, err
		}
		return in.binaryOp(tokLoc(f.tok), "+", sv, own)
	})
}

// checkAsserts runs every layer's assertions once per composed object.
// The outcome is cached: later accesses replay a failure with its
// original trace. Re-entry during checking is a no-op so assertions can
// read the object's own fields.
func (root *Object) checkAsserts(in *Interp) error {
	switch root.asserts {
	case assertsPassed, assertsChecking:
		return nil
	case assertsFailed:
		return root.assertErr
	}
	root.asserts = assertsChecking
	for i := len(root.layers) - 1; i >= 0; i-- {
		layer := root.layers[i]
		for _, a := range layer.asserts {
			env := root.localsEnv(i)
			cond, err := in.eval(a.cond, env)
			if err != nil {
				return root.failAsserts(asSorrelError(err))
			}
			b, ok := cond.(*Boolean)
			if !ok {
				return root.failAsserts(errAt("TYPE-0005", tokLoc(a.tok), map[string]any{"Got": describeKind(cond)}))
			}
			if b.Value {
				continue
			}
			data := map[string]any{}
			if a.message != nil {
				mv, err := in.eval(a.message, env)
				if err != nil {
					return root.failAsserts(asSorrelError(err))
				}
				if ms, ok := mv.(*String); ok {
					data["Message"] = ms.Value
				} else {
					data["Message"] = mv.Inspect()
				}
			}
			return root.failAsserts(errAt("ASSERT-0002", tokLoc(a.tok), data))
		}
	}
	root.asserts = assertsPassed
	return nil
}

func (root *Object) failAsserts(err *errors.SorrelError) error {
	root.asserts = assertsFailed
	root.assertErr = err.Freeze()
	return err
}
