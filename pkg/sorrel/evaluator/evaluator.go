// Package evaluator implements the Sorrel runtime: a lazy, memoizing
// tree walker. Expressions evaluate to Values; everything that can be
// deferred is wrapped in a Thunk and forced at most once. Object values
// are chains of layers with late-bound self, which is what makes
// override-and-extend configuration work.
//
// An Interp holds all per-session state (stack limit, import cache,
// external variables). It is not safe for concurrent use; run one
// goroutine per Interp.
package evaluator

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/lexer"
	"github.com/sambeau/sorrel/pkg/sorrel/parser"
)

// Logger receives std.trace output and diagnostic prints.
type Logger interface {
	Log(values ...interface{})
	LogLine(values ...interface{})
}

type defaultStderrLogger struct{}

func (l *defaultStderrLogger) Log(values ...interface{})     { fmt.Fprint(os.Stderr, values...) }
func (l *defaultStderrLogger) LogLine(values ...interface{}) { fmt.Fprintln(os.Stderr, values...) }

// DefaultLogger is used when Options.Logger is nil. Trace output goes to
// stderr so it never mixes with manifested output on stdout.
var DefaultLogger Logger = &defaultStderrLogger{}

const (
	DefaultMaxStack = 200
	DefaultMaxTrace = 20
)

// Options configures an Interp. Zero values select the defaults.
type Options struct {
	MaxStack      int
	MaxTrace      int
	Importer      Importer
	Logger        Logger
	PreserveOrder bool
	Indent        int // spaces per JSON indent level; 0 means 3, -1 compact
}

// Interp is one evaluation session. All caches (imports, object field
// memos reachable from its values) are scoped to the session and become
// garbage when the Interp does; the cyclic value graph is reclaimed by
// Go's tracing collector.
type Interp struct {
	maxStack      int
	maxTrace      int
	depth         int
	importer      Importer
	imports       map[string]*importCacheEntry
	extVars       map[string]*Thunk
	tlas          []tlaBinding
	logger        Logger
	preserveOrder bool
	indent        int
	std           *Object
	stdPerFile    map[string]*Object
	natives       map[string]*NativeFunc
}

type tlaBinding struct {
	name  string
	thunk *Thunk
}

// NewInterp creates a session with the given options.
func NewInterp(opts Options) *Interp {
	in := &Interp{
		maxStack:      opts.MaxStack,
		maxTrace:      opts.MaxTrace,
		importer:      opts.Importer,
		imports:       make(map[string]*importCacheEntry),
		extVars:       make(map[string]*Thunk),
		logger:        opts.Logger,
		preserveOrder: opts.PreserveOrder,
		indent:        opts.Indent,
	}
	if in.maxStack <= 0 {
		in.maxStack = DefaultMaxStack
	}
	if in.maxTrace <= 0 {
		in.maxTrace = DefaultMaxTrace
	}
	if in.importer == nil {
		in.importer = &FileImporter{}
	}
	if in.logger == nil {
		in.logger = DefaultLogger
	}
	if in.indent == 0 {
		in.indent = 3
	}
	in.stdPerFile = make(map[string]*Object)
	in.natives = make(map[string]*NativeFunc)
	in.std = in.buildStd()
	return in
}

// RegisterNative adds an embedding-provided builtin, reachable in code
// as std.native("name").
func (in *Interp) RegisterNative(nf *NativeFunc) {
	in.natives[nf.Name] = nf
}

// MaxTrace returns the configured trace length cap, for error rendering.
func (in *Interp) MaxTrace() int { return in.maxTrace }

// StdNames lists every std field, for tab completion.
func (in *Interp) StdNames() []string { return in.std.FieldNames(true) }

// SetExtStr binds an external variable to a plain string.
func (in *Interp) SetExtStr(name, value string) {
	in.extVars[name] = ForcedThunk(&String{Value: value})
}

// SetExtCode binds an external variable to a Sorrel expression, parsed
// now, evaluated lazily on first std.extVar access.
func (in *Interp) SetExtCode(name, code string) error {
	expr, err := parser.ParseSnippet("<extvar:"+name+">", code)
	if err != nil {
		return err
	}
	in.extVars[name] = NewThunk(expr, in.rootEnv(), "external variable "+name)
	return nil
}

// SetTLAStr binds a top-level argument to a plain string.
func (in *Interp) SetTLAStr(name, value string) {
	in.tlas = append(in.tlas, tlaBinding{name: name, thunk: ForcedThunk(&String{Value: value})})
}

// SetTLACode binds a top-level argument to a Sorrel expression.
func (in *Interp) SetTLACode(name, code string) error {
	expr, err := parser.ParseSnippet("<tla:"+name+">", code)
	if err != nil {
		return err
	}
	in.tlas = append(in.tlas, tlaBinding{name: name, thunk: NewThunk(expr, in.rootEnv(), "top-level argument "+name)})
	return nil
}

// rootEnv is the scope every file starts in: just std.
func (in *Interp) rootEnv() *Environment {
	env := NewEnvironment()
	env.Set("std", ForcedThunk(in.std))
	return env
}

// rootEnvFor binds a file-specific std whose thisFile reports the file
// being evaluated.
func (in *Interp) rootEnvFor(filename string) *Environment {
	if filename == "" {
		return in.rootEnv()
	}
	std, ok := in.stdPerFile[filename]
	if !ok {
		std = Extend(in.std, in.thisFileOverlay(filename))
		in.stdPerFile[filename] = std
	}
	env := NewEnvironment()
	env.Set("std", ForcedThunk(std))
	return env
}

// EvaluateSnippet parses and evaluates source against this session. If
// the result is a function and top-level arguments were supplied, the
// function is applied to them.
func (in *Interp) EvaluateSnippet(filename, source string) (Value, error) {
	expr, err := parser.ParseSnippet(filename, source)
	if err != nil {
		return nil, err
	}
	v, evalErr := in.eval(expr, in.rootEnvFor(filename))
	if evalErr != nil {
		return nil, evalErr
	}
	return in.applyTLAs(expr.Loc(), v)
}

// EvaluateFile loads, parses and evaluates a file through the session's
// importer, sharing its cache with import expressions.
func (in *Interp) EvaluateFile(path string) (Value, error) {
	v, err := in.importCode(locTok{File: path}, "", path)
	if err != nil {
		return nil, err
	}
	vv, err := v.Force(in)
	if err != nil {
		return nil, err
	}
	return in.applyTLAs(lexer.Token{File: path, Line: 1, Column: 1}, vv)
}

// applyTLAs calls a top-level function result with the registered
// arguments. A non-function result with no arguments passes through; a
// non-function with arguments is the caller's mistake, reported as such.
func (in *Interp) applyTLAs(tok lexer.Token, v Value) (Value, error) {
	fn, isFn := v.(*Function)
	if !isFn {
		return v, nil
	}
	args := make([]callArg, 0, len(in.tlas))
	for _, tla := range in.tlas {
		args = append(args, callArg{name: tla.name, thunk: tla.thunk})
	}
	// A function with all-default parameters is still applied, so such
	// files run without any flags.
	return in.applyFunction(tokLoc(tok), fn, args)
}

// stackEnter bounds evaluation depth. Every function application and
// field force pays one frame; exceeding the limit is a deterministic
// error, not a crash.
func (in *Interp) stackEnter(tok locTok) error {
	in.depth++
	if in.depth > in.maxStack {
		return errAt("REC-0001", tok, map[string]any{"Max": in.maxStack})
	}
	return nil
}

func (in *Interp) stackLeave() { in.depth-- }

// pushFrame records a trace frame on an unwinding error. Innermost
// frames land first; rendering caps the list at maxTrace.
func pushFrame(err error, desc string, tok locTok) {
	if se, ok := err.(*errors.SorrelError); ok {
		se.PushFrame(errors.Frame{Desc: desc, File: tok.File, Line: tok.Line, Column: tok.Column})
	}
}

// eval is the dispatch loop. Every case either produces a value or an
// error that carries location and, as it unwinds, trace frames.
func (in *Interp) eval(node ast.Expression, env *Environment) (Value, error) {
	switch node := node.(type) {
	case *ast.NullLiteral:
		return NULL, nil
	case *ast.BooleanLiteral:
		return nativeBoolToValue(node.Value), nil
	case *ast.NumberLiteral:
		return &Number{Value: node.Value}, nil
	case *ast.StringLiteral:
		return &String{Value: node.Value}, nil

	case *ast.Identifier:
		return in.evalIdentifier(node, env)
	case *ast.Self:
		if env.self == nil {
			return nil, errAt("TYPE-0012", tokLoc(node.Token), nil)
		}
		return env.self, nil
	case *ast.Dollar:
		if env.dollar == nil {
			return nil, errAt("TYPE-0014", tokLoc(node.Token), nil)
		}
		return env.dollar, nil
	case *ast.SuperIndex:
		return in.evalSuperIndex(node, env)
	case *ast.InSuper:
		return in.evalInSuper(node, env)

	case *ast.UnaryExpression:
		return in.evalUnary(node, env)
	case *ast.BinaryExpression:
		return in.evalBinary(node, env)

	case *ast.IndexExpression:
		return in.evalIndex(node, env)
	case *ast.SliceExpression:
		return in.evalSlice(node, env)
	case *ast.ApplyExpression:
		return in.evalApply(node, env)

	case *ast.LocalExpression:
		return in.evalLocal(node, env)
	case *ast.FunctionLiteral:
		return &Function{Params: node.Params, Body: node.Body, Env: env}, nil

	case *ast.ConditionalExpression:
		return in.evalConditional(node, env)
	case *ast.ErrorExpression:
		return in.evalError(node, env)
	case *ast.AssertExpression:
		return in.evalAssert(node, env)

	case *ast.ImportExpression:
		return in.evalImport(node, env)

	case *ast.ArrayLiteral:
		elements := make([]*Thunk, len(node.Elements))
		for i, e := range node.Elements {
			elements[i] = NewThunk(e, env, "array element")
		}
		return &Array{Elements: elements}, nil
	case *ast.ArrayComprehension:
		return in.evalArrayComprehension(node, env)

	case *ast.ObjectLiteral:
		return in.evalObjectLiteral(node, env)
	case *ast.ObjectComprehension:
		return in.evalObjectComprehension(node, env)
	}
	return nil, errors.New("RT-0001", map[string]any{"Message": "unhandled expression node"})
}

func (in *Interp) evalIdentifier(node *ast.Identifier, env *Environment) (Value, error) {
	t, ok := env.Get(node.Value)
	if !ok {
		return nil, errors.NewUndefinedVariable(node.Value, env.Names()).
			WithLocation(node.Token.File, node.Token.Line, node.Token.Column)
	}
	return t.Force(in)
}

func (in *Interp) evalSuperIndex(node *ast.SuperIndex, env *Environment) (Value, error) {
	if env.super == nil {
		return nil, errAt("TYPE-0013", tokLoc(node.Token), nil)
	}
	idx, err := in.eval(node.Index, env)
	if err != nil {
		return nil, err
	}
	name, ok := idx.(*String)
	if !ok {
		return nil, errAt("TYPE-0006", tokLoc(node.Token), map[string]any{"Got": describeKind(idx)})
	}
	return in.forceField(tokLoc(node.Token), env.super, name.Value)
}

func (in *Interp) evalInSuper(node *ast.InSuper, env *Environment) (Value, error) {
	if env.self == nil {
		return nil, errAt("TYPE-0013", tokLoc(node.Token), nil)
	}
	idx, err := in.eval(node.Index, env)
	if err != nil {
		return nil, err
	}
	name, ok := idx.(*String)
	if !ok {
		return nil, errAt("TYPE-0006", tokLoc(node.Token), map[string]any{"Got": describeKind(idx)})
	}
	// An object with no ancestor has an empty super; membership is
	// simply false there.
	if env.super == nil {
		return FALSE, nil
	}
	return nativeBoolToValue(env.super.HasField(name.Value, true)), nil
}

// forceField resolves and forces a field, adding a trace frame and a
// stack frame for the access.
func (in *Interp) forceField(tok locTok, o *Object, name string) (Value, error) {
	if err := in.stackEnter(tok); err != nil {
		return nil, err
	}
	defer in.stackLeave()
	t, err := o.fieldThunk(in, tok, name)
	if err != nil {
		return nil, err
	}
	v, err := t.Force(in)
	if err != nil {
		pushFrame(err, "field <"+name+">", tok)
		return nil, err
	}
	return v, nil
}

func (in *Interp) evalLocal(node *ast.LocalExpression, env *Environment) (Value, error) {
	inner := NewEnclosedEnvironment(env)
	for _, bind := range node.Binds {
		if _, exists := inner.store[bind.Name]; exists {
			return nil, errAt("UNDEF-0004", tokLoc(bind.Token), map[string]any{"Name": bind.Name})
		}
		inner.Set(bind.Name, NewThunk(bind.Value, inner, "variable "+bind.Name))
	}
	return in.eval(node.Body, inner)
}

func (in *Interp) evalConditional(node *ast.ConditionalExpression, env *Environment) (Value, error) {
	cond, err := in.eval(node.Cond, env)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(*Boolean)
	if !ok {
		return nil, errAt("TYPE-0005", tokLoc(node.Cond.Loc()), map[string]any{"Got": describeKind(cond)})
	}
	if b.Value {
		return in.eval(node.Then, env)
	}
	if node.Else == nil {
		return NULL, nil
	}
	return in.eval(node.Else, env)
}

func (in *Interp) evalError(node *ast.ErrorExpression, env *Environment) (Value, error) {
	v, err := in.eval(node.Expr, env)
	if err != nil {
		return nil, err
	}
	msg := ""
	if s, ok := v.(*String); ok {
		msg = s.Value
	} else {
		rendered, merr := in.manifestJSONString(tokLoc(node.Token), v, -1)
		if merr != nil {
			msg = v.Inspect()
		} else {
			msg = rendered
		}
	}
	return nil, errAt("RT-0001", tokLoc(node.Token), map[string]any{"Message": msg})
}

func (in *Interp) evalAssert(node *ast.AssertExpression, env *Environment) (Value, error) {
	cond, err := in.eval(node.Cond, env)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(*Boolean)
	if !ok {
		return nil, errAt("TYPE-0005", tokLoc(node.Cond.Loc()), map[string]any{"Got": describeKind(cond)})
	}
	if !b.Value {
		data := map[string]any{}
		if node.Message != nil {
			mv, merr := in.eval(node.Message, env)
			if merr != nil {
				return nil, merr
			}
			if ms, ok := mv.(*String); ok {
				data["Message"] = ms.Value
			} else {
				data["Message"] = mv.Inspect()
			}
		}
		return nil, errAt("ASSERT-0001", tokLoc(node.Token), data)
	}
	return in.eval(node.Rest, env)
}

func (in *Interp) evalArrayComprehension(node *ast.ArrayComprehension, env *Environment) (Value, error) {
	var elements []*Thunk
	err := in.expandCompSpecs(node.Specs, env, func(iterEnv *Environment) error {
		elements = append(elements, NewThunk(node.Body, iterEnv, "array element"))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Array{Elements: elements}, nil
}

// expandCompSpecs drives comprehension iteration. The iterated arrays
// are forced now; emit is called once per surviving binding combination
// with a scope holding the loop variables. Bodies stay lazy, each
// wrapped over its own iteration scope.
func (in *Interp) expandCompSpecs(specs []ast.CompSpec, env *Environment, emit func(*Environment) error) error {
	if len(specs) == 0 {
		return emit(env)
	}
	spec := specs[0]
	rest := specs[1:]
	switch spec.Kind {
	case ast.CompFor:
		coll, err := in.eval(spec.Expr, env)
		if err != nil {
			return err
		}
		arr, ok := coll.(*Array)
		if !ok {
			return errAt("TYPE-0011", tokLoc(spec.Token), map[string]any{"Got": describeKind(coll)})
		}
		for _, el := range arr.Elements {
			iterEnv := NewEnclosedEnvironment(env)
			iterEnv.Set(spec.Var, el)
			if err := in.expandCompSpecs(rest, iterEnv, emit); err != nil {
				return err
			}
		}
		return nil
	default: // ast.CompIf
		cond, err := in.eval(spec.Expr, env)
		if err != nil {
			return err
		}
		b, ok := cond.(*Boolean)
		if !ok {
			return errAt("TYPE-0005", tokLoc(spec.Token), map[string]any{"Got": describeKind(cond)})
		}
		if !b.Value {
			return nil
		}
		return in.expandCompSpecs(rest, env, emit)
	}
}

func (in *Interp) evalObjectLiteral(node *ast.ObjectLiteral, env *Environment) (Value, error) {
	layer := &objectLayer{
		fields:       make(map[string]layerField, len(node.Fields)),
		locals:       node.Locals,
		captureEnv:   env,
		dollarIsSelf: env.dollar == nil,
	}
	for _, a := range node.Asserts {
		layer.asserts = append(layer.asserts, layerAssert{tok: a.Token, cond: a.Cond, message: a.Message})
	}
	for _, f := range node.Fields {
		name := f.Name
		if f.Kind == ast.FieldComputed {
			// Computed names are eager: duplicates must surface at
			// construction, and a null key drops the field.
			nv, err := in.eval(f.NameExpr, env)
			if err != nil {
				return nil, err
			}
			if nv == NULL {
				continue
			}
			ns, ok := nv.(*String)
			if !ok {
				return nil, errAt("TYPE-0006", tokLoc(f.Token), map[string]any{"Got": describeKind(nv)})
			}
			name = ns.Value
		}
		if _, dup := layer.fields[name]; dup {
			return nil, errAt("UNDEF-0005", tokLoc(f.Token), map[string]any{"Name": name})
		}
		layer.fields[name] = layerField{
			tok:       f.Token,
			hide:      f.Hide,
			plusSuper: f.PlusSuper,
			expr:      f.Value,
		}
		layer.order = append(layer.order, name)
	}
	return newRootObject([]*objectLayer{layer}), nil
}

func (in *Interp) evalObjectComprehension(node *ast.ObjectComprehension, env *Environment) (Value, error) {
	layer := &objectLayer{
		fields:       make(map[string]layerField),
		locals:       node.Locals,
		captureEnv:   env,
		dollarIsSelf: env.dollar == nil,
	}
	err := in.expandCompSpecs(node.Specs, env, func(iterEnv *Environment) error {
		nv, err := in.eval(node.NameExpr, iterEnv)
		if err != nil {
			return err
		}
		if nv == NULL {
			return nil
		}
		ns, ok := nv.(*String)
		if !ok {
			return errAt("TYPE-0006", tokLoc(node.Token), map[string]any{"Got": describeKind(nv)})
		}
		if _, dup := layer.fields[ns.Value]; dup {
			return errAt("UNDEF-0005", tokLoc(node.Token), map[string]any{"Name": ns.Value})
		}
		layer.fields[ns.Value] = layerField{
			tok:  node.Token,
			hide: ast.VisibleNormal,
			expr: node.Value,
			env:  iterEnv,
		}
		layer.order = append(layer.order, ns.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newRootObject([]*objectLayer{layer}), nil
}

// Trace logs a message through the session logger. Backs std.trace.
func (in *Interp) Trace(tok locTok, msg string) {
	where := tok.File
	if where == "" {
		where = "<trace>"
	}
	in.logger.LogLine("TRACE: " + where + ":" + strconv.Itoa(tok.Line) + " " + msg)
}
