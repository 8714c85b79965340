package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/errors"
)

type thunkState int

const (
	thunkPending thunkState = iota
	thunkInProgress
	thunkForced
	thunkErrored
)

// Thunk is a deferred computation with memoization. A thunk is forced at
// most once: the first Force evaluates the expression and the result,
// value or error, is replayed on every later Force. Forcing a thunk that
// is already being forced is infinite recursion.
type Thunk struct {
	state thunkState
	expr  ast.Expression
	env   *Environment
	// compute, when set, replaces eval(expr, env). Plus-super field
	// merges, imports and comprehension bindings come through here.
	compute func(in *Interp) (Value, error)
	value   Value
	err     *errors.SorrelError
	// what names the computation in recursion errors, e.g. "variable x"
	what string
}

// NewThunk defers evaluation of expr in env.
func NewThunk(expr ast.Expression, env *Environment, what string) *Thunk {
	return &Thunk{state: thunkPending, expr: expr, env: env, what: what}
}

// ForcedThunk wraps an already computed value. Used for builtin results,
// extVar strings and anywhere laziness has nothing left to defer.
func ForcedThunk(v Value) *Thunk {
	return &Thunk{state: thunkForced, value: v}
}

// errorThunk wraps a known error so forcing replays it.
func errorThunk(err *errors.SorrelError) *Thunk {
	return &Thunk{state: thunkErrored, err: err.Freeze()}
}

// ComputeThunk defers an arbitrary computation with the same memoization
// rules as an expression thunk.
func ComputeThunk(what string, fn func(in *Interp) (Value, error)) *Thunk {
	return &Thunk{state: thunkPending, compute: fn, what: what}
}

// Force evaluates the thunk if needed and returns its value. The result
// is cached: forced thunks return the same Value forever, errored thunks
// replay the same frozen error so cached failures keep their original
// trace.
func (t *Thunk) Force(in *Interp) (Value, error) {
	switch t.state {
	case thunkForced:
		return t.value, nil
	case thunkErrored:
		return nil, t.err
	case thunkInProgress:
		what := t.what
		if what == "" {
			what = "expression"
		}
		var tok locTok
		if t.expr != nil {
			tok = tokLoc(t.expr.Loc())
		}
		return nil, errAt("REC-0002", tok, map[string]any{"What": what})
	}

	t.state = thunkInProgress
	var v Value
	var err error
	if t.compute != nil {
		v, err = t.compute(in)
	} else {
		v, err = in.eval(t.expr, t.env)
	}
	if err != nil {
		se := asSorrelError(err)
		t.state = thunkErrored
		t.err = se.Freeze()
		// The caller gets the live error, with trace frames still
		// accumulating as the failure unwinds. Later forces get the
		// frozen copy.
		return nil, se
	}
	t.state = thunkForced
	t.value = v
	t.expr = nil
	t.env = nil
	t.compute = nil
	return v, nil
}

// asSorrelError wraps stray errors so every failure carries a code and a
// trace. Evaluator internals only produce SorrelErrors; this catches
// anything a native builtin lets slip through.
func asSorrelError(err error) *errors.SorrelError {
	if se, ok := err.(*errors.SorrelError); ok {
		return se
	}
	se := errors.New("RT-0001", map[string]any{"Message": err.Error()})
	return se
}
