package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
)

// callArg is one argument at a call site, already wrapped in a thunk.
// Positional arguments have an empty name.
type callArg struct {
	name  string
	thunk *Thunk
}

func (in *Interp) evalApply(node *ast.ApplyExpression, env *Environment) (Value, error) {
	callee, err := in.eval(node.Function, env)
	if err != nil {
		return nil, err
	}
	tok := tokLoc(node.Token)
	fn, ok := callee.(*Function)
	if !ok {
		return nil, errAt("TYPE-0003", tok, map[string]any{"Got": describeKind(callee)})
	}

	args := make([]callArg, len(node.Args))
	for i, a := range node.Args {
		args[i] = callArg{name: a.Name, thunk: NewThunk(a.Value, env, "argument")}
	}
	if node.TailStrict {
		for _, a := range args {
			if _, err := a.thunk.Force(in); err != nil {
				return nil, err
			}
		}
	}
	return in.applyFunction(tok, fn, args)
}

// applyFunction binds arguments to parameters and evaluates the body.
// Binding rules: positionals fill parameters left to right, named
// arguments fill by name, defaults cover the rest. Default expressions
// are evaluated in the call scope, so a default can refer to other
// parameters.
func (in *Interp) applyFunction(tok locTok, fn *Function, args []callArg) (Value, error) {
	params := fn.parameters()
	funcName := fn.FuncName()
	if funcName == "" {
		funcName = "anonymous function"
	}

	paramIndex := make(map[string]int, len(params))
	for i, p := range params {
		paramIndex[p.Name] = i
	}

	bound := make([]*Thunk, len(params))
	positional := 0
	for _, a := range args {
		if a.name == "" {
			if positional >= len(params) {
				return nil, errAt("ARITY-0001", tok, map[string]any{
					"Function": funcName, "Want": len(params), "Got": len(args),
				})
			}
			if bound[positional] != nil {
				return nil, errAt("ARITY-0003", tok, map[string]any{
					"Name": params[positional].Name, "Function": funcName,
				})
			}
			bound[positional] = a.thunk
			positional++
			continue
		}
		i, ok := paramIndex[a.name]
		if !ok {
			return nil, errAt("ARITY-0002", tok, map[string]any{"Name": a.name, "Function": funcName})
		}
		if bound[i] != nil {
			return nil, errAt("ARITY-0003", tok, map[string]any{"Name": a.name, "Function": funcName})
		}
		bound[i] = a.thunk
	}

	if err := in.stackEnter(tok); err != nil {
		return nil, err
	}
	defer in.stackLeave()

	if fn.Native != nil {
		required := len(params) - fn.Native.Optional
		for i, p := range params {
			if bound[i] == nil && i < required {
				return nil, errAt("ARITY-0004", tok, map[string]any{"Name": p.Name, "Function": funcName})
			}
		}
		v, err := fn.Native.Fn(in, tok, bound)
		if err != nil {
			se := asSorrelError(err)
			if se.Line == 0 {
				se = se.WithLocation(tok.File, tok.Line, tok.Column)
			}
			pushFrame(se, "function <"+funcName+">", tok)
			return nil, se
		}
		return v, nil
	}

	callEnv := NewEnclosedEnvironment(fn.Env)
	for i, p := range params {
		switch {
		case bound[i] != nil:
			callEnv.Set(p.Name, bound[i])
		case p.Default != nil:
			callEnv.Set(p.Name, NewThunk(p.Default, callEnv, "parameter "+p.Name))
		default:
			return nil, errAt("ARITY-0004", tok, map[string]any{"Name": p.Name, "Function": funcName})
		}
	}

	v, err := in.eval(fn.Body, callEnv)
	if err != nil {
		pushFrame(err, "function <"+funcName+">", tok)
		return nil, err
	}
	return v, nil
}
