package evaluator

import (
	"math"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
)

func (in *Interp) evalUnary(node *ast.UnaryExpression, env *Environment) (Value, error) {
	right, err := in.eval(node.Right, env)
	if err != nil {
		return nil, err
	}
	tok := tokLoc(node.Token)
	switch node.Operator {
	case "-":
		n, ok := right.(*Number)
		if !ok {
			return nil, errAt("TYPE-0001", tok, map[string]any{"Operator": "-", "Got": describeKind(right)})
		}
		return &Number{Value: -n.Value}, nil
	case "+":
		n, ok := right.(*Number)
		if !ok {
			return nil, errAt("TYPE-0001", tok, map[string]any{"Operator": "+", "Got": describeKind(right)})
		}
		return n, nil
	case "!":
		b, ok := right.(*Boolean)
		if !ok {
			return nil, errAt("TYPE-0001", tok, map[string]any{"Operator": "!", "Got": describeKind(right)})
		}
		return nativeBoolToValue(!b.Value), nil
	case "~":
		n, ok := right.(*Number)
		if !ok {
			return nil, errAt("TYPE-0001", tok, map[string]any{"Operator": "~", "Got": describeKind(right)})
		}
		return &Number{Value: float64(^int64(n.Value))}, nil
	}
	return nil, errAt("TYPE-0001", tok, map[string]any{"Operator": node.Operator, "Got": describeKind(right)})
}

func (in *Interp) evalBinary(node *ast.BinaryExpression, env *Environment) (Value, error) {
	tok := tokLoc(node.Token)

	// && and || are lazy in the right operand.
	switch node.Operator {
	case "&&", "||":
		left, err := in.eval(node.Left, env)
		if err != nil {
			return nil, err
		}
		lb, ok := left.(*Boolean)
		if !ok {
			return nil, typeErrBinary(tok, node.Operator, left, left)
		}
		if node.Operator == "&&" && !lb.Value {
			return FALSE, nil
		}
		if node.Operator == "||" && lb.Value {
			return TRUE, nil
		}
		right, err := in.eval(node.Right, env)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(*Boolean)
		if !ok {
			return nil, typeErrBinary(tok, node.Operator, left, right)
		}
		return nativeBoolToValue(rb.Value), nil
	}

	left, err := in.eval(node.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(node.Right, env)
	if err != nil {
		return nil, err
	}
	return in.binaryOp(tok, node.Operator, left, right)
}

func typeErrBinary(tok locTok, op string, l, r Value) error {
	return errAt("TYPE-0002", tok, map[string]any{
		"Left":     describeKind(l),
		"Operator": op,
		"Right":    describeKind(r),
	})
}

// binaryOp applies a strict infix operator to two forced values. It is
// shared by expression evaluation, '+:' field merging and std builtins.
func (in *Interp) binaryOp(tok locTok, op string, left, right Value) (Value, error) {
	switch op {
	case "+":
		return in.addValues(tok, left, right)
	case "-", "*", "/", "%%", "&", "|", "^", "<<", ">>":
		return in.numericOp(tok, op, left, right)
	case "%":
		// '%' doubles as string formatting when the left operand is a
		// string, matching the formatting mini-language.
		if ls, ok := left.(*String); ok {
			return in.formatValues(tok, ls.Value, right)
		}
		return in.numericOp(tok, "%%", left, right)
	case "==":
		eq, err := in.equalValues(tok, left, right)
		if err != nil {
			return nil, err
		}
		return nativeBoolToValue(eq), nil
	case "!=":
		eq, err := in.equalValues(tok, left, right)
		if err != nil {
			return nil, err
		}
		return nativeBoolToValue(!eq), nil
	case "<", "<=", ">", ">=":
		c, err := in.compareValues(tok, left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case "<":
			return nativeBoolToValue(c < 0), nil
		case "<=":
			return nativeBoolToValue(c <= 0), nil
		case ">":
			return nativeBoolToValue(c > 0), nil
		default:
			return nativeBoolToValue(c >= 0), nil
		}
	case "in":
		name, ok := left.(*String)
		if !ok {
			return nil, typeErrBinary(tok, "in", left, right)
		}
		obj, ok := right.(*Object)
		if !ok {
			return nil, typeErrBinary(tok, "in", left, right)
		}
		return nativeBoolToValue(obj.HasField(name.Value, true)), nil
	}
	return nil, typeErrBinary(tok, op, left, right)
}

// addValues implements '+': numeric addition, string concatenation with
// one-sided coercion, array concatenation, and object composition.
func (in *Interp) addValues(tok locTok, left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Number:
		if r, ok := right.(*Number); ok {
			return checkNumberResult(l.Value+r.Value, tok)
		}
		if r, ok := right.(*String); ok {
			return &String{Value: FormatNumber(l.Value) + r.Value}, nil
		}
	case *String:
		switch r := right.(type) {
		case *String:
			return &String{Value: l.Value + r.Value}, nil
		default:
			// string + anything coerces the right side to its display
			// form, so "port: " + 80 just works.
			coerced, err := in.coerceToString(tok, right)
			if err != nil {
				return nil, err
			}
			return &String{Value: l.Value + coerced}, nil
		}
	case *Array:
		if r, ok := right.(*Array); ok {
			elements := make([]*Thunk, 0, len(l.Elements)+len(r.Elements))
			elements = append(elements, l.Elements...)
			elements = append(elements, r.Elements...)
			return &Array{Elements: elements}, nil
		}
	case *Object:
		if r, ok := right.(*Object); ok {
			return Extend(l, r), nil
		}
	}
	if _, ok := right.(*String); ok {
		coerced, err := in.coerceToString(tok, left)
		if err != nil {
			return nil, err
		}
		return &String{Value: coerced + right.(*String).Value}, nil
	}
	return nil, typeErrBinary(tok, "+", left, right)
}

// coerceToString renders a value for '+' with a string: strings pass
// through, everything else manifests as compact JSON.
func (in *Interp) coerceToString(tok locTok, v Value) (string, error) {
	switch v := v.(type) {
	case *String:
		return v.Value, nil
	case *Number:
		return FormatNumber(v.Value), nil
	case *Boolean:
		return v.Inspect(), nil
	case *Null:
		return "null", nil
	}
	return in.manifestJSONString(tok, v, -1)
}

func (in *Interp) numericOp(tok locTok, op string, left, right Value) (Value, error) {
	l, ok := left.(*Number)
	if !ok {
		return nil, typeErrBinary(tok, displayOp(op), left, right)
	}
	r, ok := right.(*Number)
	if !ok {
		return nil, typeErrBinary(tok, displayOp(op), left, right)
	}
	switch op {
	case "-":
		return checkNumberResult(l.Value-r.Value, tok)
	case "*":
		return checkNumberResult(l.Value*r.Value, tok)
	case "/":
		if r.Value == 0 {
			return nil, errAt("MATH-0001", tok, nil)
		}
		return checkNumberResult(l.Value/r.Value, tok)
	case "%%":
		if r.Value == 0 {
			return nil, errAt("MATH-0001", tok, nil)
		}
		return checkNumberResult(math.Mod(l.Value, r.Value), tok)
	case "&":
		return &Number{Value: float64(int64(l.Value) & int64(r.Value))}, nil
	case "|":
		return &Number{Value: float64(int64(l.Value) | int64(r.Value))}, nil
	case "^":
		return &Number{Value: float64(int64(l.Value) ^ int64(r.Value))}, nil
	case "<<":
		return &Number{Value: float64(int64(l.Value) << (uint64(r.Value) & 63))}, nil
	case ">>":
		return &Number{Value: float64(int64(l.Value) >> (uint64(r.Value) & 63))}, nil
	}
	return nil, typeErrBinary(tok, displayOp(op), left, right)
}

// displayOp maps the internal spelling of modulo back to '%'.
func displayOp(op string) string {
	if op == "%%" {
		return "%"
	}
	return op
}

func (in *Interp) evalIndex(node *ast.IndexExpression, env *Environment) (Value, error) {
	left, err := in.eval(node.Left, env)
	if err != nil {
		return nil, err
	}
	tok := tokLoc(node.Token)
	idx, err := in.eval(node.Index, env)
	if err != nil {
		return nil, err
	}
	return in.indexValue(tok, left, idx)
}

// indexValue implements e[i] for objects, arrays and strings.
func (in *Interp) indexValue(tok locTok, left, idx Value) (Value, error) {
	switch l := left.(type) {
	case *Object:
		name, ok := idx.(*String)
		if !ok {
			return nil, errAt("TYPE-0007", tok, map[string]any{"Got": "object", "IndexType": describeKind(idx)})
		}
		return in.forceField(tok, l, name.Value)
	case *Array:
		n, ok := idx.(*Number)
		if !ok {
			return nil, errAt("TYPE-0007", tok, map[string]any{"Got": "array", "IndexType": describeKind(idx)})
		}
		i, err := toIndex(tok, n.Value)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(l.Elements) {
			return nil, errAt("INDEX-0001", tok, map[string]any{"Index": i, "Length": len(l.Elements)})
		}
		return l.Elements[i].Force(in)
	case *String:
		n, ok := idx.(*Number)
		if !ok {
			return nil, errAt("TYPE-0007", tok, map[string]any{"Got": "string", "IndexType": describeKind(idx)})
		}
		i, err := toIndex(tok, n.Value)
		if err != nil {
			return nil, err
		}
		runes := []rune(l.Value)
		if i < 0 || i >= len(runes) {
			return nil, errAt("INDEX-0002", tok, map[string]any{"Index": i, "Length": len(runes)})
		}
		return &String{Value: string(runes[i])}, nil
	}
	return nil, errAt("TYPE-0007", tok, map[string]any{"Got": describeKind(left), "IndexType": describeKind(idx)})
}

func toIndex(tok locTok, f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, errAt("MATH-0004", tok, map[string]any{"Got": FormatNumber(f)})
	}
	return int(f), nil
}

func (in *Interp) evalSlice(node *ast.SliceExpression, env *Environment) (Value, error) {
	left, err := in.eval(node.Left, env)
	if err != nil {
		return nil, err
	}
	tok := tokLoc(node.Token)

	bound := func(e ast.Expression, def int) (int, error) {
		if e == nil {
			return def, nil
		}
		v, err := in.eval(e, env)
		if err != nil {
			return 0, err
		}
		n, ok := v.(*Number)
		if !ok {
			return 0, errAt("MATH-0004", tok, map[string]any{"Got": describeKind(v)})
		}
		return toIndex(tok, n.Value)
	}

	var length int
	var elements []*Thunk
	var runes []rune
	isString := false
	switch l := left.(type) {
	case *Array:
		elements = l.Elements
		length = len(elements)
	case *String:
		isString = true
		runes = []rune(l.Value)
		length = len(runes)
	default:
		return nil, errAt("TYPE-0007", tok, map[string]any{"Got": describeKind(left), "IndexType": "slice"})
	}

	start, err := bound(node.Start, 0)
	if err != nil {
		return nil, err
	}
	end, err := bound(node.End, length)
	if err != nil {
		return nil, err
	}
	step, err := bound(node.Step, 1)
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, errAt("INDEX-0003", tok, map[string]any{"Step": step})
	}

	// Python slice rules: negative bounds count from the end, then
	// everything clamps into range.
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}

	if isString {
		var out []rune
		for i := start; i < end; i += step {
			out = append(out, runes[i])
		}
		return &String{Value: string(out)}, nil
	}
	out := []*Thunk{}
	for i := start; i < end; i += step {
		out = append(out, elements[i])
	}
	return &Array{Elements: out}, nil
}
