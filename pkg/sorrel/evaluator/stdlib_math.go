package evaluator

import (
	"math"
)

func registerMathFuncs(b *stdBuilder) {
	b.val("pi", &Number{Value: math.Pi})

	unary := func(name string, fn func(float64) float64) {
		b.fn(name, []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			x, err := argNumber(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			r := fn(x)
			if math.IsNaN(r) {
				return nil, errAt("MATH-0003", tok, map[string]any{
					"Function": "std." + name, "Got": FormatNumber(x),
				})
			}
			if math.IsInf(r, 0) {
				return nil, errAt("MATH-0002", tok, nil)
			}
			return &Number{Value: r}, nil
		})
	}
	unary("abs", math.Abs)
	unary("exp", math.Exp)
	unary("log", math.Log)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("sqrt", math.Sqrt)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("atan", math.Atan)
	unary("round", math.Round)
	unary("sign", func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	})

	binary := func(name string, fn func(a, b float64) float64) {
		b.fn(name, []string{"a", "b"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			a, err := argNumber(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			bv, err := argNumber(in, tok, name, args[1])
			if err != nil {
				return nil, err
			}
			return checkNumberResult(fn(a, bv), tok)
		})
	}
	binary("max", math.Max)
	binary("min", math.Min)
	binary("pow", math.Pow)

	b.fn("mod", []string{"a", "b"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		a, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		bv, err := args[1].Force(in)
		if err != nil {
			return nil, err
		}
		// std.mod mirrors the '%' operator, string formatting included.
		return in.binaryOp(tok, "%", a, bv)
	})

	b.fn("clamp", []string{"x", "minVal", "maxVal"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		x, err := argNumber(in, tok, "clamp", args[0])
		if err != nil {
			return nil, err
		}
		lo, err := argNumber(in, tok, "clamp", args[1])
		if err != nil {
			return nil, err
		}
		hi, err := argNumber(in, tok, "clamp", args[2])
		if err != nil {
			return nil, err
		}
		return &Number{Value: math.Min(math.Max(x, lo), hi)}, nil
	})

	b.fn("exponent", []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		x, err := argNumber(in, tok, "exponent", args[0])
		if err != nil {
			return nil, err
		}
		_, exp := math.Frexp(x)
		return &Number{Value: float64(exp)}, nil
	})

	b.fn("mantissa", []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		x, err := argNumber(in, tok, "mantissa", args[0])
		if err != nil {
			return nil, err
		}
		frac, _ := math.Frexp(x)
		return &Number{Value: frac}, nil
	})

	intPred := func(name string, pred func(float64) bool) {
		b.fn(name, []string{"x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			x, err := argNumber(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			return nativeBoolToValue(pred(x)), nil
		})
	}
	intPred("isInteger", func(x float64) bool { return x == math.Trunc(x) })
	intPred("isDecimal", func(x float64) bool { return x != math.Trunc(x) })
	intPred("isEven", func(x float64) bool { return math.Mod(math.Trunc(x), 2) == 0 })
	intPred("isOdd", func(x float64) bool { return math.Mod(math.Trunc(x), 2) != 0 })
}
