package evaluator

import (
	"sort"
	"strings"
)

func registerArrayFuncs(b *stdBuilder) {
	b.fn("makeArray", []string{"sz", "func"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		sz, err := argInt(in, tok, "makeArray", args[0])
		if err != nil {
			return nil, err
		}
		fn, err := argFunction(in, tok, "makeArray", args[1])
		if err != nil {
			return nil, err
		}
		if sz < 0 {
			sz = 0
		}
		elements := make([]*Thunk, sz)
		for i := 0; i < sz; i++ {
			i := i
			elements[i] = ComputeThunk("array element", func(in *Interp) (Value, error) {
				return call1(in, tok, fn, ForcedThunk(&Number{Value: float64(i)}))
			})
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("range", []string{"from", "to"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		from, err := argInt(in, tok, "range", args[0])
		if err != nil {
			return nil, err
		}
		to, err := argInt(in, tok, "range", args[1])
		if err != nil {
			return nil, err
		}
		var elements []*Thunk
		for i := from; i <= to; i++ {
			elements = append(elements, ForcedThunk(&Number{Value: float64(i)}))
		}
		if elements == nil {
			elements = []*Thunk{}
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("count", []string{"arr", "x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arr, err := argArray(in, tok, "count", args[0])
		if err != nil {
			return nil, err
		}
		x, err := args[1].Force(in)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, el := range arr.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			eq, err := in.equalValues(tok, ev, x)
			if err != nil {
				return nil, err
			}
			if eq {
				count++
			}
		}
		return &Number{Value: float64(count)}, nil
	})

	member := func(name string) {
		b.fn(name, []string{"arr", "x"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			arr, err := argArray(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			x, err := args[1].Force(in)
			if err != nil {
				return nil, err
			}
			for _, el := range arr.Elements {
				ev, err := el.Force(in)
				if err != nil {
					return nil, err
				}
				eq, err := in.equalValues(tok, ev, x)
				if err != nil {
					return nil, err
				}
				if eq {
					return TRUE, nil
				}
			}
			return FALSE, nil
		})
	}
	member("member")
	member("contains")

	b.fn("map", []string{"func", "arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		fn, err := argFunction(in, tok, "map", args[0])
		if err != nil {
			return nil, err
		}
		arr, err := argArray(in, tok, "map", args[1])
		if err != nil {
			return nil, err
		}
		elements := make([]*Thunk, len(arr.Elements))
		for i, el := range arr.Elements {
			el := el
			elements[i] = ComputeThunk("array element", func(in *Interp) (Value, error) {
				return call1(in, tok, fn, el)
			})
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("mapWithIndex", []string{"func", "arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		fn, err := argFunction(in, tok, "mapWithIndex", args[0])
		if err != nil {
			return nil, err
		}
		arr, err := argArray(in, tok, "mapWithIndex", args[1])
		if err != nil {
			return nil, err
		}
		elements := make([]*Thunk, len(arr.Elements))
		for i, el := range arr.Elements {
			i, el := i, el
			elements[i] = ComputeThunk("array element", func(in *Interp) (Value, error) {
				return call2(in, tok, fn, ForcedThunk(&Number{Value: float64(i)}), el)
			})
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("filter", []string{"func", "arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		fn, err := argFunction(in, tok, "filter", args[0])
		if err != nil {
			return nil, err
		}
		arr, err := argArray(in, tok, "filter", args[1])
		if err != nil {
			return nil, err
		}
		elements := []*Thunk{}
		for _, el := range arr.Elements {
			keep, err := call1(in, tok, fn, el)
			if err != nil {
				return nil, err
			}
			kb, ok := keep.(*Boolean)
			if !ok {
				return nil, argErr(tok, "filter", "a boolean from the filter function", keep)
			}
			if kb.Value {
				elements = append(elements, el)
			}
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("filterMap", []string{"filter_func", "map_func", "arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		filterFn, err := argFunction(in, tok, "filterMap", args[0])
		if err != nil {
			return nil, err
		}
		mapFn, err := argFunction(in, tok, "filterMap", args[1])
		if err != nil {
			return nil, err
		}
		arr, err := argArray(in, tok, "filterMap", args[2])
		if err != nil {
			return nil, err
		}
		elements := []*Thunk{}
		for _, el := range arr.Elements {
			keep, err := call1(in, tok, filterFn, el)
			if err != nil {
				return nil, err
			}
			kb, ok := keep.(*Boolean)
			if !ok {
				return nil, argErr(tok, "filterMap", "a boolean from the filter function", keep)
			}
			if !kb.Value {
				continue
			}
			el := el
			elements = append(elements, ComputeThunk("array element", func(in *Interp) (Value, error) {
				return call1(in, tok, mapFn, el)
			}))
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("foldl", []string{"func", "arr", "init"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		fn, err := argFunction(in, tok, "foldl", args[0])
		if err != nil {
			return nil, err
		}
		arr, err := argArray(in, tok, "foldl", args[1])
		if err != nil {
			return nil, err
		}
		acc := args[2]
		for _, el := range arr.Elements {
			v, err := call2(in, tok, fn, acc, el)
			if err != nil {
				return nil, err
			}
			acc = ForcedThunk(v)
		}
		return acc.Force(in)
	})

	b.fn("foldr", []string{"func", "arr", "init"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		fn, err := argFunction(in, tok, "foldr", args[0])
		if err != nil {
			return nil, err
		}
		arr, err := argArray(in, tok, "foldr", args[1])
		if err != nil {
			return nil, err
		}
		acc := args[2]
		for i := len(arr.Elements) - 1; i >= 0; i-- {
			v, err := call2(in, tok, fn, arr.Elements[i], acc)
			if err != nil {
				return nil, err
			}
			acc = ForcedThunk(v)
		}
		return acc.Force(in)
	})

	b.fn("flattenArrays", []string{"arrs"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arrs, err := argArray(in, tok, "flattenArrays", args[0])
		if err != nil {
			return nil, err
		}
		elements := []*Thunk{}
		for _, el := range arrs.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			inner, ok := ev.(*Array)
			if !ok {
				return nil, argErr(tok, "flattenArrays", "an array of arrays", ev)
			}
			elements = append(elements, inner.Elements...)
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("reverse", []string{"arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arr, err := argArray(in, tok, "reverse", args[0])
		if err != nil {
			return nil, err
		}
		elements := make([]*Thunk, len(arr.Elements))
		for i, el := range arr.Elements {
			elements[len(arr.Elements)-1-i] = el
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("sort", []string{"arr", "keyF"}, 1, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		return in.sortArray(tok, "sort", args[0], args[1])
	})

	b.fn("uniq", []string{"arr", "keyF"}, 1, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arr, err := argArray(in, tok, "uniq", args[0])
		if err != nil {
			return nil, err
		}
		keys, err := in.sortKeys(tok, "uniq", arr, args[1])
		if err != nil {
			return nil, err
		}
		return in.uniqAdjacent(tok, arr.Elements, keys)
	})

	b.fn("set", []string{"arr", "keyF"}, 1, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		sorted, err := in.sortArray(tok, "set", args[0], args[1])
		if err != nil {
			return nil, err
		}
		arr := sorted.(*Array)
		keys, err := in.sortKeys(tok, "set", arr, args[1])
		if err != nil {
			return nil, err
		}
		return in.uniqAdjacent(tok, arr.Elements, keys)
	})

	b.fn("setMember", []string{"x", "s", "keyF"}, 1, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argArray(in, tok, "setMember", args[1])
		if err != nil {
			return nil, err
		}
		key, err := in.applyKeyF(tok, args[2], args[0])
		if err != nil {
			return nil, err
		}
		keys, err := in.sortKeys(tok, "setMember", s, args[2])
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			eq, err := in.equalValues(tok, k, key)
			if err != nil {
				return nil, err
			}
			if eq {
				return TRUE, nil
			}
		}
		return FALSE, nil
	})

	// Set operands are sorted unique arrays; results keep that shape.
	setOp := func(name string, keepA func(inB bool) bool, addBNotInA bool) {
		b.fn(name, []string{"a", "b", "keyF"}, 1, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			a, err := argArray(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			bb, err := argArray(in, tok, name, args[1])
			if err != nil {
				return nil, err
			}
			aKeys, err := in.sortKeys(tok, name, a, args[2])
			if err != nil {
				return nil, err
			}
			bKeys, err := in.sortKeys(tok, name, bb, args[2])
			if err != nil {
				return nil, err
			}
			inSet := func(key Value, keys []Value) (bool, error) {
				for _, k := range keys {
					eq, err := in.equalValues(tok, k, key)
					if err != nil || eq {
						return eq, err
					}
				}
				return false, nil
			}
			elements := []*Thunk{}
			keys := []Value{}
			for i, el := range a.Elements {
				inB, err := inSet(aKeys[i], bKeys)
				if err != nil {
					return nil, err
				}
				if keepA(inB) {
					elements = append(elements, el)
					keys = append(keys, aKeys[i])
				}
			}
			if addBNotInA {
				for i, el := range bb.Elements {
					inA, err := inSet(bKeys[i], aKeys)
					if err != nil {
						return nil, err
					}
					if !inA {
						elements = append(elements, el)
						keys = append(keys, bKeys[i])
					}
				}
			}
			sorted, err := in.sortThunks(tok, elements, keys)
			if err != nil {
				return nil, err
			}
			return &Array{Elements: sorted}, nil
		})
	}
	setOp("setUnion", func(inB bool) bool { return true }, true)
	setOp("setInter", func(inB bool) bool { return inB }, false)
	setOp("setDiff", func(inB bool) bool { return !inB }, false)

	b.fn("sum", []string{"arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arr, err := argArray(in, tok, "sum", args[0])
		if err != nil {
			return nil, err
		}
		total := 0.0
		for _, el := range arr.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			n, ok := ev.(*Number)
			if !ok {
				return nil, argErr(tok, "sum", "an array of numbers", ev)
			}
			total += n.Value
		}
		return checkNumberResult(total, tok)
	})

	b.fn("avg", []string{"arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arr, err := argArray(in, tok, "avg", args[0])
		if err != nil {
			return nil, err
		}
		if len(arr.Elements) == 0 {
			return nil, errAt("MATH-0001", tok, nil)
		}
		total := 0.0
		for _, el := range arr.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			n, ok := ev.(*Number)
			if !ok {
				return nil, argErr(tok, "avg", "an array of numbers", ev)
			}
			total += n.Value
		}
		return checkNumberResult(total/float64(len(arr.Elements)), tok)
	})

	b.fn("remove", []string{"arr", "elem"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arr, err := argArray(in, tok, "remove", args[0])
		if err != nil {
			return nil, err
		}
		x, err := args[1].Force(in)
		if err != nil {
			return nil, err
		}
		for i, el := range arr.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			eq, err := in.equalValues(tok, ev, x)
			if err != nil {
				return nil, err
			}
			if eq {
				return removeIndex(arr, i), nil
			}
		}
		return arr, nil
	})

	b.fn("removeAt", []string{"arr", "at"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		arr, err := argArray(in, tok, "removeAt", args[0])
		if err != nil {
			return nil, err
		}
		at, err := argInt(in, tok, "removeAt", args[1])
		if err != nil {
			return nil, err
		}
		if at < 0 || at >= len(arr.Elements) {
			return arr, nil
		}
		return removeIndex(arr, at), nil
	})

	b.fn("slice", []string{"indexable", "index", "end", "step"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		intOrNil := func(t *Thunk) (int, bool, error) {
			iv, err := t.Force(in)
			if err != nil {
				return 0, false, err
			}
			if iv == NULL {
				return 0, false, nil
			}
			n, ok := iv.(*Number)
			if !ok {
				return 0, false, argErr(tok, "slice", "a number or null", iv)
			}
			i, err := toIndex(tok, n.Value)
			return i, true, err
		}
		start, hasStart, err := intOrNil(args[1])
		if err != nil {
			return nil, err
		}
		end, hasEnd, err := intOrNil(args[2])
		if err != nil {
			return nil, err
		}
		step, hasStep, err := intOrNil(args[3])
		if err != nil {
			return nil, err
		}
		if !hasStep {
			step = 1
		}
		return in.sliceValue(tok, v, start, hasStart, end, hasEnd, step)
	})

	b.fn("repeat", []string{"what", "count"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		count, err := argInt(in, tok, "repeat", args[1])
		if err != nil {
			return nil, err
		}
		if count < 0 {
			count = 0
		}
		switch v := v.(type) {
		case *String:
			return &String{Value: strings.Repeat(v.Value, count)}, nil
		case *Array:
			elements := make([]*Thunk, 0, len(v.Elements)*count)
			for i := 0; i < count; i++ {
				elements = append(elements, v.Elements...)
			}
			return &Array{Elements: elements}, nil
		}
		return nil, argErr(tok, "repeat", "a string or an array", v)
	})

	b.fn("join", []string{"sep", "arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		sep, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		arr, err := argArray(in, tok, "join", args[1])
		if err != nil {
			return nil, err
		}
		switch sep := sep.(type) {
		case *String:
			var parts []string
			for _, el := range arr.Elements {
				ev, err := el.Force(in)
				if err != nil {
					return nil, err
				}
				if ev == NULL {
					continue
				}
				s, ok := ev.(*String)
				if !ok {
					return nil, argErr(tok, "join", "an array of strings", ev)
				}
				parts = append(parts, s.Value)
			}
			return &String{Value: strings.Join(parts, sep.Value)}, nil
		case *Array:
			elements := []*Thunk{}
			first := true
			for _, el := range arr.Elements {
				ev, err := el.Force(in)
				if err != nil {
					return nil, err
				}
				if ev == NULL {
					continue
				}
				inner, ok := ev.(*Array)
				if !ok {
					return nil, argErr(tok, "join", "an array of arrays", ev)
				}
				if !first {
					elements = append(elements, sep.Elements...)
				}
				first = false
				elements = append(elements, inner.Elements...)
			}
			return &Array{Elements: elements}, nil
		}
		return nil, argErr(tok, "join", "a string or an array", sep)
	})
}

func removeIndex(arr *Array, i int) *Array {
	elements := make([]*Thunk, 0, len(arr.Elements)-1)
	elements = append(elements, arr.Elements[:i]...)
	elements = append(elements, arr.Elements[i+1:]...)
	return &Array{Elements: elements}
}

// applyKeyF forces keyF(x), or x itself when no key function was given.
func (in *Interp) applyKeyF(tok locTok, keyF, x *Thunk) (Value, error) {
	if keyF == nil {
		return x.Force(in)
	}
	fn, err := argFunction(in, tok, "sort", keyF)
	if err != nil {
		return nil, err
	}
	return call1(in, tok, fn, x)
}

// sortKeys computes the sort key of every element.
func (in *Interp) sortKeys(tok locTok, fname string, arr *Array, keyF *Thunk) ([]Value, error) {
	keys := make([]Value, len(arr.Elements))
	for i, el := range arr.Elements {
		k, err := in.applyKeyF(tok, keyF, el)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

func (in *Interp) sortArray(tok locTok, fname string, arrT, keyF *Thunk) (Value, error) {
	arr, err := argArray(in, tok, fname, arrT)
	if err != nil {
		return nil, err
	}
	keys, err := in.sortKeys(tok, fname, arr, keyF)
	if err != nil {
		return nil, err
	}
	sorted, err := in.sortThunks(tok, arr.Elements, keys)
	if err != nil {
		return nil, err
	}
	return &Array{Elements: sorted}, nil
}

// sortThunks stably sorts elements by their precomputed keys.
func (in *Interp) sortThunks(tok locTok, elements []*Thunk, keys []Value) ([]*Thunk, error) {
	idx := make([]int, len(elements))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		c, err := in.compareValues(tok, keys[idx[a]], keys[idx[b]])
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]*Thunk, len(elements))
	for i, j := range idx {
		out[i] = elements[j]
	}
	return out, nil
}

// uniqAdjacent drops elements whose key equals the previous key.
func (in *Interp) uniqAdjacent(tok locTok, elements []*Thunk, keys []Value) (Value, error) {
	out := []*Thunk{}
	for i, el := range elements {
		if i > 0 {
			eq, err := in.equalValues(tok, keys[i-1], keys[i])
			if err != nil {
				return nil, err
			}
			if eq {
				continue
			}
		}
		out = append(out, el)
	}
	return &Array{Elements: out}, nil
}

// sliceValue backs std.slice, sharing slice rules with the operator
// form.
func (in *Interp) sliceValue(tok locTok, v Value, start int, hasStart bool, end int, hasEnd bool, step int) (Value, error) {
	var length int
	var elements []*Thunk
	var runes []rune
	isString := false
	switch v := v.(type) {
	case *Array:
		elements = v.Elements
		length = len(elements)
	case *String:
		isString = true
		runes = []rune(v.Value)
		length = len(runes)
	default:
		return nil, argErr(tok, "slice", "a string or an array", v)
	}
	if !hasStart {
		start = 0
	}
	if !hasEnd {
		end = length
	}
	if step <= 0 {
		return nil, errAt("INDEX-0003", tok, map[string]any{"Step": step})
	}
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
