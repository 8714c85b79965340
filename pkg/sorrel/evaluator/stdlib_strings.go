package evaluator

import (
	"strings"
)

func registerStringFuncs(b *stdBuilder) {
	b.fn("toString", []string{"a"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		if s, ok := v.(*String); ok {
			return s, nil
		}
		rendered, err := in.manifestJSONString(tok, v, -1)
		if err != nil {
			return nil, err
		}
		return &String{Value: rendered}, nil
	})

	b.fn("substr", []string{"str", "from", "len"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "substr", args[0])
		if err != nil {
			return nil, err
		}
		from, err := argInt(in, tok, "substr", args[1])
		if err != nil {
			return nil, err
		}
		length, err := argInt(in, tok, "substr", args[2])
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		if from < 0 {
			from = 0
		}
		if from > len(runes) {
			from = len(runes)
		}
		end := from + length
		if length < 0 || end > len(runes) {
			end = len(runes)
		}
		return &String{Value: string(runes[from:end])}, nil
	})

	b.fn("startsWith", []string{"a", "b"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		a, err := argString(in, tok, "startsWith", args[0])
		if err != nil {
			return nil, err
		}
		prefix, err := argString(in, tok, "startsWith", args[1])
		if err != nil {
			return nil, err
		}
		return nativeBoolToValue(strings.HasPrefix(a, prefix)), nil
	})

	b.fn("endsWith", []string{"a", "b"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		a, err := argString(in, tok, "endsWith", args[0])
		if err != nil {
			return nil, err
		}
		suffix, err := argString(in, tok, "endsWith", args[1])
		if err != nil {
			return nil, err
		}
		return nativeBoolToValue(strings.HasSuffix(a, suffix)), nil
	})

	strip := func(name string, fn func(s, cutset string) string) {
		b.fn(name, []string{"str", "chars"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			s, err := argString(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			chars, err := argString(in, tok, name, args[1])
			if err != nil {
				return nil, err
			}
			return &String{Value: fn(s, chars)}, nil
		})
	}
	strip("stripChars", strings.Trim)
	strip("lstripChars", strings.TrimLeft)
	strip("rstripChars", strings.TrimRight)

	b.fn("trim", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "trim", args[0])
		if err != nil {
			return nil, err
		}
		return &String{Value: strings.TrimSpace(s)}, nil
	})

	b.fn("isEmpty", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "isEmpty", args[0])
		if err != nil {
			return nil, err
		}
		return nativeBoolToValue(s == ""), nil
	})

	b.fn("split", []string{"str", "c"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "split", args[0])
		if err != nil {
			return nil, err
		}
		c, err := argString(in, tok, "split", args[1])
		if err != nil {
			return nil, err
		}
		return stringArray(strings.Split(s, c)), nil
	})

	b.fn("splitLimit", []string{"str", "c", "maxsplits"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "splitLimit", args[0])
		if err != nil {
			return nil, err
		}
		c, err := argString(in, tok, "splitLimit", args[1])
		if err != nil {
			return nil, err
		}
		max, err := argInt(in, tok, "splitLimit", args[2])
		if err != nil {
			return nil, err
		}
		// maxsplits counts splits, strings.SplitN counts pieces.
		n := max + 1
		if max < 0 {
			n = -1
		}
		return stringArray(strings.SplitN(s, c, n)), nil
	})

	b.fn("strReplace", []string{"str", "from", "to"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "strReplace", args[0])
		if err != nil {
			return nil, err
		}
		from, err := argString(in, tok, "strReplace", args[1])
		if err != nil {
			return nil, err
		}
		to, err := argString(in, tok, "strReplace", args[2])
		if err != nil {
			return nil, err
		}
		return &String{Value: strings.ReplaceAll(s, from, to)}, nil
	})

	caseFn := func(name string, mapper func(r rune) rune) {
		b.fn(name, []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			s, err := argString(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			return &String{Value: strings.Map(mapper, s)}, nil
		})
	}
	caseFn("asciiUpper", func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	})
	caseFn("asciiLower", func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r - 'A' + 'a'
		}
		return r
	})

	b.fn("stringChars", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "stringChars", args[0])
		if err != nil {
			return nil, err
		}
		elements := []*Thunk{}
		for _, r := range s {
			elements = append(elements, ForcedThunk(&String{Value: string(r)}))
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("findSubstr", []string{"pat", "str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		pat, err := argString(in, tok, "findSubstr", args[0])
		if err != nil {
			return nil, err
		}
		s, err := argString(in, tok, "findSubstr", args[1])
		if err != nil {
			return nil, err
		}
		elements := []*Thunk{}
		if pat != "" {
			offset := 0
			for {
				i := strings.Index(s[offset:], pat)
				if i < 0 {
					break
				}
				elements = append(elements, ForcedThunk(&Number{Value: float64(offset + i)}))
				offset += i + 1
			}
		}
		return &Array{Elements: elements}, nil
	})

	b.fn("escapeStringJson", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "escapeStringJson", args[0])
		if err != nil {
			return nil, err
		}
		return &String{Value: escapeJSONString(s)}, nil
	})

	b.fn("escapeStringBash", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "escapeStringBash", args[0])
		if err != nil {
			return nil, err
		}
		return &String{Value: "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"}, nil
	})

	b.fn("escapeStringDollars", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "escapeStringDollars", args[0])
		if err != nil {
			return nil, err
		}
		return &String{Value: strings.ReplaceAll(s, "$", "$$")}, nil
	})

	b.fn("format", []string{"str", "vals"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "format", args[0])
		if err != nil {
			return nil, err
		}
		vals, err := args[1].Force(in)
		if err != nil {
			return nil, err
		}
		return in.formatValues(tok, s, vals)
	})
}

func stringArray(parts []string) *Array {
	elements := make([]*Thunk, len(parts))
	for i, p := range parts {
		elements[i] = ForcedThunk(&String{Value: p})
	}
	return &Array{Elements: elements}
}
