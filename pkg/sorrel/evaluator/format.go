package evaluator

import (
	"fmt"
	"math"
	"strings"
)

// formatValues implements the '%' operator on strings, a printf-style
// mini-language. The right operand is a single value, an array of values
// consumed in order, or an object addressed with %(name)s keys.
func (in *Interp) formatValues(tok locTok, format string, operand Value) (Value, error) {
	specs, err := parseFormat(tok, format)
	if err != nil {
		return nil, err
	}

	var values []*Thunk
	var fields *Object
	switch op := operand.(type) {
	case *Array:
		values = op.Elements
	case *Object:
		fields = op
	default:
		values = []*Thunk{ForcedThunk(operand)}
	}

	next := 0
	take := func(spec formatSpec) (Value, error) {
		if spec.key != "" {
			if fields == nil {
				return nil, errAt("FMT-0001", tok, map[string]any{
					"Reason": "mapping key %(" + spec.key + ") needs an object operand",
				})
			}
			return in.forceField(tok, fields, spec.key)
		}
		if fields != nil {
			return nil, errAt("FMT-0001", tok, map[string]any{
				"Reason": "object operand requires mapping keys like %(name)s",
			})
		}
		if next >= len(values) {
			return nil, errAt("FMT-0002", tok, nil)
		}
		v, err := values[next].Force(in)
		next++
		return v, err
	}

	var b strings.Builder
	for _, spec := range specs {
		if spec.verb == 0 {
			b.WriteString(spec.literal)
			continue
		}
		if spec.verb == '%' {
			b.WriteByte('%')
			continue
		}
		v, err := take(spec)
		if err != nil {
			return nil, err
		}
		if spec.widthStar {
			w, err := take(formatSpec{verb: 'd'})
			if err != nil {
				return nil, err
			}
			wn, ok := w.(*Number)
			if !ok {
				return nil, errAt("FMT-0001", tok, map[string]any{"Reason": "* width must be a number"})
			}
			spec.width = int(wn.Value)
		}
		out, err := in.renderSpec(tok, spec, v)
		if err != nil {
			return nil, err
		}
		b.WriteString(out)
	}
	if fields == nil && next < len(values) {
		return nil, errAt("FMT-0003", tok, map[string]any{"Extra": len(values) - next})
	}
	return &String{Value: b.String()}, nil
}

type formatSpec struct {
	literal   string
	key       string
	flags     string // subset of "-+ #0"
	width     int
	widthStar bool
	prec      int
	hasPrec   bool
	verb      byte
}

func parseFormat(tok locTok, format string) ([]formatSpec, error) {
	var specs []formatSpec
	i := 0
	for i < len(format) {
		if format[i] != '%' {
			j := i
			for j < len(format) && format[j] != '%' {
				j++
			}
			specs = append(specs, formatSpec{literal: format[i:j]})
			i = j
			continue
		}
		i++
		if i >= len(format) {
			return nil, errAt("FMT-0001", tok, map[string]any{"Reason": "truncated conversion at end of string"})
		}
		var spec formatSpec
		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 {
				return nil, errAt("FMT-0001", tok, map[string]any{"Reason": "unterminated mapping key"})
			}
			spec.key = format[i+1 : i+end]
			i += end + 1
		}
		for i < len(format) && strings.IndexByte("-+ #0", format[i]) >= 0 {
			spec.flags += string(format[i])
			i++
		}
		if i < len(format) && format[i] == '*' {
			spec.widthStar = true
			i++
		} else {
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				spec.width = spec.width*10 + int(format[i]-'0')
				i++
			}
		}
		if i < len(format) && format[i] == '.' {
			i++
			spec.hasPrec = true
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				spec.prec = spec.prec*10 + int(format[i]-'0')
				i++
			}
		}
		if i >= len(format) {
			return nil, errAt("FMT-0001", tok, map[string]any{"Reason": "truncated conversion at end of string"})
		}
		spec.verb = format[i]
		i++
		if strings.IndexByte("diouxXeEfFgGsc%", spec.verb) < 0 {
			return nil, errAt("FMT-0001", tok, map[string]any{"Reason": "unrecognized conversion %" + string(spec.verb)})
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// renderSpec renders one conversion. Numeric verbs require numbers; %s
// accepts anything, rendering non-strings as compact JSON.
func (in *Interp) renderSpec(tok locTok, spec formatSpec, v Value) (string, error) {
	goSpec := func(verb byte, withPrec bool) string {
		s := "%" + spec.flags
		if spec.width > 0 {
			s += fmt.Sprintf("%d", spec.width)
		}
		if withPrec && spec.hasPrec {
			s += fmt.Sprintf(".%d", spec.prec)
		}
		return s + string(verb)
	}

	switch spec.verb {
	case 'd', 'i', 'o', 'x', 'X':
		n, ok := v.(*Number)
		if !ok {
			return "", errAt("FMT-0001", tok, map[string]any{"Reason": "%" + string(spec.verb) + " requires a number, got " + describeKind(v)})
		}
		verb := spec.verb
		if verb == 'i' {
			verb = 'd'
		}
		return fmt.Sprintf(goSpec(verb, false), int64(math.Trunc(n.Value))), nil
	case 'e', 'E', 'f', 'F', 'g', 'G':
		n, ok := v.(*Number)
		if !ok {
			return "", errAt("FMT-0001", tok, map[string]any{"Reason": "%" + string(spec.verb) + " requires a number, got " + describeKind(v)})
		}
		verb := spec.verb
		if verb == 'F' {
			verb = 'f'
		}
		return fmt.Sprintf(goSpec(verb, true), n.Value), nil
	case 'c':
		switch cv := v.(type) {
		case *Number:
			return string(rune(int(cv.Value))), nil
		case *String:
			if len([]rune(cv.Value)) != 1 {
				return "", errAt("FMT-0001", tok, map[string]any{"Reason": "%c requires a single character"})
			}
			return cv.Value, nil
		}
		return "", errAt("FMT-0001", tok, map[string]any{"Reason": "%c requires a number or single-character string"})
	default: // 's'
		var s string
		if sv, ok := v.(*String); ok {
			s = sv.Value
		} else {
			rendered, err := in.manifestJSONString(tok, v, -1)
			if err != nil {
				return "", err
			}
			s = rendered
		}
		if spec.hasPrec && spec.prec < len(s) {
			s = s[:spec.prec]
		}
		return fmt.Sprintf(goSpec('s', false), s), nil
	}
}
