package evaluator

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
)

func registerEncodingFuncs(b *stdBuilder) {
	b.fn("base64", []string{"input"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		data, err := argBytes(in, tok, "base64", args[0])
		if err != nil {
			return nil, err
		}
		return &String{Value: base64.StdEncoding.EncodeToString(data)}, nil
	})

	b.fn("base64Decode", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "base64Decode", args[0])
		if err != nil {
			return nil, err
		}
		data, derr := base64.StdEncoding.DecodeString(s)
		if derr != nil {
			return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "base64", "Reason": derr.Error()})
		}
		return &String{Value: string(data)}, nil
	})

	b.fn("base64DecodeBytes", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "base64DecodeBytes", args[0])
		if err != nil {
			return nil, err
		}
		data, derr := base64.StdEncoding.DecodeString(s)
		if derr != nil {
			return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "base64", "Reason": derr.Error()})
		}
		return byteArray(data), nil
	})

	b.fn("encodeUTF8", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "encodeUTF8", args[0])
		if err != nil {
			return nil, err
		}
		return byteArray([]byte(s)), nil
	})

	b.fn("decodeUTF8", []string{"arr"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		data, err := argBytes(in, tok, "decodeUTF8", args[0])
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(data) {
			return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "UTF-8", "Reason": "invalid byte sequence"})
		}
		return &String{Value: string(data)}, nil
	})

	hashFn := func(name string, sum func(data []byte) []byte) {
		b.fn(name, []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			s, err := argString(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			return &String{Value: hex.EncodeToString(sum([]byte(s)))}, nil
		})
	}
	hashFn("md5", func(data []byte) []byte { h := md5.Sum(data); return h[:] })
	hashFn("sha1", func(data []byte) []byte { h := sha1.Sum(data); return h[:] })
	hashFn("sha256", func(data []byte) []byte { h := sha256.Sum256(data); return h[:] })
	hashFn("sha512", func(data []byte) []byte { h := sha512.Sum512(data); return h[:] })
	hashFn("sha3", func(data []byte) []byte { h := sha3.Sum512(data); return h[:] })

	parseIntBase := func(name string, base int, trimPrefix string) {
		b.fn(name, []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			s, err := argString(in, tok, name, args[0])
			if err != nil {
				return nil, err
			}
			digits := s
			neg := false
			if base == 10 {
				if strings.HasPrefix(digits, "-") {
					neg = true
					digits = digits[1:]
				} else {
					digits = strings.TrimPrefix(digits, "+")
				}
			}
			if trimPrefix != "" {
				digits = strings.TrimPrefix(strings.TrimPrefix(digits, strings.ToUpper(trimPrefix)), trimPrefix)
			}
			n, perr := strconv.ParseInt(digits, base, 64)
			if perr != nil {
				return nil, errAt("FMT-0004", tok, map[string]any{
					"Encoding": "std." + name + " input", "Reason": strconv.Quote(s) + " is not parseable",
				})
			}
			if neg {
				n = -n
			}
			return &Number{Value: float64(n)}, nil
		})
	}
	parseIntBase("parseInt", 10, "")
	parseIntBase("parseOct", 8, "")
	parseIntBase("parseHex", 16, "0x")

	b.fn("parseJson", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "parseJson", args[0])
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var raw interface{}
		if derr := dec.Decode(&raw); derr != nil {
			return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "JSON", "Reason": derr.Error()})
		}
		return jsonToValue(tok, raw)
	})

	b.fn("parseYaml", []string{"str"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		s, err := argString(in, tok, "parseYaml", args[0])
		if err != nil {
			return nil, err
		}
		var node yaml.Node
		if derr := yaml.Unmarshal([]byte(s), &node); derr != nil {
			return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "YAML", "Reason": derr.Error()})
		}
		if node.Kind == 0 {
			return NULL, nil
		}
		return yamlToValue(tok, &node)
	})

	b.fn("manifestJson", []string{"value"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		out, err := in.manifestJSONIndent(tok, v, "    ", false)
		if err != nil {
			return nil, err
		}
		return &String{Value: out}, nil
	})

	b.fn("manifestJsonEx", []string{"value", "indent"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		indent, err := argString(in, tok, "manifestJsonEx", args[1])
		if err != nil {
			return nil, err
		}
		out, err := in.manifestJSONIndent(tok, v, indent, false)
		if err != nil {
			return nil, err
		}
		return &String{Value: out}, nil
	})

	b.fn("manifestJsonMinified", []string{"value"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		out, err := in.manifestJSONIndent(tok, v, "", true)
		if err != nil {
			return nil, err
		}
		return &String{Value: out}, nil
	})

	b.fn("manifestYamlDoc", []string{"value"}, 0, func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
		v, err := args[0].Force(in)
		if err != nil {
			return nil, err
		}
		out, err := in.ManifestYAML(v)
		if err != nil {
			return nil, err
		}
		return &String{Value: out}, nil
	})
}

func byteArray(data []byte) *Array {
	elements := make([]*Thunk, len(data))
	for i, bt := range data {
		elements[i] = ForcedThunk(&Number{Value: float64(bt)})
	}
	return &Array{Elements: elements}
}

// argBytes accepts a string (UTF-8 bytes) or an array of byte numbers.
func argBytes(in *Interp, tok locTok, fname string, t *Thunk) ([]byte, error) {
	v, err := t.Force(in)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case *String:
		return []byte(v.Value), nil
	case *Array:
		data := make([]byte, len(v.Elements))
		for i, el := range v.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			n, ok := ev.(*Number)
			if !ok || n.Value < 0 || n.Value > 255 {
				return nil, argErr(tok, fname, "an array of bytes", ev)
			}
			data[i] = byte(n.Value)
		}
		return data, nil
	}
	return nil, argErr(tok, fname, "a string or an array of bytes", v)
}

// jsonToValue converts decoded JSON into runtime values. Object keys
// come back sorted since Go maps have no order to preserve.
func jsonToValue(tok locTok, raw interface{}) (Value, error) {
	switch raw := raw.(type) {
	case nil:
		return NULL, nil
	case bool:
		return nativeBoolToValue(raw), nil
	case json.Number:
		f, err := raw.Float64()
		if err != nil {
			return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "JSON", "Reason": err.Error()})
		}
		return &Number{Value: f}, nil
	case string:
		return &String{Value: raw}, nil
	case []interface{}:
		elements := make([]*Thunk, len(raw))
		for i, el := range raw {
			v, err := jsonToValue(tok, el)
			if err != nil {
				return nil, err
			}
			elements[i] = ForcedThunk(v)
		}
		return &Array{Elements: elements}, nil
	case map[string]interface{}:
		names := make([]string, 0, len(raw))
		for name := range raw {
			names = append(names, name)
		}
		sort.Strings(names)
		ob := newStdBuilder()
		for _, name := range names {
			v, err := jsonToValue(tok, raw[name])
			if err != nil {
				return nil, err
			}
			ob.fields[name] = layerField{hide: ast.VisibleNormal, prebuilt: ForcedThunk(v)}
			ob.order = append(ob.order, name)
		}
		return ob.object(), nil
	}
	return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "JSON", "Reason": "unsupported value"})
}

// yamlToValue converts a yaml.v3 node tree, keeping mapping order.
func yamlToValue(tok locTok, node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NULL, nil
		}
		return yamlToValue(tok, node.Content[0])
	case yaml.AliasNode:
		return yamlToValue(tok, node.Alias)
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return NULL, nil
		case "!!bool":
			return nativeBoolToValue(node.Value == "true" || node.Value == "True"), nil
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(node.Value, 64)
			if err != nil {
				return nil, errAt("FMT-0004", tok, map[string]any{"Encoding": "YAML", "Reason": err.Error()})
			}
			return &Number{Value: f}, nil
		default:
			return &String{Value: node.Value}, nil
		}
	case yaml.SequenceNode:
		elements := make([]*Thunk, len(node.Content))
		for i, el := range node.Content {
			v, err := yamlToValue(tok, el)
			if err != nil {
				return nil, err
			}
			elements[i] = ForcedThunk(v)
		}
		return &Array{Elements: elements}, nil
	case yaml.MappingNode:
		ob := newStdBuilder()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			v, err := yamlToValue(tok, node.Content[i+1])
			if err != nil {
				return nil, err
			}
			if _, dup := ob.fields[key.Value]; dup {
				continue
			}
			ob.fields[key.Value] = layerField{hide: ast.VisibleNormal, prebuilt: ForcedThunk(v)}
			ob.order = append(ob.order, key.Value)
		}
		return ob.object(), nil
	}
	return NULL, nil
}
