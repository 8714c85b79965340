package evaluator

import (
	"strings"
	"unicode/utf16"

	"gopkg.in/yaml.v3"
)

// ManifestJSON renders a fully forced value as JSON. Hidden object
// fields are skipped, object assertions run, and reaching a function is
// an error. Field order is alphabetical unless the session preserves
// source order.
func (in *Interp) ManifestJSON(v Value) (string, error) {
	return in.manifestJSONString(locTok{}, v, in.indent)
}

// ManifestString implements string output mode: the top-level value must
// be a string and is emitted raw, without quoting.
func (in *Interp) ManifestString(v Value) (string, error) {
	s, ok := v.(*String)
	if !ok {
		return "", errAt("MANIFEST-0001", locTok{}, map[string]any{"Got": describeKind(v)})
	}
	return s.Value, nil
}

// manifestJSONString renders with the given indent width; indent < 0
// means compact single-line output.
func (in *Interp) manifestJSONString(tok locTok, v Value, indent int) (string, error) {
	if indent < 0 {
		return in.manifestJSONIndent(tok, v, "", true)
	}
	return in.manifestJSONIndent(tok, v, strings.Repeat(" ", indent), false)
}

// manifestJSONIndent renders with an arbitrary indent string, which is
// what std.manifestJsonEx exposes.
func (in *Interp) manifestJSONIndent(tok locTok, v Value, indent string, compact bool) (string, error) {
	var b strings.Builder
	if err := in.writeJSON(&b, tok, v, indent, compact, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (in *Interp) writeJSON(b *strings.Builder, tok locTok, v Value, indent string, compact bool, depth int) error {
	switch v := v.(type) {
	case *Null:
		b.WriteString("null")
	case *Boolean:
		b.WriteString(v.Inspect())
	case *Number:
		b.WriteString(FormatNumber(v.Value))
	case *String:
		b.WriteString(escapeJSONString(v.Value))
	case *Array:
		if len(v.Elements) == 0 {
			b.WriteString("[ ]")
			return nil
		}
		b.WriteString("[")
		for i, el := range v.Elements {
			if i > 0 {
				b.WriteString(",")
			}
			in.writeNewlineIndent(b, indent, compact, depth+1)
			ev, err := el.Force(in)
			if err != nil {
				return err
			}
			if err := in.writeJSON(b, tok, ev, indent, compact, depth+1); err != nil {
				return err
			}
		}
		in.writeNewlineIndent(b, indent, compact, depth)
		b.WriteString("]")
	case *Object:
		names, err := in.manifestFieldNames(v)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			b.WriteString("{ }")
			return nil
		}
		b.WriteString("{")
		for i, name := range names {
			if i > 0 {
				b.WriteString(",")
			}
			in.writeNewlineIndent(b, indent, compact, depth+1)
			b.WriteString(escapeJSONString(name))
			b.WriteString(": ")
			fv, err := in.forceField(tok, v, name)
			if err != nil {
				return err
			}
			if err := in.writeJSON(b, tok, fv, indent, compact, depth+1); err != nil {
				return err
			}
		}
		in.writeNewlineIndent(b, indent, compact, depth)
		b.WriteString("}")
	case *Function:
		return errAt("TYPE-0008", tok, map[string]any{"Got": "function"})
	}
	return nil
}

// manifestFieldNames runs the object's assertions and returns the
// visible names in manifestation order.
func (in *Interp) manifestFieldNames(o *Object) ([]string, error) {
	if err := o.root.checkAsserts(in); err != nil {
		return nil, err
	}
	if in.preserveOrder {
		return o.FieldNamesInOrder(false), nil
	}
	return o.FieldNames(false), nil
}

func (in *Interp) writeNewlineIndent(b *strings.Builder, indent string, compact bool, depth int) {
	if compact {
		return
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat(indent, depth))
}

// escapeJSONString quotes per RFC 8259, without the HTML escaping the
// standard library applies. Characters outside the BMP emit surrogate
// pairs.
func escapeJSONString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(escapeUnicode(uint16(r)))
			} else if r > 0xFFFF {
				r1, r2 := utf16.EncodeRune(r)
				b.WriteString(escapeUnicode(uint16(r1)))
				b.WriteString(escapeUnicode(uint16(r2)))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

const hexDigits = "0123456789abcdef"

func escapeUnicode(u uint16) string {
	return string([]byte{'\\', 'u',
		hexDigits[u>>12&0xf], hexDigits[u>>8&0xf], hexDigits[u>>4&0xf], hexDigits[u&0xf]})
}

// ManifestYAML renders the value as a YAML document. Field ordering
// follows the same rule as JSON output.
func (in *Interp) ManifestYAML(v Value) (string, error) {
	node, err := in.yamlNode(locTok{}, v)
	if err != nil {
		return "", err
	}
	out, merr := yaml.Marshal(node)
	if merr != nil {
		return "", errAt("RT-0001", locTok{}, map[string]any{"Message": merr.Error()})
	}
	return string(out), nil
}

// yamlNode builds a yaml.Node tree by hand so mapping keys keep the
// manifestation order instead of Go map iteration order.
func (in *Interp) yamlNode(tok locTok, v Value) (*yaml.Node, error) {
	switch v := v.(type) {
	case *Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *Boolean:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.Inspect()}, nil
	case *Number:
		// Integral numbers must resolve as !!int or yaml.v3 would emit
		// an explicit !!float tag in front of them.
		tag := "!!float"
		rendered := FormatNumber(v.Value)
		if !strings.ContainsAny(rendered, ".eE") {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: rendered}, nil
	case *String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Value}, nil
	case *Array:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, el := range v.Elements {
			ev, err := el.Force(in)
			if err != nil {
				return nil, err
			}
			child, err := in.yamlNode(tok, ev)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case *Object:
		names, err := in.manifestFieldNames(v)
		if err != nil {
			return nil, err
		}
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, name := range names {
			fv, err := in.forceField(tok, v, name)
			if err != nil {
				return nil, err
			}
			child, err := in.yamlNode(tok, fv)
			if err != nil {
				return nil, err
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
			node.Content = append(node.Content, key, child)
		}
		return node, nil
	}
	return nil, errAt("TYPE-0008", tok, map[string]any{"Got": describeKind(v)})
}
