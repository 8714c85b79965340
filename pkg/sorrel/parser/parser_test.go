package parser

import (
	"testing"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
)

func parse(t *testing.T, input string) ast.Expression {
	t.Helper()
	expr, err := ParseSnippet("<test>", input)
	if err != nil {
		t.Fatalf("parse error for %q: %s", input, err.Error())
	}
	if expr == nil {
		t.Fatalf("parse returned nil expression for %q", input)
	}
	return expr
}

func TestLiterals(t *testing.T) {
	if n, ok := parse(t, "42").(*ast.NumberLiteral); !ok || n.Value != 42 {
		t.Fatalf("expected NumberLiteral 42, got %T", parse(t, "42"))
	}
	if s, ok := parse(t, `"hi"`).(*ast.StringLiteral); !ok || s.Value != "hi" {
		t.Fatalf("expected StringLiteral hi")
	}
	if b, ok := parse(t, "true").(*ast.BooleanLiteral); !ok || !b.Value {
		t.Fatalf("expected BooleanLiteral true")
	}
	if _, ok := parse(t, "null").(*ast.NullLiteral); !ok {
		t.Fatalf("expected NullLiteral")
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		// Top operator expected after precedence grouping.
		topOp string
	}{
		{"1 + 2 * 3", "+"},
		{"1 * 2 + 3", "+"},
		{"1 < 2 == true", "=="},
		{"1 + 2 < 3 + 4", "<"},
		{"a && b || c", "||"},
		{"1 | 2 ^ 3 & 4", "|"},
		{"1 + 2 << 3", "<<"},
		{"x in y == true", "=="},
	}

	for _, tt := range tests {
		expr := parse(t, tt.input)
		bin, ok := expr.(*ast.BinaryExpression)
		if !ok {
			t.Errorf("input %q: expected BinaryExpression, got %T", tt.input, expr)
			continue
		}
		if bin.Operator != tt.topOp {
			t.Errorf("input %q: expected top operator %q, got %q", tt.input, tt.topOp, bin.Operator)
		}
	}
}

func TestUnary(t *testing.T) {
	for _, tt := range []struct {
		input string
		op    string
	}{
		{"-5", "-"},
		{"!true", "!"},
		{"~0", "~"},
		{"+1", "+"},
	} {
		expr := parse(t, tt.input)
		un, ok := expr.(*ast.UnaryExpression)
		if !ok {
			t.Fatalf("input %q: expected UnaryExpression, got %T", tt.input, expr)
		}
		if un.Operator != tt.op {
			t.Fatalf("input %q: expected operator %q, got %q", tt.input, tt.op, un.Operator)
		}
	}
}

func TestLocalBinds(t *testing.T) {
	expr := parse(t, "local x = 1, y = x + 1; y")
	le, ok := expr.(*ast.LocalExpression)
	if !ok {
		t.Fatalf("expected LocalExpression, got %T", expr)
	}
	if len(le.Binds) != 2 {
		t.Fatalf("expected 2 binds, got %d", len(le.Binds))
	}
	if le.Binds[0].Name != "x" || le.Binds[1].Name != "y" {
		t.Fatalf("wrong bind names: %q, %q", le.Binds[0].Name, le.Binds[1].Name)
	}
	if _, ok := le.Body.(*ast.Identifier); !ok {
		t.Fatalf("expected Identifier body, got %T", le.Body)
	}
}

func TestLocalFunctionSugar(t *testing.T) {
	expr := parse(t, "local double(x) = x * 2; double(4)")
	le, ok := expr.(*ast.LocalExpression)
	if !ok {
		t.Fatalf("expected LocalExpression, got %T", expr)
	}
	fl, ok := le.Binds[0].Value.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("expected FunctionLiteral bind, got %T", le.Binds[0].Value)
	}
	if len(fl.Params) != 1 || fl.Params[0].Name != "x" {
		t.Fatalf("wrong params: %+v", fl.Params)
	}
}

func TestDuplicateLocalNames(t *testing.T) {
	_, err := ParseSnippet("<test>", "local x = 1, x = 2; x")
	if err == nil {
		t.Fatal("expected error for duplicate local names")
	}
	if err.Code != "UNDEF-0004" {
		t.Fatalf("expected UNDEF-0004, got %s", err.Code)
	}
}

func TestFunctionLiteral(t *testing.T) {
	expr := parse(t, "function(a, b=2) a + b")
	fl, ok := expr.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("expected FunctionLiteral, got %T", expr)
	}
	if len(fl.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fl.Params))
	}
	if fl.Params[0].Default != nil {
		t.Fatal("param a should have no default")
	}
	if fl.Params[1].Default == nil {
		t.Fatal("param b should have a default")
	}
}

func TestCallArguments(t *testing.T) {
	expr := parse(t, "f(1, 2, c=3)")
	call, ok := expr.(*ast.ApplyExpression)
	if !ok {
		t.Fatalf("expected ApplyExpression, got %T", expr)
	}
	if len(call.Args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(call.Args))
	}
	if call.Args[0].Name != "" || call.Args[2].Name != "c" {
		t.Fatalf("wrong arg names: %+v", call.Args)
	}
	if call.TailStrict {
		t.Fatal("call should not be tailstrict")
	}
}

func TestPositionalAfterNamed(t *testing.T) {
	_, err := ParseSnippet("<test>", "f(a=1, 2)")
	if err == nil {
		t.Fatal("expected error for positional after named argument")
	}
	if err.Code != "ARITY-0005" {
		t.Fatalf("expected ARITY-0005, got %s", err.Code)
	}
}

func TestTailStrict(t *testing.T) {
	expr := parse(t, "f(x) tailstrict")
	call, ok := expr.(*ast.ApplyExpression)
	if !ok {
		t.Fatalf("expected ApplyExpression, got %T", expr)
	}
	if !call.TailStrict {
		t.Fatal("expected tailstrict call")
	}
}

func TestFieldAccessDesugarsToIndex(t *testing.T) {
	expr := parse(t, "a.b.c")
	outer, ok := expr.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("expected IndexExpression, got %T", expr)
	}
	idx, ok := outer.Index.(*ast.StringLiteral)
	if !ok || idx.Value != "c" {
		t.Fatalf("expected index string c, got %T", outer.Index)
	}
	inner, ok := outer.Left.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("expected nested IndexExpression, got %T", outer.Left)
	}
	if s, ok := inner.Index.(*ast.StringLiteral); !ok || s.Value != "b" {
		t.Fatalf("expected inner index string b")
	}
}

func TestSlices(t *testing.T) {
	tests := []struct {
		input                    string
		hasStart, hasEnd, hasStep bool
	}{
		{"a[1:2]", true, true, false},
		{"a[1:2:3]", true, true, true},
		{"a[:2]", false, true, false},
		{"a[1:]", true, false, false},
		{"a[:]", false, false, false},
		{"a[::2]", false, false, true},
		{"a[1::2]", true, false, true},
	}

	for _, tt := range tests {
		expr := parse(t, tt.input)
		sl, ok := expr.(*ast.SliceExpression)
		if !ok {
			t.Errorf("input %q: expected SliceExpression, got %T", tt.input, expr)
			continue
		}
		if (sl.Start != nil) != tt.hasStart {
			t.Errorf("input %q: start presence = %v, want %v", tt.input, sl.Start != nil, tt.hasStart)
		}
		if (sl.End != nil) != tt.hasEnd {
			t.Errorf("input %q: end presence = %v, want %v", tt.input, sl.End != nil, tt.hasEnd)
		}
		if (sl.Step != nil) != tt.hasStep {
			t.Errorf("input %q: step presence = %v, want %v", tt.input, sl.Step != nil, tt.hasStep)
		}
	}
}

func TestPlainIndexIsNotSlice(t *testing.T) {
	expr := parse(t, "a[0]")
	if _, ok := expr.(*ast.IndexExpression); !ok {
		t.Fatalf("expected IndexExpression, got %T", expr)
	}
}

func TestObjectFields(t *testing.T) {
	expr := parse(t, `{a: 1, b:: 2, c::: 3, d+: 4, "e f": 5, [g]: 6}`)
	obj, ok := expr.(*ast.ObjectLiteral)
	if !ok {
		t.Fatalf("expected ObjectLiteral, got %T", expr)
	}
	if len(obj.Fields) != 6 {
		t.Fatalf("expected 6 fields, got %d", len(obj.Fields))
	}

	assertField := func(i int, name string, hide ast.Visibility, plus bool) {
		t.Helper()
		f := obj.Fields[i]
		if f.Name != name {
			t.Errorf("field %d: expected name %q, got %q", i, name, f.Name)
		}
		if f.Hide != hide {
			t.Errorf("field %d: expected visibility %v, got %v", i, hide, f.Hide)
		}
		if f.PlusSuper != plus {
			t.Errorf("field %d: expected plusSuper=%v", i, plus)
		}
	}
	assertField(0, "a", ast.VisibleNormal, false)
	assertField(1, "b", ast.VisibleHidden, false)
	assertField(2, "c", ast.VisibleForced, false)
	assertField(3, "d", ast.VisibleNormal, true)
	assertField(4, "e f", ast.VisibleNormal, false)
	if obj.Fields[5].Kind != ast.FieldComputed {
		t.Errorf("field 5: expected computed field")
	}
}

func TestPlusSuperVisibilityLevels(t *testing.T) {
	expr := parse(t, `{a+:: 1, b+::: 2}`)
	obj := expr.(*ast.ObjectLiteral)
	if !obj.Fields[0].PlusSuper || obj.Fields[0].Hide != ast.VisibleHidden {
		t.Errorf("a+:: should be plusSuper hidden, got %+v", obj.Fields[0])
	}
	if !obj.Fields[1].PlusSuper || obj.Fields[1].Hide != ast.VisibleForced {
		t.Errorf("b+::: should be plusSuper forced, got %+v", obj.Fields[1])
	}
}

func TestMethodSugar(t *testing.T) {
	expr := parse(t, "{add(a, b): a + b}")
	obj := expr.(*ast.ObjectLiteral)
	fl, ok := obj.Fields[0].Value.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("expected FunctionLiteral value, got %T", obj.Fields[0].Value)
	}
	if len(fl.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fl.Params))
	}
}

func TestObjectLocalsAndAsserts(t *testing.T) {
	expr := parse(t, `{local two = 2, assert self.x > 0 : "bad x", x: two}`)
	obj, ok := expr.(*ast.ObjectLiteral)
	if !ok {
		t.Fatalf("expected ObjectLiteral, got %T", expr)
	}
	if len(obj.Locals) != 1 || obj.Locals[0].Name != "two" {
		t.Fatalf("expected one local 'two', got %+v", obj.Locals)
	}
	if len(obj.Asserts) != 1 || obj.Asserts[0].Message == nil {
		t.Fatalf("expected one assert with message, got %+v", obj.Asserts)
	}
	if len(obj.Fields) != 1 {
		t.Fatalf("expected one field, got %d", len(obj.Fields))
	}
}

func TestDuplicateFieldNames(t *testing.T) {
	_, err := ParseSnippet("<test>", "{a: 1, a: 2}")
	if err == nil {
		t.Fatal("expected error for duplicate field names")
	}
	if err.Code != "UNDEF-0005" {
		t.Fatalf("expected UNDEF-0005, got %s", err.Code)
	}
}

func TestArrayComprehension(t *testing.T) {
	expr := parse(t, "[x * x for x in xs if x > 0 for y in ys]")
	comp, ok := expr.(*ast.ArrayComprehension)
	if !ok {
		t.Fatalf("expected ArrayComprehension, got %T", expr)
	}
	if len(comp.Specs) != 3 {
		t.Fatalf("expected 3 comp specs, got %d", len(comp.Specs))
	}
	kinds := []ast.CompSpecKind{ast.CompFor, ast.CompIf, ast.CompFor}
	for i, k := range kinds {
		if comp.Specs[i].Kind != k {
			t.Errorf("spec %d: wrong kind", i)
		}
	}
}

func TestObjectComprehension(t *testing.T) {
	expr := parse(t, `{[k]: k + "!" for k in keys}`)
	comp, ok := expr.(*ast.ObjectComprehension)
	if !ok {
		t.Fatalf("expected ObjectComprehension, got %T", expr)
	}
	if len(comp.Specs) != 1 || comp.Specs[0].Var != "k" {
		t.Fatalf("wrong specs: %+v", comp.Specs)
	}
}

func TestObjectComprehensionRejectsFixedNames(t *testing.T) {
	_, err := ParseSnippet("<test>", "{a: 1 for x in xs}")
	if err == nil {
		t.Fatal("expected error for fixed field name in object comprehension")
	}
}

func TestSuperForms(t *testing.T) {
	expr := parse(t, "super.name")
	si, ok := expr.(*ast.SuperIndex)
	if !ok {
		t.Fatalf("expected SuperIndex, got %T", expr)
	}
	if s, ok := si.Index.(*ast.StringLiteral); !ok || s.Value != "name" {
		t.Fatalf("expected name index")
	}

	expr = parse(t, `super["computed"]`)
	if _, ok := expr.(*ast.SuperIndex); !ok {
		t.Fatalf("expected SuperIndex for bracket form, got %T", expr)
	}

	if _, err := ParseSnippet("<test>", "super"); err == nil {
		t.Fatal("expected error for bare super")
	}
}

func TestInSuper(t *testing.T) {
	expr := parse(t, `"f" in super`)
	is, ok := expr.(*ast.InSuper)
	if !ok {
		t.Fatalf("expected InSuper, got %T", expr)
	}
	if s, ok := is.Index.(*ast.StringLiteral); !ok || s.Value != "f" {
		t.Fatalf("wrong InSuper index")
	}
}

func TestApplyBraceDesugarsToPlus(t *testing.T) {
	expr := parse(t, "base { a: 1 }")
	bin, ok := expr.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("expected BinaryExpression, got %T", expr)
	}
	if bin.Operator != "+" {
		t.Fatalf("expected + operator, got %q", bin.Operator)
	}
	if _, ok := bin.Right.(*ast.ObjectLiteral); !ok {
		t.Fatalf("expected ObjectLiteral right side, got %T", bin.Right)
	}
}

func TestConditional(t *testing.T) {
	expr := parse(t, "if a then 1 else 2")
	cond, ok := expr.(*ast.ConditionalExpression)
	if !ok {
		t.Fatalf("expected ConditionalExpression, got %T", expr)
	}
	if cond.Else == nil {
		t.Fatal("expected else branch")
	}

	expr = parse(t, "if a then 1")
	cond = expr.(*ast.ConditionalExpression)
	if cond.Else != nil {
		t.Fatal("expected missing else branch")
	}
}

func TestErrorAndAssert(t *testing.T) {
	expr := parse(t, `error "nope"`)
	if _, ok := expr.(*ast.ErrorExpression); !ok {
		t.Fatalf("expected ErrorExpression, got %T", expr)
	}

	expr = parse(t, `assert x > 0 : "must be positive"; x`)
	ae, ok := expr.(*ast.AssertExpression)
	if !ok {
		t.Fatalf("expected AssertExpression, got %T", expr)
	}
	if ae.Message == nil {
		t.Fatal("expected assert message")
	}
	if _, ok := ae.Rest.(*ast.Identifier); !ok {
		t.Fatalf("expected Identifier rest, got %T", ae.Rest)
	}
}

func TestImports(t *testing.T) {
	tests := []struct {
		input string
		kind  ast.ImportKind
		path  string
	}{
		{`import "a.srl"`, ast.ImportCode, "a.srl"},
		{`importstr "b.txt"`, ast.ImportStr, "b.txt"},
		{`importbin "c.bin"`, ast.ImportBin, "c.bin"},
	}
	for _, tt := range tests {
		expr := parse(t, tt.input)
		ie, ok := expr.(*ast.ImportExpression)
		if !ok {
			t.Errorf("input %q: expected ImportExpression, got %T", tt.input, expr)
			continue
		}
		if ie.Kind != tt.kind || ie.Path != tt.path {
			t.Errorf("input %q: got kind=%v path=%q", tt.input, ie.Kind, ie.Path)
		}
	}
}

func TestTrailingCommas(t *testing.T) {
	for _, input := range []string{
		"[1, 2, 3,]",
		"{a: 1, b: 2,}",
		"f(1, 2,)",
		"function(a, b,) a",
	} {
		if _, err := ParseSnippet("<test>", input); err != nil {
			t.Errorf("input %q: unexpected error: %s", input, err.Error())
		}
	}
}

func TestTrailingGarbage(t *testing.T) {
	_, err := ParseSnippet("<test>", "1 2")
	if err == nil {
		t.Fatal("expected error for trailing tokens")
	}
}

func TestParseErrorsCarryLocation(t *testing.T) {
	_, err := ParseSnippet("myfile.srl", "local x = ; x")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if err.File != "myfile.srl" {
		t.Fatalf("expected file myfile.srl, got %q", err.File)
	}
	if err.Line < 1 {
		t.Fatalf("expected a line number, got %d", err.Line)
	}
}
