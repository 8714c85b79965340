package evaluator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// recordLogger captures std.trace output for assertions.
type recordLogger struct {
	lines []string
}

func (l *recordLogger) Log(values ...interface{}) {}
func (l *recordLogger) LogLine(values ...interface{}) {
	l.lines = append(l.lines, fmt.Sprint(values...))
}

func testInterp() *Interp {
	return NewInterp(Options{Logger: &recordLogger{}})
}

func testEval(t *testing.T, input string) Value {
	t.Helper()
	v, err := testInterp().EvaluateSnippet("<test>", input)
	if err != nil {
		t.Fatalf("eval error for %q: %s", input, err.Error())
	}
	return v
}

func testEvalErr(t *testing.T, input string) *errors.SorrelError {
	t.Helper()
	_, err := testInterp().EvaluateSnippet("<test>", input)
	if err == nil {
		t.Fatalf("expected error for %q", input)
	}
	se, ok := err.(*errors.SorrelError)
	if !ok {
		t.Fatalf("expected SorrelError for %q, got %T", input, err)
	}
	return se
}

func checkNumber(t *testing.T, v Value, want float64) {
	t.Helper()
	n, ok := v.(*Number)
	if !ok {
		t.Fatalf("expected number, got %s (%s)", describeKind(v), v.Inspect())
	}
	if n.Value != want {
		t.Fatalf("expected %v, got %v", want, n.Value)
	}
}

func checkString(t *testing.T, v Value, want string) {
	t.Helper()
	s, ok := v.(*String)
	if !ok {
		t.Fatalf("expected string, got %s (%s)", describeKind(v), v.Inspect())
	}
	if s.Value != want {
		t.Fatalf("expected %q, got %q", want, s.Value)
	}
}

func checkBool(t *testing.T, v Value, want bool) {
	t.Helper()
	b, ok := v.(*Boolean)
	if !ok {
		t.Fatalf("expected boolean, got %s (%s)", describeKind(v), v.Inspect())
	}
	if b.Value != want {
		t.Fatalf("expected %v, got %v", want, b.Value)
	}
}

// checkJSON compares the compact JSON manifestation of a program's
// result with the expected rendering.
func checkJSON(t *testing.T, input, want string) {
	t.Helper()
	in := testInterp()
	v, err := in.EvaluateSnippet("<test>", input)
	if err != nil {
		t.Fatalf("eval error for %q: %s", input, err.Error())
	}
	got, err := in.manifestJSONString(locTok{}, v, -1)
	if err != nil {
		t.Fatalf("manifest error for %q: %s", input, err.Error())
	}
	if got != want {
		t.Fatalf("input %q:\n  got  %s\n  want %s", input, got, want)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1 + 2", 3},
		{"5 - 2 * 3", -1},
		{"(5 - 2) * 3", 9},
		{"7 / 2", 3.5},
		{"7 % 3", 1},
		{"-7 % 3", -1},
		{"2.5 + 0.5", 3},
		{"-5 + 10", 5},
		{"1e2 + 1", 101},
		{"5 & 3", 1},
		{"5 | 3", 7},
		{"5 ^ 3", 6},
		{"1 << 4", 16},
		{"32 >> 2", 8},
		{"~0", -1},
	}
	for _, tt := range tests {
		checkNumber(t, testEval(t, tt.input), tt.expected)
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"3 >= 3", true},
		{"1 == 1.0", true},
		{"1 != 2", true},
		{`"abc" < "abd"`, true},
		{`"abc" == "abc"`, true},
		{"[1, 2] < [1, 3]", true},
		{"[1, 2] < [1, 2, 0]", true},
		{"[1, 2] == [1, 2]", true},
		{"{a: 1} == {a: 1}", true},
		{"{a: 1} == {a: 2}", false},
		{"null == null", true},
		{"true != false", true},
		{"1 == \"1\"", false},
	}
	for _, tt := range tests {
		checkBool(t, testEval(t, tt.input), tt.expected)
	}
}

func TestLogicShortCircuits(t *testing.T) {
	// The right side of && and || must stay unevaluated when the left
	// side already decides the result.
	checkBool(t, testEval(t, `false && error "boom"`), false)
	checkBool(t, testEval(t, `true || error "boom"`), true)
	checkBool(t, testEval(t, "true && true"), true)
	checkBool(t, testEval(t, "false || false"), false)

	se := testEvalErr(t, `true && error "boom"`)
	if se.Code != "RT-0001" {
		t.Fatalf("expected RT-0001, got %s", se.Code)
	}
}

func TestStringConcatCoercion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"a" + "b"`, "ab"},
		{`"n=" + 42`, "n=42"},
		{`42 + "!"`, "42!"},
		{`"v=" + true`, "v=true"},
		{`"v=" + null`, "v=null"},
		{`"a=" + [1, 2]`, `a=[1,2]`},
		{`"o=" + {x: 1}`, `o={"x": 1}`},
	}
	for _, tt := range tests {
		checkString(t, testEval(t, tt.input), tt.expected)
	}
}

func TestDivisionByZero(t *testing.T) {
	if se := testEvalErr(t, "1 / 0"); se.Code != "MATH-0001" {
		t.Fatalf("expected MATH-0001, got %s", se.Code)
	}
	if se := testEvalErr(t, "1 % 0"); se.Code != "MATH-0001" {
		t.Fatalf("expected MATH-0001, got %s", se.Code)
	}
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		input string
		code  string
	}{
		{`1 - "a"`, "TYPE-0002"},
		{"-true", "TYPE-0001"},
		{"!1", "TYPE-0001"},
		{"if 1 then 2", "TYPE-0005"},
		{"1(2)", "TYPE-0003"},
		{"(1).foo", "TYPE-0007"},
		{"1 < true", "TYPE-0009"},
		{"(function() 1) == (function() 2)", "TYPE-0010"},
	}
	for _, tt := range tests {
		if se := testEvalErr(t, tt.input); se.Code != tt.code {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.code, se.Code)
		}
	}
}

func TestConditionals(t *testing.T) {
	checkNumber(t, testEval(t, "if true then 1 else 2"), 1)
	checkNumber(t, testEval(t, "if false then 1 else 2"), 2)
	if testEval(t, "if false then 1") != NULL {
		t.Fatal("else-less false conditional should be null")
	}
	// Untaken branches never evaluate.
	checkNumber(t, testEval(t, `if true then 1 else error "boom"`), 1)
}

func TestLocals(t *testing.T) {
	checkNumber(t, testEval(t, "local x = 1; x + 1"), 2)
	checkNumber(t, testEval(t, "local x = 1, y = x + 1; y * 2"), 4)
	// Binds in one local are mutually visible regardless of order.
	checkNumber(t, testEval(t, "local a = b + 1, b = 1; a"), 2)
	// Inner binds shadow outer ones.
	checkNumber(t, testEval(t, "local x = 1; local x = 2; x"), 2)
}

func TestFunctions(t *testing.T) {
	checkNumber(t, testEval(t, "local f(x) = x * 2; f(21)"), 42)
	checkNumber(t, testEval(t, "(function(a, b) a - b)(10, 4)"), 6)
	checkNumber(t, testEval(t, "local f(a, b=10) = a + b; f(1)"), 11)
	checkNumber(t, testEval(t, "local f(a, b=10) = a + b; f(1, 2)"), 3)
	checkNumber(t, testEval(t, "local f(a, b) = a - b; f(b=1, a=10)"), 9)
	checkNumber(t, testEval(t, "local f(a, b) = a - b; f(10, b=1)"), 9)
	// Defaults may refer to other parameters.
	checkNumber(t, testEval(t, "local f(a, b=a+1) = b; f(5)"), 6)
}

func TestClosures(t *testing.T) {
	checkNumber(t, testEval(t, "local make(n) = function(x) x + n; local add5 = make(5); add5(3)"), 8)
	checkNumber(t, testEval(t, `
		local counter = {n: 10, bump(by): self.n + by};
		counter.bump(5)`), 15)
}

func TestRecursiveFunctions(t *testing.T) {
	checkNumber(t, testEval(t, "local fact(n) = if n <= 1 then 1 else n * fact(n - 1); fact(10)"), 3628800)
	checkNumber(t, testEval(t, "local fib(n) = if n < 2 then n else fib(n - 1) + fib(n - 2); fib(10)"), 55)
}

func TestArityErrors(t *testing.T) {
	tests := []struct {
		input string
		code  string
	}{
		{"local f(a) = a; f(1, 2)", "ARITY-0001"},
		{"local f(a) = a; f(b=1)", "ARITY-0002"},
		{"local f(a) = a; f(1, a=2)", "ARITY-0003"},
		{"local f(a, b) = a; f(1)", "ARITY-0004"},
	}
	for _, tt := range tests {
		if se := testEvalErr(t, tt.input); se.Code != tt.code {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.code, se.Code)
		}
	}
}

func TestUndefinedVariable(t *testing.T) {
	se := testEvalErr(t, "local foo = 1; fooo")
	if se.Code != "UNDEF-0001" {
		t.Fatalf("expected UNDEF-0001, got %s", se.Code)
	}
	// The close-by name should show up as a suggestion.
	hints := strings.Join(se.Hints, " ")
	if !strings.Contains(hints, "foo") {
		t.Fatalf("expected a 'foo' suggestion, got hints %v", se.Hints)
	}
}

func TestLazinessMemoizesOnce(t *testing.T) {
	logger := &recordLogger{}
	in := NewInterp(Options{Logger: logger})
	v, err := in.EvaluateSnippet("<test>", `
		local x = std.trace("computed", 7);
		x + x + x`)
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkNumber(t, v, 21)
	if len(logger.lines) != 1 {
		t.Fatalf("expected the bind to force once, traced %d times", len(logger.lines))
	}
}

func TestUnusedBindsNeverEvaluate(t *testing.T) {
	checkNumber(t, testEval(t, `local boom = error "untouched"; 1`), 1)
	checkNumber(t, testEval(t, `local arr = [error "untouched", 2]; arr[1]`), 2)
	checkNumber(t, testEval(t, `local o = {bad: error "untouched", ok: 3}; o.ok`), 3)
}

func TestSelfReferentialBind(t *testing.T) {
	se := testEvalErr(t, "local x = x; x")
	if se.Code != "REC-0002" {
		t.Fatalf("expected REC-0002, got %s", se.Code)
	}
}

func TestStackOverflowIsDeterministic(t *testing.T) {
	in := NewInterp(Options{Logger: &recordLogger{}, MaxStack: 50})
	_, err := in.EvaluateSnippet("<test>", "local f(x) = f(x + 1); f(0)")
	if err == nil {
		t.Fatal("expected stack overflow error")
	}
	se := err.(*errors.SorrelError)
	if se.Code != "REC-0001" {
		t.Fatalf("expected REC-0001, got %s", se.Code)
	}
}

func TestErrorExpression(t *testing.T) {
	se := testEvalErr(t, `error "custom failure"`)
	if se.Code != "RT-0001" {
		t.Fatalf("expected RT-0001, got %s", se.Code)
	}
	if !strings.Contains(se.Message, "custom failure") {
		t.Fatalf("expected message to carry the text, got %q", se.Message)
	}
	// Non-string error values render as compact JSON.
	se = testEvalErr(t, "error {code: 7}")
	if !strings.Contains(se.Message, `{"code": 7}`) {
		t.Fatalf("expected JSON-rendered message, got %q", se.Message)
	}
}

func TestAssertExpression(t *testing.T) {
	checkNumber(t, testEval(t, "assert 1 < 2; 42"), 42)
	se := testEvalErr(t, `assert 1 > 2 : "math is broken"; 42`)
	if se.Code != "ASSERT-0001" {
		t.Fatalf("expected ASSERT-0001, got %s", se.Code)
	}
	if !strings.Contains(se.Message, "math is broken") {
		t.Fatalf("expected assert message, got %q", se.Message)
	}
}

func TestErrorTraceFrames(t *testing.T) {
	_, err := testInterp().EvaluateSnippet("<test>", `
		local inner() = error "deep";
		local outer() = inner();
		outer()`)
	if err == nil {
		t.Fatal("expected error")
	}
	se := err.(*errors.SorrelError)
	if len(se.Trace) < 2 {
		t.Fatalf("expected at least 2 trace frames, got %d", len(se.Trace))
	}
	descs := make([]string, len(se.Trace))
	for i, f := range se.Trace {
		descs[i] = f.Desc
	}
	joined := strings.Join(descs, "; ")
	if !strings.Contains(joined, "inner") || !strings.Contains(joined, "outer") {
		t.Fatalf("expected inner and outer frames, got %q", joined)
	}
}

func TestErrorLocations(t *testing.T) {
	se := testEvalErr(t, "local x = 1;\nx + true")
	if se.Line != 2 {
		t.Fatalf("expected error on line 2, got line %d", se.Line)
	}
	if se.File != "<test>" {
		t.Fatalf("expected file <test>, got %q", se.File)
	}
}

func TestArrays(t *testing.T) {
	checkJSON(t, "[1, 2, 3]", "[1,2,3]")
	checkJSON(t, "[1, [2, 3]]", "[1,[2,3]]")
	checkJSON(t, "[] + [1] + [2]", "[1,2]")
	checkNumber(t, testEval(t, "[10, 20, 30][1]"), 20)
	if se := testEvalErr(t, "[1][5]"); se.Code != "INDEX-0001" {
		t.Fatalf("expected INDEX-0001, got %s", se.Code)
	}
	if se := testEvalErr(t, "[1][-1]"); se.Code != "INDEX-0001" {
		t.Fatalf("expected INDEX-0001, got %s", se.Code)
	}
	if se := testEvalErr(t, "[1][0.5]"); se.Code != "MATH-0004" {
		t.Fatalf("expected MATH-0004, got %s", se.Code)
	}
}

func TestStringIndexing(t *testing.T) {
	checkString(t, testEval(t, `"héllo"[1]`), "é")
	if se := testEvalErr(t, `"ab"[2]`); se.Code != "INDEX-0002" {
		t.Fatalf("expected INDEX-0002, got %s", se.Code)
	}
}

func TestSlicing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[1, 2, 3, 4, 5][1:3]", "[2,3]"},
		{"[1, 2, 3, 4, 5][::2]", "[1,3,5]"},
		{"[1, 2, 3, 4, 5][3:]", "[4,5]"},
		{"[1, 2, 3, 4, 5][:2]", "[1,2]"},
		{"[1, 2, 3, 4, 5][-2:]", "[4,5]"},
		{"[1, 2, 3][5:]", "[ ]"},
		{`"hello"[1:4]`, `"ell"`},
		{`"hello"[::2]`, `"hlo"`},
		{`""[1:4]`, `""`},
	}
	for _, tt := range tests {
		checkJSON(t, tt.input, tt.expected)
	}
	if se := testEvalErr(t, "[1, 2][::0]"); se.Code != "INDEX-0003" {
		t.Fatalf("expected INDEX-0003, got %s", se.Code)
	}
}

func TestArrayComprehensions(t *testing.T) {
	checkJSON(t, "[x * x for x in [1, 2, 3]]", "[1,4,9]")
	checkJSON(t, "[x for x in [1, 2, 3, 4] if x % 2 == 0]", "[2,4]")
	checkJSON(t, "[[x, y] for x in [1, 2] for y in [10, 20]]",
		"[[1,10],[1,20],[2,10],[2,20]]")
	if se := testEvalErr(t, "[x for x in 42]"); se.Code != "TYPE-0011" {
		t.Fatalf("expected TYPE-0011, got %s", se.Code)
	}
}

func TestComprehensionBodiesStayLazy(t *testing.T) {
	checkNumber(t, testEval(t, `[if x == 2 then error "untouched" else x for x in [1, 2, 3]][0]`), 1)
}

func TestInOperator(t *testing.T) {
	checkBool(t, testEval(t, `"a" in {a: 1}`), true)
	checkBool(t, testEval(t, `"b" in {a: 1}`), false)
	// Hidden fields still count for membership.
	checkBool(t, testEval(t, `"h" in {h:: 1}`), true)
}

func TestExtVars(t *testing.T) {
	in := NewInterp(Options{Logger: &recordLogger{}})
	in.SetExtStr("env", "prod")
	if err := in.SetExtCode("n", "2 + 3"); err != nil {
		t.Fatalf("SetExtCode: %s", err.Error())
	}
	v, err := in.EvaluateSnippet("<test>", `std.extVar("env") + ":" + std.extVar("n")`)
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkString(t, v, "prod:5")

	_, err = in.EvaluateSnippet("<test>", `std.extVar("missing")`)
	if err == nil {
		t.Fatal("expected error for unknown extVar")
	}
	if se := err.(*errors.SorrelError); se.Code != "UNDEF-0003" {
		t.Fatalf("expected UNDEF-0003, got %s", se.Code)
	}
}

func TestTopLevelArguments(t *testing.T) {
	in := NewInterp(Options{Logger: &recordLogger{}})
	in.SetTLAStr("name", "world")
	if err := in.SetTLACode("count", "2"); err != nil {
		t.Fatalf("SetTLACode: %s", err.Error())
	}
	v, err := in.EvaluateSnippet("<test>", `function(name, count) name + ":" + count`)
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkString(t, v, "world:2")
}

func TestTLAsIgnoredForNonFunctions(t *testing.T) {
	in := NewInterp(Options{Logger: &recordLogger{}})
	in.SetTLAStr("unused", "x")
	v, err := in.EvaluateSnippet("<test>", "41 + 1")
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkNumber(t, v, 42)
}

func TestTLADefaultsApply(t *testing.T) {
	in := NewInterp(Options{Logger: &recordLogger{}})
	v, err := in.EvaluateSnippet("<test>", "function(n=4) n * 2")
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkNumber(t, v, 8)
}

func TestFormatOperator(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"%d apples" % 3`, "3 apples"},
		{`"%s and %s" % ["a", "b"]`, "a and b"},
		{`"%05.2f" % 3.14159`, "03.14"},
		{`"%x" % 255`, "ff"},
		{`"%(name)s is %(age)d" % {name: "Ada", age: 36}`, "Ada is 36"},
		{`"100%%" % []`, "100%"},
	}
	for _, tt := range tests {
		checkString(t, testEval(t, tt.input), tt.expected)
	}

	if se := testEvalErr(t, `"%d %d" % [1]`); se.Code != "FMT-0002" {
		t.Fatalf("expected FMT-0002, got %s", se.Code)
	}
	if se := testEvalErr(t, `"%d" % [1, 2]`); se.Code != "FMT-0003" {
		t.Fatalf("expected FMT-0003, got %s", se.Code)
	}
}

func TestTraceGoesToLogger(t *testing.T) {
	logger := &recordLogger{}
	in := NewInterp(Options{Logger: logger})
	v, err := in.EvaluateSnippet("<test>", `std.trace("checkpoint", 5)`)
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkNumber(t, v, 5)
	if len(logger.lines) != 1 || !strings.Contains(logger.lines[0], "checkpoint") {
		t.Fatalf("expected one trace line with the message, got %v", logger.lines)
	}
}

func TestNativeFunctions(t *testing.T) {
	in := NewInterp(Options{Logger: &recordLogger{}})
	in.RegisterNative(&NativeFunc{
		Name:   "double",
		Params: []string{"x"},
		Fn: func(in *Interp, tok locTok, args []*Thunk) (Value, error) {
			n, err := argNumber(in, tok, "double", args[0])
			if err != nil {
				return nil, err
			}
			return &Number{Value: n * 2}, nil
		},
	})
	v, err := in.EvaluateSnippet("<test>", `std.native("double")(21)`)
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkNumber(t, v, 42)

	_, err = in.EvaluateSnippet("<test>", `std.native("missing")`)
	if err == nil {
		t.Fatal("expected error for unregistered native")
	}
}

func TestNumberFormatting(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "0"},
		{42, "42"},
		{-7, "-7"},
		{3.5, "3.5"},
		{1e100, "1e+100"},
		{0.1, "0.1"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.value); got != tt.expected {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.value, got, tt.expected)
		}
	}
}
