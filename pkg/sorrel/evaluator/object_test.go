package evaluator

import (
	"strings"
	"testing"

	"github.com/sambeau/sorrel/pkg/sorrel/errors"
)

func TestFieldAccess(t *testing.T) {
	checkNumber(t, testEval(t, "{a: 1, b: 2}.b"), 2)
	checkNumber(t, testEval(t, `{"spaced name": 3}["spaced name"]`), 3)
	checkNumber(t, testEval(t, "{outer: {inner: 4}}.outer.inner"), 4)
}

func TestNoSuchField(t *testing.T) {
	se := testEvalErr(t, "{alpha: 1}.alhpa")
	if se.Code != "UNDEF-0002" {
		t.Fatalf("expected UNDEF-0002, got %s", se.Code)
	}
	hints := strings.Join(se.Hints, " ")
	if !strings.Contains(hints, "alpha") {
		t.Fatalf("expected 'alpha' suggestion, got %v", se.Hints)
	}
}

func TestSelfIsLateBound(t *testing.T) {
	checkNumber(t, testEval(t, "{a: 1, b: self.a + 1}.b"), 2)
	// Overriding a changes what self.a sees in the base layer.
	checkNumber(t, testEval(t, "({a: 1, b: self.a + 1} + {a: 10}).b"), 11)
	checkNumber(t, testEval(t, "({a: 1, b: self.a + 1} { a: 10 }).b"), 11)
}

func TestSelfOutsideObject(t *testing.T) {
	if se := testEvalErr(t, "self.a"); se.Code != "TYPE-0012" {
		t.Fatalf("expected TYPE-0012, got %s", se.Code)
	}
}

func TestSuper(t *testing.T) {
	checkNumber(t, testEval(t, "({a: 1} + {a: super.a + 1}).a"), 2)
	checkNumber(t, testEval(t, "({a: 1} + {a: super.a + 1} + {a: super.a + 10}).a"), 12)
	checkNumber(t, testEval(t, `({a: 2} + {b: super["a"] * 3}).b`), 6)
	// super sees the base layer's self-references through the full chain.
	checkNumber(t, testEval(t, "({a: self.n, n: 1} + {n: 5, b: super.a}).b"), 5)
}

func TestSuperWithoutAncestor(t *testing.T) {
	if se := testEvalErr(t, "{a: super.x}.a"); se.Code != "TYPE-0013" {
		t.Fatalf("expected TYPE-0013, got %s", se.Code)
	}
}

func TestInSuperOperator(t *testing.T) {
	checkBool(t, testEval(t, `({a: 1} + {r: "a" in super}).r`), true)
	checkBool(t, testEval(t, `({a: 1} + {r: "b" in super}).r`), false)
	// Without an ancestor layer, membership is simply false.
	checkBool(t, testEval(t, `{r: "a" in super}.r`), false)
	// Outside any object the construct has no meaning.
	if se := testEvalErr(t, `"a" in super`); se.Code != "TYPE-0013" {
		t.Fatalf("expected TYPE-0013, got %s", se.Code)
	}
}

func TestDollarIsLateBound(t *testing.T) {
	checkNumber(t, testEval(t, "{a: 1, b: {c: $.a}}.b.c"), 1)
	// $ tracks the outermost object even through composition.
	checkNumber(t, testEval(t, "({a: 1, b: {c: $.a}} + {a: 7}).b.c"), 7)
}

func TestDollarOutsideObject(t *testing.T) {
	if se := testEvalErr(t, "$.a"); se.Code != "TYPE-0014" {
		t.Fatalf("expected TYPE-0014, got %s", se.Code)
	}
}

func TestHiddenFields(t *testing.T) {
	// Hidden fields resolve but never manifest.
	checkNumber(t, testEval(t, "{h:: 6, v: self.h * 7}.h"), 6)
	checkJSON(t, "{h:: 6, v: self.h * 7}", `{"v": 42}`)

	// A plain ':' override keeps the base field's hiddenness.
	checkJSON(t, "{f:: 1} + {f: 2}", "{ }")
	// ':::' forces visibility back on.
	checkJSON(t, "{f:: 1} + {f::: 2}", `{"f": 2}`)
	// '::' hides a previously visible field.
	checkJSON(t, "{f: 1} + {f:: 2}", "{ }")
}

func TestPlusColonMerge(t *testing.T) {
	checkJSON(t, "({a: {x: 1}} + {a+: {y: 2}}).a", `{"x": 1,"y": 2}`)
	checkJSON(t, "({arr: [1]} + {arr+: [2, 3]}).arr", "[1,2,3]")
	checkString(t, testEval(t, `({s: "ab"} + {s+: "cd"}).s`), "abcd")
	checkNumber(t, testEval(t, "({n: 40} + {n+: 2}).n"), 42)
	// With no super field, +: behaves like a plain definition.
	checkNumber(t, testEval(t, "{n+: 2}.n"), 2)
}

func TestObjectLocals(t *testing.T) {
	checkNumber(t, testEval(t, "{local two = 2, a: two * 3}.a"), 6)
	// Object locals close over self.
	checkNumber(t, testEval(t, "{local me = self, a: 1, b: me.a + 1}.b"), 2)
	// Function-shaped locals work inside objects.
	checkNumber(t, testEval(t, "{local sq(x) = x * x, a: sq(5)}.a"), 25)
}

func TestObjectAsserts(t *testing.T) {
	checkNumber(t, testEval(t, "{assert self.a > 0, a: 1}.a"), 1)

	se := testEvalErr(t, `{assert self.a > 5 : "too small", a: 1}.a`)
	if se.Code != "ASSERT-0002" {
		t.Fatalf("expected ASSERT-0002, got %s", se.Code)
	}
	if !strings.Contains(se.Message, "too small") {
		t.Fatalf("expected assert message, got %q", se.Message)
	}

	// Asserts hold against the composed object, so an override can turn
	// a failing assert into a passing one.
	checkNumber(t, testEval(t, "({assert self.a > 5, a: 1} + {a: 10}).a"), 10)
}

func TestObjectAssertsRunOnce(t *testing.T) {
	logger := &recordLogger{}
	in := NewInterp(Options{Logger: logger})
	v, err := in.EvaluateSnippet("<test>", `
		local o = {assert std.trace("checked", true), a: 1, b: 2};
		o.a + o.b + o.a`)
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkNumber(t, v, 4)
	if len(logger.lines) != 1 {
		t.Fatalf("expected one assert run, traced %d times", len(logger.lines))
	}
}

func TestFieldsForceOncePerObject(t *testing.T) {
	logger := &recordLogger{}
	in := NewInterp(Options{Logger: logger})
	v, err := in.EvaluateSnippet("<test>", `
		local o = {a: std.trace("a forced", 3), b: self.a + self.a};
		o.b + o.a`)
	if err != nil {
		t.Fatalf("eval error: %s", err.Error())
	}
	checkNumber(t, v, 9)
	if len(logger.lines) != 1 {
		t.Fatalf("expected field a to force once, traced %d times", len(logger.lines))
	}
}

func TestCompositionLeavesOperandsIntact(t *testing.T) {
	checkNumber(t, testEval(t, `
		local base = {a: 1, b: self.a * 10};
		local derived = base + {a: 2};
		base.b + derived.b`), 30)
}

func TestComputedFieldNames(t *testing.T) {
	checkNumber(t, testEval(t, `{["a" + "b"]: 5}.ab`), 5)
	// A null name drops the field.
	checkJSON(t, `{[if false then "a"]: 1, b: 2}`, `{"b": 2}`)

	if se := testEvalErr(t, "{[1]: 2}"); se.Code != "TYPE-0006" {
		t.Fatalf("expected TYPE-0006, got %s", se.Code)
	}
	if se := testEvalErr(t, `{a: 1, ["a"]: 2}`); se.Code != "UNDEF-0005" {
		t.Fatalf("expected UNDEF-0005, got %s", se.Code)
	}
}

func TestObjectComprehensions(t *testing.T) {
	checkJSON(t, `{[k]: std.length(k) for k in ["a", "bb"]}`, `{"a": 1,"bb": 2}`)
	checkJSON(t, `{["k" + x]: x * 2 for x in [1, 2, 3] if x != 2}`, `{"k1": 2,"k3": 6}`)
	// Locals are in scope for comprehension values.
	checkJSON(t, `{local ten = 10, [k]: ten for k in ["x"]}`, `{"x": 10}`)

	// Duplicate generated names must fail at construction.
	se := testEvalErr(t, `{[k]: 1 for k in ["a", "a"]}`)
	if se.Code != "UNDEF-0005" {
		t.Fatalf("expected UNDEF-0005, got %s", se.Code)
	}
}

func TestObjectComprehensionCapturesIteration(t *testing.T) {
	// Each field's value sees its own iteration binding, lazily.
	checkJSON(t, `{[x]: {inner: x} for x in ["p", "q"]}.q`, `{"inner": "q"}`)
}

func TestMethodFields(t *testing.T) {
	checkNumber(t, testEval(t, "{double(x): x * 2}.double(21)"), 42)
	checkNumber(t, testEval(t, "{n: 3, scale(k): self.n * k}.scale(4)"), 12)
	// Methods participate in override like any field.
	checkNumber(t, testEval(t, "({greet(): 1} + {greet(): 2}).greet()"), 2)
}

func TestDeepNestingSelfScopes(t *testing.T) {
	// Each object literal rebinds self; the inner self shadows the outer.
	checkNumber(t, testEval(t, "{a: 1, inner: {a: 2, v: self.a}}.inner.v"), 2)
}

func TestErroredFieldReplays(t *testing.T) {
	in := testInterp()
	_, err := in.EvaluateSnippet("<test>", `
		local o = {bad: error "field failure"};
		o.bad`)
	if err == nil {
		t.Fatal("expected error")
	}
	se := err.(*errors.SorrelError)
	if !strings.Contains(se.Message, "field failure") {
		t.Fatalf("unexpected message %q", se.Message)
	}
}
