package evaluator

import (
	"strings"
	"testing"
)

func TestStdType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"std.type(null)", "null"},
		{"std.type(true)", "boolean"},
		{"std.type(1.5)", "number"},
		{`std.type("s")`, "string"},
		{"std.type([])", "array"},
		{"std.type({})", "object"},
		{"std.type(function() 1)", "function"},
	}
	for _, tt := range tests {
		checkString(t, testEval(t, tt.input), tt.expected)
	}
}

func TestStdTypePredicates(t *testing.T) {
	checkBool(t, testEval(t, "std.isString(\"x\")"), true)
	checkBool(t, testEval(t, "std.isNumber(1)"), true)
	checkBool(t, testEval(t, "std.isBoolean(true)"), true)
	checkBool(t, testEval(t, "std.isArray([])"), true)
	checkBool(t, testEval(t, "std.isObject({})"), true)
	checkBool(t, testEval(t, "std.isFunction(function() 1)"), true)
	checkBool(t, testEval(t, "std.isString(1)"), false)
}

func TestStdLength(t *testing.T) {
	checkNumber(t, testEval(t, `std.length("héllo")`), 5)
	checkNumber(t, testEval(t, "std.length([1, 2, 3])"), 3)
	checkNumber(t, testEval(t, "std.length({a: 1, b:: 2})"), 1)
	checkNumber(t, testEval(t, "std.length(function(a, b) a)"), 2)
	if se := testEvalErr(t, "std.length(1)"); se.Code != "TYPE-0004" {
		t.Fatalf("expected TYPE-0004, got %s", se.Code)
	}
}

func TestStdCodepointChar(t *testing.T) {
	checkNumber(t, testEval(t, `std.codepoint("A")`), 65)
	checkString(t, testEval(t, "std.char(233)"), "é")
}

func TestStdEquality(t *testing.T) {
	checkBool(t, testEval(t, "std.primitiveEquals(1, 1)"), true)
	checkBool(t, testEval(t, `std.primitiveEquals("a", "b")`), false)
	if se := testEvalErr(t, "std.primitiveEquals([1], [1])"); se.Code != "RT-0001" {
		t.Fatalf("expected RT-0001, got %s", se.Code)
	}
	checkBool(t, testEval(t, "std.equals({a: [1]}, {a: [1]})"), true)
	if se := testEvalErr(t, "std.assertEqual(1, 2)"); se.Code != "ASSERT-0003" {
		t.Fatalf("expected ASSERT-0003, got %s", se.Code)
	}
	checkBool(t, testEval(t, "std.assertEqual(5, 5)"), true)
}

func TestStdObjectFuncs(t *testing.T) {
	checkJSON(t, "std.objectFields({b: 1, a: 2, h:: 3})", `["a","b"]`)
	checkJSON(t, "std.objectFieldsAll({b: 1, h:: 3})", `["b","h"]`)
	checkBool(t, testEval(t, `std.objectHas({a: 1, h:: 2}, "h")`), false)
	checkBool(t, testEval(t, `std.objectHasAll({a: 1, h:: 2}, "h")`), true)
	checkJSON(t, "std.objectValues({b: 2, a: 1})", "[1,2]")
}

func TestStdGet(t *testing.T) {
	checkNumber(t, testEval(t, `std.get({a: 1}, "a")`), 1)
	if testEval(t, `std.get({}, "a")`) != NULL {
		t.Fatal("missing field without default should be null")
	}
	checkNumber(t, testEval(t, `std.get({}, "a", 5)`), 5)
	checkNumber(t, testEval(t, `std.get({h:: 9}, "h", 0, true)`), 9)
	checkNumber(t, testEval(t, `std.get({h:: 9}, "h", 0)`), 0)
}

func TestStdPrune(t *testing.T) {
	checkJSON(t, "std.prune({a: null, b: [], c: {}, d: 1, e: [null]})", `{"d": 1}`)
	checkJSON(t, "std.prune([1, null, {x: null}, [2]])", "[1,[2]]")
}

func TestStdMakeArrayIsLazy(t *testing.T) {
	checkJSON(t, "std.makeArray(3, function(i) i * 2)", "[0,2,4]")
	// Elements evaluate only when forced.
	checkNumber(t, testEval(t, `std.makeArray(3, function(i) if i == 2 then error "untouched" else i)[0]`), 0)
}

func TestStdRange(t *testing.T) {
	checkJSON(t, "std.range(1, 5)", "[1,2,3,4,5]")
	checkJSON(t, "std.range(3, 3)", "[3]")
	checkJSON(t, "std.range(3, 2)", "[ ]")
}

func TestStdArrayBasics(t *testing.T) {
	checkNumber(t, testEval(t, "std.count([1, 2, 1, 3], 1)"), 2)
	checkBool(t, testEval(t, "std.member([1, 2], 2)"), true)
	checkBool(t, testEval(t, "std.member([1, 2], 5)"), false)
	checkBool(t, testEval(t, `std.contains(["x"], "x")`), true)
	checkJSON(t, "std.reverse([1, 2, 3])", "[3,2,1]")
	checkJSON(t, "std.flattenArrays([[1], [2, 3], []])", "[1,2,3]")
	checkNumber(t, testEval(t, "std.sum([1, 2, 3])"), 6)
	checkNumber(t, testEval(t, "std.avg([2, 4])"), 3)
	if se := testEvalErr(t, "std.avg([])"); se.Code != "MATH-0001" {
		t.Fatalf("expected MATH-0001, got %s", se.Code)
	}
}

func TestStdMapFilterFold(t *testing.T) {
	checkJSON(t, "std.map(function(x) x * x, [1, 2, 3])", "[1,4,9]")
	checkJSON(t, "std.mapWithIndex(function(i, x) i + x, [10, 20])", "[10,21]")
	checkJSON(t, "std.filter(function(x) x > 1, [1, 2, 3])", "[2,3]")
	checkJSON(t, "std.filterMap(function(x) x > 1, function(x) x * 10, [1, 2, 3])", "[20,30]")
	checkNumber(t, testEval(t, "std.foldl(function(acc, x) acc * 10 + x, [1, 2, 3], 0)"), 123)
	checkNumber(t, testEval(t, "std.foldr(function(x, acc) acc * 10 + x, [1, 2, 3], 0)"), 321)
}

func TestStdSortUniqSet(t *testing.T) {
	checkJSON(t, "std.sort([3, 1, 2])", "[1,2,3]")
	checkJSON(t, `std.sort(["b", "a"])`, `["a","b"]`)
	checkJSON(t, "std.sort([{v: 2}, {v: 1}], function(o) o.v)", `[{"v": 1},{"v": 2}]`)
	checkJSON(t, "std.uniq([1, 1, 2, 2, 2, 3])", "[1,2,3]")
	checkJSON(t, "std.set([3, 1, 2, 1, 3])", "[1,2,3]")
	checkJSON(t, "std.setUnion([1, 2], [2, 3])", "[1,2,3]")
	checkJSON(t, "std.setInter([1, 2, 3], [2, 3, 4])", "[2,3]")
	checkJSON(t, "std.setDiff([1, 2, 3], [2])", "[1,3]")
}

func TestStdSortIsStable(t *testing.T) {
	checkJSON(t, `std.sort([{k: 1, n: "first"}, {k: 1, n: "second"}], function(o) o.k)`,
		`[{"k": 1,"n": "first"},{"k": 1,"n": "second"}]`)
}

func TestStdRemoveAndSlice(t *testing.T) {
	checkJSON(t, "std.remove([1, 2, 3, 2], 2)", "[1,3,2]")
	checkJSON(t, "std.removeAt([1, 2, 3], 1)", "[1,3]")
	checkJSON(t, "std.slice([1, 2, 3, 4, 5], 1, 4, 2)", "[2,4]")
	checkJSON(t, "std.slice([1, 2, 3], null, null, null)", "[1,2,3]")
	checkString(t, testEval(t, `std.slice("hello", 1, 4, null)`), "ell")
}

func TestStdRepeatJoin(t *testing.T) {
	checkString(t, testEval(t, `std.repeat("ab", 3)`), "ababab")
	checkJSON(t, "std.repeat([1, 2], 2)", "[1,2,1,2]")
	checkString(t, testEval(t, `std.join(", ", ["a", "b"])`), "a, b")
	checkString(t, testEval(t, `std.join("-", ["a", null, "b"])`), "a-b")
	checkJSON(t, "std.join([0], [[1], null, [2]])", "[1,0,2]")
}

func TestStdStringFuncs(t *testing.T) {
	checkString(t, testEval(t, "std.toString(42)"), "42")
	checkString(t, testEval(t, `std.toString("s")`), "s")
	checkString(t, testEval(t, "std.toString([1, 2])"), "[1,2]")
	checkString(t, testEval(t, `std.substr("héllo", 1, 3)`), "éll")
	checkString(t, testEval(t, `std.substr("ab", 1, 99)`), "b")
	checkBool(t, testEval(t, `std.startsWith("foobar", "foo")`), true)
	checkBool(t, testEval(t, `std.endsWith("foobar", "bar")`), true)
	checkString(t, testEval(t, `std.stripChars("aabxaa", "a")`), "bx")
	checkString(t, testEval(t, `std.lstripChars("aab", "a")`), "b")
	checkString(t, testEval(t, `std.rstripChars("baa", "a")`), "b")
	checkString(t, testEval(t, `std.trim("  x  ")`), "x")
	checkBool(t, testEval(t, `std.isEmpty("")`), true)
	checkJSON(t, `std.split("a,b,c", ",")`, `["a","b","c"]`)
	checkJSON(t, `std.splitLimit("a,b,c", ",", 1)`, `["a","b,c"]`)
	checkString(t, testEval(t, `std.strReplace("aba", "a", "x")`), "xbx")
	checkString(t, testEval(t, `std.asciiUpper("aéb")`), "AéB")
	checkString(t, testEval(t, `std.asciiLower("AéB")`), "aéb")
	checkJSON(t, `std.stringChars("ab")`, `["a","b"]`)
	checkJSON(t, `std.findSubstr("aa", "aaa")`, "[0,1]")
	checkJSON(t, `std.findSubstr("z", "abc")`, "[ ]")
}

func TestStdEscapes(t *testing.T) {
	checkString(t, testEval(t, `std.escapeStringJson("a\"b")`), `"a\"b"`)
	checkString(t, testEval(t, `std.escapeStringBash("it's")`), `'it'"'"'s'`)
	checkString(t, testEval(t, `std.escapeStringDollars("$v")`), "$$v")
}

func TestStdFormat(t *testing.T) {
	checkString(t, testEval(t, `std.format("%s=%d", ["k", 7])`), "k=7")
	checkString(t, testEval(t, `std.format("%.3f", 3.14159)`), "3.142")
}

func TestStdMath(t *testing.T) {
	checkNumber(t, testEval(t, "std.abs(-3)"), 3)
	checkNumber(t, testEval(t, "std.floor(1.9)"), 1)
	checkNumber(t, testEval(t, "std.ceil(1.1)"), 2)
	checkNumber(t, testEval(t, "std.round(1.5)"), 2)
	checkNumber(t, testEval(t, "std.sqrt(16)"), 4)
	checkNumber(t, testEval(t, "std.pow(2, 10)"), 1024)
	checkNumber(t, testEval(t, "std.max(1, 2)"), 2)
	checkNumber(t, testEval(t, "std.min(1, 2)"), 1)
	checkNumber(t, testEval(t, "std.sign(-5)"), -1)
	checkNumber(t, testEval(t, "std.clamp(5, 1, 3)"), 3)
	checkNumber(t, testEval(t, "std.clamp(2, 1, 3)"), 2)
	checkNumber(t, testEval(t, "std.exponent(8)"), 4)
	checkNumber(t, testEval(t, "std.mantissa(8)"), 0.5)
	checkNumber(t, testEval(t, "std.mod(5, 3)"), 2)
	checkString(t, testEval(t, `std.mod("x=%d", 3)`), "x=3")
	checkBool(t, testEval(t, "std.isInteger(4)"), true)
	checkBool(t, testEval(t, "std.isDecimal(4.5)"), true)
	checkBool(t, testEval(t, "std.isEven(4)"), true)
	checkBool(t, testEval(t, "std.isOdd(4)"), false)
	checkBool(t, testEval(t, "std.pi > 3.14 && std.pi < 3.15"), true)
}

func TestStdMathDomainErrors(t *testing.T) {
	if se := testEvalErr(t, "std.sqrt(-1)"); se.Code != "MATH-0003" {
		t.Fatalf("expected MATH-0003, got %s", se.Code)
	}
	if se := testEvalErr(t, "std.log(0)"); se.Code != "MATH-0002" {
		t.Fatalf("expected MATH-0002, got %s", se.Code)
	}
}

func TestStdBase64(t *testing.T) {
	checkString(t, testEval(t, `std.base64("hello")`), "aGVsbG8=")
	checkString(t, testEval(t, "std.base64([104, 101, 108, 108, 111])"), "aGVsbG8=")
	checkString(t, testEval(t, `std.base64Decode("aGVsbG8=")`), "hello")
	checkJSON(t, `std.base64DecodeBytes("aGk=")`, "[104,105]")
	if se := testEvalErr(t, `std.base64Decode("!not base64!")`); se.Code != "FMT-0004" {
		t.Fatalf("expected FMT-0004, got %s", se.Code)
	}
}

func TestStdUTF8(t *testing.T) {
	checkJSON(t, `std.encodeUTF8("é")`, "[195,169]")
	checkString(t, testEval(t, "std.decodeUTF8([104, 105])"), "hi")
}

func TestStdHashes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`std.md5("hello")`, "5d41402abc4b2a76b9719d911017c592"},
		{`std.sha1("hello")`, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{`std.sha256("hello")`, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{`std.sha512("hello")`, "9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca72323c3d99ba5c11d7c7acc6e14b8c5da0c4663475c2e5c3adef46f73bcdec043"},
		{`std.sha3("hello")`, "75d527c368f2efe848ecf6b073a36767800805e9eef2b1857d5f984f036eb6df891d75f72d9b154518c1cd58835286d1da9a38deba3de98b5a53e5ed78a84976"},
	}
	for _, tt := range tests {
		checkString(t, testEval(t, tt.input), tt.expected)
	}
}

func TestStdParseNumbers(t *testing.T) {
	checkNumber(t, testEval(t, `std.parseInt("-123")`), -123)
	checkNumber(t, testEval(t, `std.parseOct("755")`), 493)
	checkNumber(t, testEval(t, `std.parseHex("ff")`), 255)
	checkNumber(t, testEval(t, `std.parseHex("0xFF")`), 255)
	if se := testEvalErr(t, `std.parseInt("12a")`); se.Code != "FMT-0004" {
		t.Fatalf("expected FMT-0004, got %s", se.Code)
	}
}

func TestStdParseJson(t *testing.T) {
	checkNumber(t, testEval(t, `std.parseJson("{\"a\": 41}").a + 1`), 42)
	checkJSON(t, `std.parseJson("[1, \"two\", null, true]")`, `[1,"two",null,true]`)
	checkJSON(t, `std.parseJson("{\"b\": 1, \"a\": 2}")`, `{"a": 2,"b": 1}`)
	if se := testEvalErr(t, `std.parseJson("{oops")`); se.Code != "FMT-0004" {
		t.Fatalf("expected FMT-0004, got %s", se.Code)
	}
}

func TestStdParseYaml(t *testing.T) {
	checkNumber(t, testEval(t, `std.parseYaml("a: 41").a + 1`), 42)
	checkJSON(t, `std.parseYaml("- 1\n- two\n- true")`, `[1,"two",true]`)
	checkJSON(t, `std.parseYaml("b: 1\na: 2")`, `{"a": 2,"b": 1}`)
}

func TestStdManifestFuncs(t *testing.T) {
	checkString(t, testEval(t, "std.manifestJsonMinified({a: [1]})"), `{"a": [1]}`)
	got := testEval(t, "std.manifestJson({a: 1})")
	s, ok := got.(*String)
	if !ok || !strings.Contains(s.Value, "\"a\": 1") {
		t.Fatalf("manifestJson output wrong: %v", got.Inspect())
	}
	checkString(t, testEval(t, `std.manifestJsonEx({a: 1}, "\t")`), "{\n\t\"a\": 1\n}")
	y := testEval(t, "std.manifestYamlDoc({a: 1})")
	ys, ok := y.(*String)
	if !ok || !strings.Contains(ys.Value, "a: 1") {
		t.Fatalf("manifestYamlDoc output wrong: %v", y.Inspect())
	}
}

func TestStdThisFile(t *testing.T) {
	checkString(t, testEval(t, "std.thisFile"), "<test>")
}

func TestStdWorksViaLocalAlias(t *testing.T) {
	checkNumber(t, testEval(t, "local s = std; s.length([1])"), 1)
}
