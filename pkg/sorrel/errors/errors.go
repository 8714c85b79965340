// Package errors provides structured error types for the Sorrel language.
//
// This package defines SorrelError, a unified error type that represents
// both parse-stage and evaluation errors with rich metadata: an error code
// drawn from a catalog, the source location of the triggering expression,
// optional hints, and the evaluation stack trace captured as the error
// unwinds out of the evaluator.
package errors

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // Lexer/parser syntax errors
	ClassType      ErrorClass = "type"      // Operation applied to wrong value kind
	ClassArity     ErrorClass = "arity"     // Bad function call shape
	ClassUndefined ErrorClass = "undefined" // Unknown variable or field
	ClassRecursion ErrorClass = "recursion" // Infinite recursion, stack overflow
	ClassAssert    ErrorClass = "assert"    // Failed assert or explicit error expression
	ClassMath      ErrorClass = "math"      // Division by zero, overflow, NaN
	ClassIndex     ErrorClass = "index"     // Out-of-bounds array/string access
	ClassFormat    ErrorClass = "format"    // Bad % format strings, bad encodings
	ClassImport    ErrorClass = "import"    // Import resolution/loading failures
	ClassManifest  ErrorClass = "manifest"  // Unserializable output values
	ClassRuntime   ErrorClass = "runtime"   // Everything else raised at run time
)

// Frame is one element of an evaluation stack trace. Frames are appended as
// the error unwinds, so a trace reads innermost-first.
type Frame struct {
	Desc   string `json:"desc"`             // e.g. "function <format>", "field <a>"
	File   string `json:"file,omitempty"`   // source file, "" for synthetic frames
	Line   int    `json:"line,omitempty"`   // 1-based, 0 if unknown
	Column int    `json:"column,omitempty"` // 1-based, 0 if unknown
}

func (f Frame) String() string {
	if f.File == "" && f.Line == 0 {
		return f.Desc
	}
	if f.Desc == "" {
		return fmt.Sprintf("%s:%d:%d", f.File, f.Line, f.Column)
	}
	return fmt.Sprintf("%s:%d:%d\t%s", f.File, f.Line, f.Column, f.Desc)
}

// SorrelError represents any error from lexing, parsing, or evaluation.
type SorrelError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Catalog code (e.g. "TYPE-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	File    string         `json:"file,omitempty"`  // File of the triggering expression
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	Trace   []Frame        `json:"trace,omitempty"` // Evaluation stack, innermost first
	Data    map[string]any `json:"data,omitempty"`  // Template variables

	// Frozen marks an error that was cached by a memoized thunk and is
	// being re-served. A frozen trace is complete: PushFrame is a no-op,
	// so re-forcing an errored thunk reproduces the original trace rather
	// than the trace of the re-forcing site.
	Frozen bool `json:"-"`
}

// Error implements the error interface.
func (e *SorrelError) Error() string {
	return e.String()
}

// String returns a single-line representation: location prefix plus message.
func (e *SorrelError) String() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d, column %d: ", e.Line, e.Column)
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// PrettyString returns the multi-line form the CLI prints: the root cause
// first, then hints, then the captured trace innermost-first. maxTrace
// clamps the number of trace lines shown; zero means unclamped.
func (e *SorrelError) PrettyString(maxTrace int) string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Parse error")
	default:
		sb.WriteString("Runtime error")
	}
	if e.File != "" {
		fmt.Fprintf(&sb, ": %s:%d:%d", e.File, e.Line, e.Column)
	} else if e.Line > 0 {
		fmt.Fprintf(&sb, ": line %d, column %d", e.Line, e.Column)
	}
	sb.WriteString("\n  ")
	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	trace := e.Trace
	clamped := 0
	if maxTrace > 0 && len(trace) > maxTrace {
		clamped = len(trace) - maxTrace
		trace = trace[:maxTrace]
	}
	for _, fr := range trace {
		sb.WriteString("\n    ")
		sb.WriteString(fr.String())
	}
	if clamped > 0 {
		fmt.Fprintf(&sb, "\n    ... %d more frame(s)", clamped)
	}

	return sb.String()
}

// PushFrame appends a stack frame to the trace as the error propagates out
// of one evaluation step. Frozen errors keep their original trace.
func (e *SorrelError) PushFrame(f Frame) {
	if e.Frozen {
		return
	}
	e.Trace = append(e.Trace, f)
}

// Freeze returns a copy whose trace can no longer grow. Memoized thunks
// re-serve frozen copies of a cached error.
func (e *SorrelError) Freeze() *SorrelError {
	cp := *e
	cp.Trace = append([]Frame(nil), e.Trace...)
	cp.Frozen = true
	return &cp
}

// WithLocation returns a copy of the error with source position set.
func (e *SorrelError) WithLocation(file string, line, column int) *SorrelError {
	cp := *e
	cp.File = file
	cp.Line = line
	cp.Column = column
	return &cp
}

// IsParseError returns true if this is a lexer/parser error.
func (e *SorrelError) IsParseError() bool {
	return e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unterminated string",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "invalid number literal: {{.Literal}}",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "text block's first line must be a newline",
		Hints:    []string{"write ||| then a newline, then the indented content"},
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "invalid escape sequence \\{{.Escape}}",
	},
	"PARSE-0007": {
		Class:    ClassParse,
		Template: "unterminated comment",
	},
	"PARSE-0008": {
		Class:    ClassParse,
		Template: "{{.Construct}} is not allowed here",
	},

	// ========================================
	// Type errors (TYPE-0xxx)
	// ========================================
	"TYPE-0001": {
		Class:    ClassType,
		Template: "unary operator {{.Operator}} does not operate on {{.Got}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "binary operator {{.Left}} {{.Operator}} {{.Right}} is not implemented",
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "cannot call {{.Got}} as a function",
	},
	"TYPE-0004": {
		Class:    ClassType,
		Template: "{{.Function}} expected {{.Expected}}, got {{.Got}}",
	},
	"TYPE-0005": {
		Class:    ClassType,
		Template: "condition must be a boolean, got {{.Got}}",
	},
	"TYPE-0006": {
		Class:    ClassType,
		Template: "field name must be a string, got {{.Got}}",
	},
	"TYPE-0007": {
		Class:    ClassType,
		Template: "cannot index {{.Got}} with {{.IndexType}}",
	},
	"TYPE-0008": {
		Class:    ClassType,
		Template: "cannot manifest {{.Got}} as JSON",
		Hints:    []string{"functions are not serializable; hide them with :: or drop them"},
	},
	"TYPE-0009": {
		Class:    ClassType,
		Template: "cannot compare {{.Left}} and {{.Right}}",
	},
	"TYPE-0010": {
		Class:    ClassType,
		Template: "cannot test equality of functions",
	},
	"TYPE-0011": {
		Class:    ClassType,
		Template: "{{.Got}} is not iterable",
		Hints:    []string{"for comprehensions iterate over arrays"},
	},
	"TYPE-0012": {
		Class:    ClassType,
		Template: "self is only usable inside an object",
	},
	"TYPE-0013": {
		Class:    ClassType,
		Template: "super is only usable inside an object with an ancestor",
	},
	"TYPE-0014": {
		Class:    ClassType,
		Template: "$ is only usable inside an object",
	},

	// ========================================
	// Arity errors (ARITY-0xxx)
	// ========================================
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "too many arguments to {{.Function}}: function has {{.Want}}, got {{.Got}}",
	},
	"ARITY-0002": {
		Class:    ClassArity,
		Template: "argument '{{.Name}}' is not a parameter of {{.Function}}",
	},
	"ARITY-0003": {
		Class:    ClassArity,
		Template: "argument '{{.Name}}' passed more than once to {{.Function}}",
	},
	"ARITY-0004": {
		Class:    ClassArity,
		Template: "required parameter '{{.Name}}' of {{.Function}} is not bound",
	},
	"ARITY-0005": {
		Class:    ClassArity,
		Template: "positional arguments must come before named arguments",
	},

	// ========================================
	// Undefined errors (UNDEF-0xxx)
	// ========================================
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "variable is not defined: {{.Name}}",
		// "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"UNDEF-0002": {
		Class:    ClassUndefined,
		Template: "no such field: {{.Name}}",
	},
	"UNDEF-0003": {
		Class:    ClassUndefined,
		Template: "external variable is not defined: {{.Name}}",
		Hints:    []string{"pass it with --ext-str {{.Name}}=... or --ext-code {{.Name}}=..."},
	},
	"UNDEF-0004": {
		Class:    ClassUndefined,
		Template: "duplicate local binding: {{.Name}}",
	},
	"UNDEF-0005": {
		Class:    ClassUndefined,
		Template: "duplicate field name: {{.Name}}",
	},

	// ========================================
	// Recursion errors (REC-0xxx)
	// ========================================
	"REC-0001": {
		Class:    ClassRecursion,
		Template: "max stack depth of {{.Max}} frames exceeded",
		Hints:    []string{"reduce recursion, or raise the limit with --max-stack"},
	},
	"REC-0002": {
		Class:    ClassRecursion,
		Template: "infinite recursion while evaluating {{.What}}",
	},

	// ========================================
	// Assertion errors (ASSERT-0xxx)
	// ========================================
	"ASSERT-0001": {
		Class:    ClassAssert,
		Template: "assertion failed{{if .Message}}: {{.Message}}{{end}}",
	},
	"ASSERT-0002": {
		Class:    ClassAssert,
		Template: "object assertion failed{{if .Message}}: {{.Message}}{{end}}",
	},
	"ASSERT-0003": {
		Class:    ClassAssert,
		Template: "{{.Message}}",
	},

	// ========================================
	// Math errors (MATH-0xxx)
	// ========================================
	"MATH-0001": {
		Class:    ClassMath,
		Template: "division by zero",
	},
	"MATH-0002": {
		Class:    ClassMath,
		Template: "numeric overflow",
	},
	"MATH-0003": {
		Class:    ClassMath,
		Template: "{{.Function}} of {{.Got}} is not a number",
	},
	"MATH-0004": {
		Class:    ClassMath,
		Template: "index must be an integer, got {{.Got}}",
	},

	// ========================================
	// Index errors (INDEX-0xxx)
	// ========================================
	"INDEX-0001": {
		Class:    ClassIndex,
		Template: "array index {{.Index}} out of bounds [0, {{.Length}})",
	},
	"INDEX-0002": {
		Class:    ClassIndex,
		Template: "string index {{.Index}} out of bounds [0, {{.Length}})",
	},
	"INDEX-0003": {
		Class:    ClassIndex,
		Template: "slice step must be positive, got {{.Step}}",
	},

	// ========================================
	// Format errors (FMT-0xxx)
	// ========================================
	"FMT-0001": {
		Class:    ClassFormat,
		Template: "invalid format string: {{.Reason}}",
	},
	"FMT-0002": {
		Class:    ClassFormat,
		Template: "not enough values for format string",
	},
	"FMT-0003": {
		Class:    ClassFormat,
		Template: "too many values for format string ({{.Extra}} unused)",
	},
	"FMT-0004": {
		Class:    ClassFormat,
		Template: "invalid {{.Encoding}}: {{.Reason}}",
	},

	// ========================================
	// Import errors (IMPORT-0xxx)
	// ========================================
	"IMPORT-0001": {
		Class:    ClassImport,
		Template: "can't resolve import '{{.Path}}' from {{.From}}",
	},
	"IMPORT-0002": {
		Class:    ClassImport,
		Template: "failed to load import '{{.Path}}': {{.Reason}}",
	},
	"IMPORT-0003": {
		Class:    ClassImport,
		Template: "imported file is not valid UTF-8: {{.Path}}",
	},
	"IMPORT-0004": {
		Class:    ClassImport,
		Template: "syntax error in imported file {{.Path}}: {{.Reason}}",
	},

	// ========================================
	// Manifestation errors (MANIFEST-0xxx)
	// ========================================
	"MANIFEST-0001": {
		Class:    ClassManifest,
		Template: "string output requested, but the result is {{.Got}}",
		Hints:    []string{"drop -S, or make the top-level value a string"},
	},

	// ========================================
	// Runtime errors (RT-0xxx)
	// ========================================
	"RT-0001": {
		Class:    ClassRuntime,
		Template: "{{.Message}}",
	},
	"RT-0002": {
		Class:    ClassRuntime,
		Template: "native function {{.Name}} failed: {{.Reason}}",
	},
}

// New creates a SorrelError from the catalog. If the code is not found, a
// generic runtime error is created with the code as its message.
func New(code string, data map[string]any) *SorrelError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["Message"].(string); ok {
				msg = m
			}
		}
		return &SorrelError{
			Class:   ClassRuntime,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		if rendered := renderTemplate(hintTmpl, data); rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &SorrelError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewAt creates a SorrelError with source position information.
func NewAt(code string, file string, line, column int, data map[string]any) *SorrelError {
	err := New(code, data)
	err.File = file
	err.Line = line
	err.Column = column
	return err
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil && !strings.Contains(tmplStr, "{{") {
		return tmplStr
	}
	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}
	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// fuzzyThreshold picks the maximum acceptable edit distance for an input:
// 1 edit for short words, up to 3 for long ones.
func fuzzyThreshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from
// candidates, or "" when nothing is within the fuzzy threshold.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)
	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= 0 || bestDistance > fuzzyThreshold(input) {
		return ""
	}
	return bestMatch
}

// FindTopMatches returns the top N closest matches to the input, nearest
// first, all within the fuzzy threshold.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	type match struct {
		value    string
		distance int
	}
	inputLower := strings.ToLower(input)
	var matches []match
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 {
			matches = append(matches, match{candidate, dist})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	threshold := fuzzyThreshold(input)
	var result []string
	for i := 0; i < len(matches) && i < n; i++ {
		if matches[i].distance <= threshold {
			result = append(result, matches[i].value)
		}
	}
	return result
}

// NewUndefinedVariable creates an undefined-variable error with an optional
// "Did you mean?" hint drawn from the identifiers in scope.
func NewUndefinedVariable(name string, inScope []string) *SorrelError {
	err := New("UNDEF-0001", map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, inScope); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}

// NewNoSuchField creates a no-such-field error with an optional
// "Did you mean?" hint drawn from the object's visible and hidden fields.
func NewNoSuchField(name string, fields []string) *SorrelError {
	err := New("UNDEF-0002", map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, fields); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}

// Keywords reserved by Sorrel, used for fuzzy matching against typos.
var Keywords = []string{
	"assert", "else", "error", "false", "for", "function", "if",
	"import", "importstr", "importbin", "in", "local", "null",
	"self", "super", "tailstrict", "then", "true",
}
