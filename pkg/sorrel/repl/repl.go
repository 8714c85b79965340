// Package repl provides the interactive Sorrel session with line
// editing, history, and tab completion.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
)

const PROMPT = ">> "
const PROMPT_RAW = ":> "
const CONTINUATION_PROMPT = ".. "

const SORREL_LOGO = `
█▀ █▀█ █▀█ █▀█ █▀▀ █░░
▄█ █▄█ █▀▄ █▀▄ ██▄ █▄▄ `

// Sorrel keywords for tab completion; std names are added at startup.
var completionWords = []string{
	"assert", "else", "error", "false", "for", "function", "if", "import",
	"importstr", "importbin", "in", "local", "null", "self", "super",
	"tailstrict", "then", "true",
	"std.",
}

// binding is one 'local name = expr' the user entered, kept as source
// and replayed in front of every later expression.
type binding struct {
	name string
	src  string
}

// Start runs the REPL against one evaluation session.
func Start(out io.Writer, in *evaluator.Interp, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	words := append([]string{}, completionWords...)
	for _, name := range in.StdNames() {
		words = append(words, "std."+name)
	}
	line.SetCompleter(func(line string) []string {
		return filterCompletions(line, words)
	})

	historyFile := filepath.Join(os.TempDir(), ".sorrel_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s", SORREL_LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var bindings []binding
	var inputBuffer strings.Builder
	rawMode := false
	basePrompt := PROMPT

	for {
		currentPrompt := basePrompt
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			newRawMode, newBindings := handleReplCommand(trimmed, bindings, out, rawMode)
			rawMode = newRawMode
			bindings = newBindings
			if rawMode {
				basePrompt = PROMPT_RAW
			} else {
				basePrompt = PROMPT
			}
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}
		inputBuffer.Reset()

		if trimmed != "" {
			line.AppendHistory(fullInput)
		}

		// A bare 'local name = expr' persists as a session binding.
		if name, ok := parseBinding(fullInput); ok {
			bindings = removeBinding(bindings, name)
			bindings = append(bindings, binding{name: name, src: strings.TrimSpace(fullInput)})
			fmt.Fprintf(out, "%s bound\n", name)
			continue
		}

		source := assembleSource(bindings, fullInput)
		v, err := in.EvaluateSnippet("<repl>", source)
		if err != nil {
			printError(out, err, in.MaxTrace())
			continue
		}

		var rendered string
		if rawMode {
			rendered, err = in.ManifestString(v)
		} else {
			rendered, err = in.ManifestJSON(v)
		}
		if err != nil {
			printError(out, err, in.MaxTrace())
			continue
		}
		io.WriteString(out, rendered)
		io.WriteString(out, "\n")
	}
}

// handleReplCommand handles the ':' meta-commands, returning the
// possibly updated raw mode and bindings.
func handleReplCommand(cmd string, bindings []binding, out io.Writer, rawMode bool) (bool, []binding) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :env            Show session bindings")
		fmt.Fprintln(out, "  :clear          Drop all session bindings")
		fmt.Fprintln(out, "  :raw            Toggle raw output mode (top-level strings print unquoted)")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Enter 'local name = expr' to bind a value for later expressions.")
		return rawMode, bindings

	case ":env":
		if len(bindings) == 0 {
			fmt.Fprintln(out, "(no session bindings)")
			return rawMode, bindings
		}
		for _, b := range bindings {
			fmt.Fprintf(out, "  %s\n", b.src)
		}
		return rawMode, bindings

	case ":clear":
		fmt.Fprintln(out, "Session bindings cleared")
		return rawMode, nil

	case ":raw":
		newMode := !rawMode
		if newMode {
			fmt.Fprintln(out, "Raw output mode ON (top-level strings print unquoted)")
		} else {
			fmt.Fprintln(out, "Raw output mode OFF (JSON output)")
		}
		return newMode, bindings

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
		return rawMode, bindings
	}
}

// parseBinding recognizes a bare 'local name = expr' line with no body.
func parseBinding(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "local ") || strings.Contains(trimmed, ";") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "local "))
	eq := strings.IndexByte(rest, '=')
	if eq <= 0 {
		return "", false
	}
	name := strings.TrimSpace(rest[:eq])
	// Function sugar: 'local f(x) = ...'
	if paren := strings.IndexByte(name, '('); paren > 0 {
		name = strings.TrimSpace(name[:paren])
	}
	if name == "" || strings.ContainsAny(name, " \t=<>!+-*/%|&^~") {
		return "", false
	}
	return name, true
}

func removeBinding(bindings []binding, name string) []binding {
	out := bindings[:0]
	for _, b := range bindings {
		if b.name != name {
			out = append(out, b)
		}
	}
	return out
}

// assembleSource replays session bindings in front of the expression.
func assembleSource(bindings []binding, expr string) string {
	if len(bindings) == 0 {
		return expr
	}
	var b strings.Builder
	for _, bind := range bindings {
		b.WriteString(bind.src)
		b.WriteString(";\n")
	}
	b.WriteString(expr)
	return b.String()
}

// filterCompletions suggests keywords and std names matching the word
// being typed.
func filterCompletions(line string, words []string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}
	fields := strings.Fields(line)
	lastWord := fields[len(fields)-1]
	prefix := line[:len(line)-len(lastWord)]

	var matches []string
	for _, word := range words {
		if strings.HasPrefix(word, lastWord) && word != lastWord {
			matches = append(matches, prefix+word)
		}
	}
	return matches
}

// needsMoreInput reports whether the input has unclosed braces, brackets
// or parentheses outside of strings.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	braceCount := 0
	bracketCount := 0
	parenCount := 0
	inString := false
	escapeNext := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if inString && ch == '\\' {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			braceCount++
		case '}':
			braceCount--
		case '[':
			bracketCount++
		case ']':
			bracketCount--
		case '(':
			parenCount++
		case ')':
			parenCount--
		}
	}

	return braceCount > 0 || bracketCount > 0 || parenCount > 0
}

// printError renders parse and runtime errors with hints and trace.
func printError(out io.Writer, err error, maxTrace int) {
	if se, ok := err.(*errors.SorrelError); ok {
		io.WriteString(out, se.PrettyString(maxTrace))
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "error: %v\n", err)
}
