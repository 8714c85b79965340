package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"

	"github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
	"github.com/sambeau/sorrel/pkg/sorrel/parser"
	"github.com/sambeau/sorrel/pkg/sorrel/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.3.0"

// keyValueFlag collects repeated name=value options.
type keyValueFlag struct {
	pairs []keyValue
}

type keyValue struct {
	key   string
	value string
}

func (f *keyValueFlag) String() string {
	var parts []string
	for _, p := range f.pairs {
		parts = append(parts, p.key+"="+p.value)
	}
	return strings.Join(parts, ",")
}

func (f *keyValueFlag) Set(s string) error {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		// Bare name: take the value from the environment.
		value, ok := os.LookupEnv(s)
		if !ok {
			return fmt.Errorf("%s needs a =value or an environment variable of that name", s)
		}
		f.pairs = append(f.pairs, keyValue{key: s, value: value})
		return nil
	}
	f.pairs = append(f.pairs, keyValue{key: s[:eq], value: s[eq+1:]})
	return nil
}

// stringListFlag collects a repeatable plain string option.
type stringListFlag []string

func (f *stringListFlag) String() string { return strings.Join(*f, ",") }
func (f *stringListFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}

var (
	// Display flags
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	// Evaluation flags
	evalFlag     = flag.String("e", "", "Evaluate code string")
	evalLongFlag = flag.String("eval", "", "Evaluate code string")
	checkFlag    = flag.Bool("check", false, "Check syntax without evaluating")

	// Output flags
	formatFlag    = flag.String("format", "json", "Output format: json or yaml")
	stringFlag    = flag.Bool("S", false, "String output mode: top-level value must be a string, printed raw")
	indentFlag    = flag.Int("indent", 3, "Spaces per JSON indent level")
	preserveFlag  = flag.Bool("preserve-order", false, "Keep object fields in source order instead of sorting")
	outputFlag    = flag.String("o", "", "Write output to file instead of stdout")
	watchFlag     = flag.Bool("watch", false, "Re-evaluate whenever the input file changes")
	maxStackFlag  = flag.Int("max-stack", evaluator.DefaultMaxStack, "Maximum evaluation stack depth")
	maxTraceFlag  = flag.Int("max-trace", evaluator.DefaultMaxTrace, "Maximum error trace frames shown")
	extStrFlags   keyValueFlag
	extCodeFlags  keyValueFlag
	tlaStrFlags   keyValueFlag
	tlaCodeFlags  keyValueFlag
	libPathFlags  stringListFlag
)

func main() {
	flag.Var(&extStrFlags, "ext-str", "External variable as a string: name=value (repeatable)")
	flag.Var(&extCodeFlags, "ext-code", "External variable as code: name=expr (repeatable)")
	flag.Var(&tlaStrFlags, "tla-str", "Top-level argument as a string: name=value (repeatable)")
	flag.Var(&tlaCodeFlags, "tla-code", "Top-level argument as code: name=expr (repeatable)")
	flag.Var(&libPathFlags, "J", "Library search path for imports (repeatable)")
	flag.Var(&libPathFlags, "jpath", "Library search path for imports (repeatable)")
	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag || *versionLongFlag {
		fmt.Printf("sorrel version %s\n", Version)
		os.Exit(0)
	}

	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	switch {
	case evalCode != "":
		os.Exit(runOnce(func(in *evaluator.Interp) (evaluator.Value, error) {
			return in.EvaluateSnippet("<eval>", evalCode)
		}))
	case *checkFlag:
		files := flag.Args()
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --check requires at least one file")
			os.Exit(2)
		}
		os.Exit(checkFiles(files))
	case len(flag.Args()) > 0:
		filename := flag.Args()[0]
		if *watchFlag {
			watchFile(filename)
			return
		}
		os.Exit(runOnce(func(in *evaluator.Interp) (evaluator.Value, error) {
			return in.EvaluateFile(filename)
		}))
	default:
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(os.Stderr, "Error: no input file (and stdin is not a terminal)")
			os.Exit(2)
		}
		repl.Start(os.Stdout, newInterp(), Version)
	}
}

// newInterp builds a session from the command-line flags.
func newInterp() *evaluator.Interp {
	indent := *indentFlag
	if indent < 0 {
		indent = -1
	}
	in := evaluator.NewInterp(evaluator.Options{
		MaxStack:      *maxStackFlag,
		MaxTrace:      *maxTraceFlag,
		Importer:      &evaluator.FileImporter{JPaths: libPathFlags},
		PreserveOrder: *preserveFlag,
		Indent:        indent,
	})
	for _, p := range extStrFlags.pairs {
		in.SetExtStr(p.key, p.value)
	}
	for _, p := range extCodeFlags.pairs {
		if err := in.SetExtCode(p.key, p.value); err != nil {
			fatalError(err)
		}
	}
	for _, p := range tlaStrFlags.pairs {
		in.SetTLAStr(p.key, p.value)
	}
	for _, p := range tlaCodeFlags.pairs {
		if err := in.SetTLACode(p.key, p.value); err != nil {
			fatalError(err)
		}
	}
	return in
}

// runOnce evaluates, manifests and writes one result, returning the
// process exit code.
func runOnce(eval func(*evaluator.Interp) (evaluator.Value, error)) int {
	in := newInterp()
	v, err := eval(in)
	if err != nil {
		printError(err, in.MaxTrace())
		return 1
	}

	var out string
	switch {
	case *stringFlag:
		out, err = in.ManifestString(v)
	case *formatFlag == "yaml":
		out, err = in.ManifestYAML(v)
	case *formatFlag == "json":
		out, err = in.ManifestJSON(v)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown output format %q (want json or yaml)\n", *formatFlag)
		return 2
	}
	if err != nil {
		printError(err, in.MaxTrace())
		return 1
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	if *outputFlag != "" {
		if werr := os.WriteFile(*outputFlag, []byte(out), 0o644); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", werr)
			return 1
		}
		return 0
	}
	fmt.Print(out)
	return 0
}

// checkFiles parses each file and reports errors without evaluating.
func checkFiles(files []string) int {
	exitCode := 0
	for _, filename := range files {
		data, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
			exitCode = 1
			continue
		}
		if _, perr := parser.ParseSnippet(filename, string(data)); perr != nil {
			printError(perr, evaluator.DefaultMaxTrace)
			exitCode = 1
			continue
		}
		fmt.Printf("%s: OK\n", filename)
	}
	return exitCode
}

// watchFile re-evaluates the input whenever it, or anything in its
// directory, changes. Each round runs in a fresh session so stale
// import caches never leak between evaluations.
func watchFile(filename string) {
	run := func() {
		code := runOnce(func(in *evaluator.Interp) (evaluator.Value, error) {
			return in.EvaluateFile(filename)
		})
		if code == 0 {
			fmt.Fprintf(os.Stderr, "-- %s: ok\n", filename)
		}
	}
	run()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer watcher.Close()

	// Watch the directory: editors typically replace files on save,
	// which drops a watch set on the file itself.
	dir := filepath.Dir(filename)
	if err := watcher.Add(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, jp := range libPathFlags {
		watcher.Add(jp)
	}

	target := filepath.Clean(filename)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			changed := filepath.Clean(event.Name)
			if changed != target && filepath.Ext(changed) != filepath.Ext(target) {
				continue
			}
			run()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", werr)
		}
	}
}

func printError(err error, maxTrace int) {
	if se, ok := err.(*errors.SorrelError); ok {
		fmt.Fprintln(os.Stderr, se.PrettyString(maxTrace))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func fatalError(err error) {
	printError(err, evaluator.DefaultMaxTrace)
	os.Exit(1)
}

func printHelp() {
	fmt.Printf(`sorrel - lazy configuration language version %s

Usage:
  sorrel [options] <file.srl>
  sorrel -e "code"
  sorrel --check <file>...
  sorrel                       Start interactive REPL (on a terminal)

Display Options:
  -h, --help            Show this help message
  -V, --version         Show version information

Evaluation Options:
  -e, --eval <code>     Evaluate a code string
  --check               Check syntax without evaluating
  --ext-str name=value  Bind an external variable to a string (repeatable)
  --ext-code name=expr  Bind an external variable to an expression (repeatable)
  --tla-str name=value  Pass a top-level argument as a string (repeatable)
  --tla-code name=expr  Pass a top-level argument as an expression (repeatable)
  -J <dir>              Add a library search path for imports (repeatable)
  --max-stack <n>       Maximum evaluation stack depth (default %d)
  --max-trace <n>       Maximum error trace frames shown (default %d)

Output Options:
  --format json|yaml    Output format (default json)
  -S                    String output: top-level value must be a string, printed raw
  --indent <n>          Spaces per JSON indent level (default 3)
  --preserve-order      Keep object fields in source order instead of sorting
  -o <file>             Write output to a file instead of stdout
  --watch               Re-evaluate whenever the input file changes

Examples:
  sorrel config.srl                         Evaluate and print JSON
  sorrel --format yaml config.srl           Print YAML instead
  sorrel -e '{a: 1, b: self.a + 1}'         Evaluate inline code
  sorrel -e 'std.extVar("env")' --ext-str env=prod
  sorrel --tla-code replicas=3 deploy.srl   Call a top-level function
  sorrel -J ./lib config.srl                Search ./lib for imports
  sorrel --check *.srl                      Syntax-check files
`, Version, evaluator.DefaultMaxStack, evaluator.DefaultMaxTrace)
}
