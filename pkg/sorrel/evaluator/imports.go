package evaluator

import (
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/parser"
)

// Importer resolves and loads import paths. Resolve turns a path as
// written in source into a canonical key; Load fetches the bytes. The
// session caches on the resolved key, so two spellings of the same file
// evaluate once.
type Importer interface {
	Resolve(from, path string) (string, error)
	Load(resolved string) ([]byte, error)
}

// FileImporter loads imports from disk. Relative paths resolve against
// the importing file's directory first, then each library path in order.
type FileImporter struct {
	JPaths []string
}

func (fi *FileImporter) Resolve(from, path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return filepath.Clean(path), nil
	}
	var candidates []string
	if from != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(from), path))
	} else {
		candidates = append(candidates, path)
	}
	for _, jp := range fi.JPaths {
		candidates = append(candidates, filepath.Join(jp, path))
	}
	var lastErr error
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			abs, aerr := filepath.Abs(c)
			if aerr != nil {
				return filepath.Clean(c), nil
			}
			return abs, nil
		} else {
			lastErr = err
		}
	}
	return "", lastErr
}

func (fi *FileImporter) Load(resolved string) ([]byte, error) {
	return os.ReadFile(resolved)
}

// importCacheEntry is the session cache slot for one resolved path. The
// raw bytes serve importstr/importbin; the code thunk serves import and
// memoizes the evaluated result, errors included. Import cycles surface
// as infinite recursion through the thunk's reentrancy check.
type importCacheEntry struct {
	code      *Thunk
	raw       []byte
	rawLoaded bool
	rawErr    error
}

func (in *Interp) importEntry(resolved string) *importCacheEntry {
	entry, ok := in.imports[resolved]
	if !ok {
		entry = &importCacheEntry{}
		in.imports[resolved] = entry
	}
	return entry
}

func (in *Interp) resolveImport(tok locTok, from, path string) (string, error) {
	resolved, err := in.importer.Resolve(from, path)
	if err != nil {
		fromDesc := from
		if fromDesc == "" {
			fromDesc = "<cli>"
		}
		return "", errAt("IMPORT-0001", tok, map[string]any{"Path": path, "From": fromDesc})
	}
	return resolved, nil
}

func (in *Interp) loadImport(tok locTok, path, resolved string) ([]byte, error) {
	entry := in.importEntry(resolved)
	if !entry.rawLoaded {
		data, err := in.importer.Load(resolved)
		entry.rawLoaded = true
		if err != nil {
			entry.rawErr = errAt("IMPORT-0002", tok, map[string]any{"Path": path, "Reason": err.Error()}).Freeze()
		} else {
			entry.raw = data
		}
	}
	if entry.rawErr != nil {
		return nil, entry.rawErr
	}
	return entry.raw, nil
}

// importCode returns the memoized evaluation thunk for a code import.
func (in *Interp) importCode(tok locTok, from, path string) (*Thunk, error) {
	resolved, err := in.resolveImport(tok, from, path)
	if err != nil {
		return nil, err
	}
	entry := in.importEntry(resolved)
	if entry.code == nil {
		entry.code = ComputeThunk("import "+strconv.Quote(path), func(in *Interp) (Value, error) {
			data, err := in.loadImport(tok, path, resolved)
			if err != nil {
				return nil, err
			}
			if !utf8.Valid(data) {
				return nil, errAt("IMPORT-0003", tok, map[string]any{"Path": resolved})
			}
			expr, perr := parser.ParseSnippet(resolved, string(data))
			if perr != nil {
				return nil, perr
			}
			return in.eval(expr, in.rootEnvFor(resolved))
		})
	}
	return entry.code, nil
}

func (in *Interp) evalImport(node *ast.ImportExpression, env *Environment) (Value, error) {
	tok := tokLoc(node.Token)
	from := node.Token.File
	switch node.Kind {
	case ast.ImportCode:
		t, err := in.importCode(tok, from, node.Path)
		if err != nil {
			return nil, err
		}
		v, err := t.Force(in)
		if err != nil {
			pushFrame(err, "import "+strconv.Quote(node.Path), tok)
			return nil, err
		}
		return v, nil
	case ast.ImportStr:
		resolved, err := in.resolveImport(tok, from, node.Path)
		if err != nil {
			return nil, err
		}
		data, err := in.loadImport(tok, node.Path, resolved)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(data) {
			return nil, errAt("IMPORT-0003", tok, map[string]any{"Path": resolved})
		}
		return &String{Value: string(data)}, nil
	default: // ast.ImportBin
		resolved, err := in.resolveImport(tok, from, node.Path)
		if err != nil {
			return nil, err
		}
		data, err := in.loadImport(tok, node.Path, resolved)
		if err != nil {
			return nil, err
		}
		elements := make([]*Thunk, len(data))
		for i, b := range data {
			elements[i] = ForcedThunk(&Number{Value: float64(b)})
		}
		return &Array{Elements: elements}, nil
	}
}
