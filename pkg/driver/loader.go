package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/parser"
)

// Module is one loaded source file keyed by its import path.
type Module struct {
	Path    string // slash-joined import path, "" for the entry file
	File    string // absolute source file location
	AST     *ast.Module
	Imports []string
}

// Program is a loaded module graph: Modules is in dependency order, with
// the entry module last. Evaluating modules front to back guarantees every
// import is already available.
type Program struct {
	Entry   *Module
	Modules []*Module
}

// DiagnosticsError carries the batched parse diagnostics for one file.
type DiagnosticsError struct {
	File  string
	Diags []*parser.ParseError
}

func (e *DiagnosticsError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d parse error(s)", e.File, len(e.Diags))
	for _, diag := range e.Diags {
		b.WriteString("\n  ")
		b.WriteString(diag.Error())
	}
	return b.String()
}

// Loader resolves import paths to .oath files across a list of search
// roots. Builtin module paths (core, core/io) are skipped; the interpreter
// serves those from its native registry.
type Loader struct {
	searchPaths []string
	builtins    map[string]struct{}
	loaded      map[string]*Module
}

// NewLoader validates and deduplicates the search roots. Roots that do not
// exist are rejected; the entry file's own directory is always consulted
// first at Load time.
func NewLoader(searchPaths []string, builtins []string) (*Loader, error) {
	unique := make([]string, 0, len(searchPaths))
	seen := make(map[string]struct{}, len(searchPaths))
	for _, path := range searchPaths {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("loader: resolve search path %q: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("loader: stat search path %s: %w", abs, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("loader: search path %s is not a directory", abs)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		unique = append(unique, abs)
	}
	known := make(map[string]struct{}, len(builtins))
	for _, path := range builtins {
		known[path] = struct{}{}
	}
	return &Loader{
		searchPaths: unique,
		builtins:    known,
		loaded:      make(map[string]*Module),
	}, nil
}

// Load parses the entry file and every transitively imported module,
// each exactly once, and returns them in dependency order.
func (l *Loader) Load(entry string) (*Program, error) {
	if entry == "" {
		return nil, fmt.Errorf("loader: empty entry path")
	}
	entryPath, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve entry path: %w", err)
	}
	info, err := os.Stat(entryPath)
	if err != nil {
		return nil, fmt.Errorf("loader: stat entry %s: %w", entryPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("loader: entry path %s is a directory", entryPath)
	}

	roots := append([]string{filepath.Dir(entryPath)}, l.searchPaths...)

	var ordered []*Module
	inProgress := make(map[string]bool)

	var loadPath func(path, importer string) (*Module, error)
	loadPath = func(path, importer string) (*Module, error) {
		if mod, ok := l.loaded[path]; ok {
			return mod, nil
		}
		if inProgress[path] {
			return nil, fmt.Errorf("loader: import cycle detected at module %s", path)
		}
		file, ok := resolveModuleFile(roots, path)
		if !ok {
			return nil, fmt.Errorf("loader: module %s imported by %s not found", path, importer)
		}
		inProgress[path] = true
		defer delete(inProgress, path)

		mod, err := l.parseFile(file, path)
		if err != nil {
			return nil, err
		}
		for _, dep := range mod.Imports {
			if _, builtin := l.builtins[dep]; builtin {
				continue
			}
			if _, err := loadPath(dep, path); err != nil {
				return nil, err
			}
		}
		l.loaded[path] = mod
		ordered = append(ordered, mod)
		return mod, nil
	}

	entryModule, err := l.parseFile(entryPath, "")
	if err != nil {
		return nil, err
	}
	inProgress[""] = true
	for _, dep := range entryModule.Imports {
		if _, builtin := l.builtins[dep]; builtin {
			continue
		}
		if _, err := loadPath(dep, entryPath); err != nil {
			return nil, err
		}
	}
	delete(inProgress, "")
	ordered = append(ordered, entryModule)

	return &Program{Entry: entryModule, Modules: ordered}, nil
}

// resolveModuleFile maps an import path like "geo/shapes" to the first
// matching <root>/geo/shapes.oath.
func resolveModuleFile(roots []string, path string) (string, bool) {
	rel := filepath.FromSlash(path) + ".oath"
	for _, root := range roots {
		candidate := filepath.Join(root, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (l *Loader) parseFile(file, importPath string) (*Module, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", file, err)
	}
	moduleAST, diags := parser.Parse(string(source), file)
	if len(diags) > 0 {
		return nil, &DiagnosticsError{File: file, Diags: diags}
	}
	moduleAST.Path = importPath

	importSet := make(map[string]struct{}, len(moduleAST.Imports))
	for _, imp := range moduleAST.Imports {
		segments := make([]string, 0, len(imp.Path))
		for _, seg := range imp.Path {
			segments = append(segments, seg.Name)
		}
		if len(segments) > 0 {
			importSet[strings.Join(segments, "/")] = struct{}{}
		}
	}
	imports := make([]string, 0, len(importSet))
	for name := range importSet {
		imports = append(imports, name)
	}
	sort.Strings(imports)

	return &Module{
		Path:    importPath,
		File:    file,
		AST:     moduleAST,
		Imports: imports,
	}, nil
}
