package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/oath-lang/oath/pkg/builtins"
	"github.com/oath-lang/oath/pkg/driver"
	"github.com/oath-lang/oath/pkg/interpreter"
	"github.com/oath-lang/oath/pkg/parser"
	"github.com/oath-lang/oath/pkg/runtime"
)

const cliVersion = "oath 0.1.0-dev"

var errManifestNotFound = errors.New("package.yml not found")

var (
	errColor  = color.New(color.FgRed, color.Bold)
	posColor  = color.New(color.FgCyan)
	infoColor = color.New(color.FgGreen)
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}
	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliVersion)
		return 0
	case "run":
		return runEntry(args[1:])
	case "check":
		return runCheck(args[1:])
	case "repl":
		return runRepl(args[1:])
	case "deps":
		return runDeps(args[1:])
	default:
		// `oath file.oath` works as shorthand for `oath run file.oath`.
		if strings.HasSuffix(args[0], ".oath") {
			return runEntry(args)
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}

func runEntry(args []string) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}

	manifest, err := loadManifestFrom(".")
	if err != nil && !errors.Is(err, errManifestNotFound) {
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	var entry string
	switch {
	case len(args) == 0:
		if manifest == nil {
			fmt.Fprintln(os.Stderr, "oath run requires a manifest target or source file (package.yml not found)")
			return 1
		}
		target, err := manifest.DefaultExecutableTarget()
		if err != nil {
			errColor.Fprint(os.Stderr, "error: ")
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		entry = filepath.Join(manifest.Dir(), filepath.FromSlash(target.Main))
	case manifest != nil && !strings.HasSuffix(args[0], ".oath"):
		target, ok := manifest.FindTarget(args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "manifest has no target %q\n", args[0])
			return 1
		}
		if target.Main == "" {
			fmt.Fprintf(os.Stderr, "target %q has no main entrypoint\n", target.Name)
			return 1
		}
		entry = filepath.Join(manifest.Dir(), filepath.FromSlash(target.Main))
	default:
		entry = args[0]
	}

	return executeEntry(entry, manifest)
}

func executeEntry(entry string, manifest *driver.Manifest) int {
	searchPaths, err := collectSearchPaths(manifest)
	if err != nil {
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	interp, reg := newInterpreter(os.Stdout)
	loader, err := driver.NewLoader(searchPaths, reg.Paths())
	if err != nil {
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	program, err := loader.Load(entry)
	if err != nil {
		reportLoadError(err)
		return 1
	}

	for _, mod := range program.Modules {
		_, env, err := interp.EvaluateModule(mod.AST)
		if err != nil {
			reportRuntimeError(err)
			return 1
		}
		if mod.Path != "" {
			interp.DefineModule(mod.Path, runtime.PackageValue{
				Path:   mod.Path,
				Public: interp.ModuleExports(mod.AST, env),
			})
		}
	}

	// A main function, when present, is the program entry point.
	entryEnv := interp.GlobalEnvironment()
	if mainValue, err := entryEnv.Get("main"); err == nil {
		if _, err := interp.Invoke(mainValue, nil); err != nil {
			reportRuntimeError(err)
			return 1
		}
	}
	return 0
}

func runCheck(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "oath check requires at least one source file")
		return 1
	}
	failed := false
	for _, file := range args {
		source, err := os.ReadFile(file)
		if err != nil {
			errColor.Fprint(os.Stderr, "error: ")
			fmt.Fprintf(os.Stderr, "%v\n", err)
			failed = true
			continue
		}
		_, diags := parser.Parse(string(source), file)
		if len(diags) == 0 {
			infoColor.Fprint(os.Stdout, "ok ")
			fmt.Fprintln(os.Stdout, file)
			continue
		}
		failed = true
		for _, diag := range diags {
			printDiagnostic(diag)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func runDeps(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "oath deps does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}
	manifest, err := loadManifestFrom(".")
	if err != nil {
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	cacheDir, err := resolveOathHome()
	if err != nil {
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(os.Stdout, "Dependencies: %d\n", len(manifest.Dependencies))

	fetcher := driver.NewFetcher(cacheDir, manifest.Dir())
	deps, err := fetcher.FetchAll(manifest)
	if err != nil {
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	for _, dep := range deps {
		fmt.Fprintf(os.Stdout, "  %s %s (%s)\n", dep.Name, dep.Version, dep.Source)
	}
	fmt.Fprintln(os.Stdout, "Dependencies installed.")
	return 0
}

// newInterpreter wires the native registry and stdout into a fresh
// interpreter.
func newInterpreter(out *os.File) (*interpreter.Interpreter, *runtime.Registry) {
	reg := runtime.NewRegistry()
	builtins.Install(reg)
	interp := interpreter.New(
		interpreter.WithRegistry(reg),
		interpreter.WithStdout(func(s string) { fmt.Fprint(out, s) }),
	)
	builtins.Bind(interp)
	return interp, reg
}

// collectSearchPaths assembles the module roots: the manifest directory,
// every resolvable dependency, and OATH_PATH entries.
func collectSearchPaths(manifest *driver.Manifest) ([]string, error) {
	var paths []string
	if manifest != nil {
		paths = append(paths, manifest.Dir())
		cacheDir, err := resolveOathHome()
		if err != nil {
			return nil, err
		}
		depPaths, err := dependencySearchPaths(manifest, cacheDir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, depPaths...)
	}
	for _, part := range strings.Split(os.Getenv("OATH_PATH"), string(os.PathListSeparator)) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if info, err := os.Stat(part); err == nil && info.IsDir() {
			paths = append(paths, part)
		}
	}
	return paths, nil
}

// dependencySearchPaths resolves manifest dependencies against the local
// cache without touching the network. Path dependencies resolve in place;
// git dependencies must already be fetched by `oath deps`.
func dependencySearchPaths(manifest *driver.Manifest, cacheDir string) ([]string, error) {
	var paths []string
	for name, spec := range manifest.Dependencies {
		switch {
		case spec.Path != "":
			dir := spec.Path
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(manifest.Dir(), dir)
			}
			paths = append(paths, dir)
		case spec.Git != "":
			baseDir := filepath.Join(cacheDir, "pkg", "src", name)
			entries, err := os.ReadDir(baseDir)
			if err != nil || len(entries) == 0 {
				return nil, fmt.Errorf("dependency %q is not fetched; run `oath deps` first", name)
			}
			for _, entry := range entries {
				if entry.IsDir() {
					paths = append(paths, filepath.Join(baseDir, entry.Name()))
				}
			}
		}
	}
	return paths, nil
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest search path %q: %w", start, err)
	}
	manifestPath, err := findManifest(abs)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

// findManifest walks from start upward until it finds package.yml.
func findManifest(start string) (string, error) {
	dir := start
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, "package.yml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no package.yml found from %s upwards: %w", origin, errManifestNotFound)
		}
		dir = parent
	}
}

func resolveOathHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("OATH_HOME")); home != "" {
		return filepath.Abs(home)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".oath"), nil
}

func reportLoadError(err error) {
	var derr *driver.DiagnosticsError
	if errors.As(err, &derr) {
		for _, diag := range derr.Diags {
			printDiagnostic(diag)
		}
		return
	}
	errColor.Fprint(os.Stderr, "error: ")
	fmt.Fprintf(os.Stderr, "%v\n", err)
}

func printDiagnostic(diag *parser.ParseError) {
	posColor.Fprint(os.Stderr, diag.Pos.String())
	errColor.Fprint(os.Stderr, " error: ")
	fmt.Fprintf(os.Stderr, "expected %s, found %s\n", diag.Expected, diag.Found)
}

func reportRuntimeError(err error) {
	errColor.Fprint(os.Stderr, "runtime error: ")
	fmt.Fprintf(os.Stderr, "%v\n", err)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  oath run [target]")
	fmt.Fprintln(os.Stderr, "  oath run <file.oath>")
	fmt.Fprintln(os.Stderr, "  oath <file.oath>")
	fmt.Fprintln(os.Stderr, "  oath check <file.oath> [...]")
	fmt.Fprintln(os.Stderr, "  oath repl")
	fmt.Fprintln(os.Stderr, "  oath deps")
}
